// Package school defines the domain records produced by the surrounding
// school-information system and the data-source contracts the analytics
// core consumes them through.
package school

import "github.com/google/uuid"

// Student is the master record for one student. TZ is the national ID
// card number used as the primary key across all imports.
type Student struct {
	TZ      string    `json:"student_tz"`
	Name    string    `json:"student_name"`
	ClassID uuid.UUID `json:"class_id,omitempty"`
}

// GradeRecord is a single per-subject grade. Grade is in [0,100].
// Period is a free-form term label (e.g. "Q1", "Semester A").
type GradeRecord struct {
	StudentTZ   string  `json:"student_tz"`
	Subject     string  `json:"subject"`
	TeacherName string  `json:"teacher_name,omitempty"`
	Grade       float64 `json:"grade"`
	Period      string  `json:"period"`
}

// AttendanceRecord holds attendance and behavior counters for one student
// in one period. Some imports write one aggregate row per period, others
// one row per batch; consumers must sum across rows.
type AttendanceRecord struct {
	StudentTZ           string `json:"student_tz"`
	Period              string `json:"period"`
	LessonsReported     int    `json:"lessons_reported"`
	Absence             int    `json:"absence"`
	AbsenceJustified    int    `json:"absence_justified"`
	Late                int    `json:"late"`
	Disturbance         int    `json:"disturbance"`
	TotalAbsences       int    `json:"total_absences"`
	TotalNegativeEvents int    `json:"total_negative_events"`
	TotalPositiveEvents int    `json:"total_positive_events"`
}

// Class groups students for presentation purposes. The analytics core
// never models on class membership.
type Class struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"class_name"`
	GradeLevel string    `json:"grade_level"`
}

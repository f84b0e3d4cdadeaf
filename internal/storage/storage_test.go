package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrFaiman/student-personalizer/internal/school"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	// Check if database file was created
	dbPath := filepath.Join(tempDir, "personalizer-data.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/that/does/not/exist")
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}

	// Closing an already closed store must not error
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_Students(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	alice := school.Student{TZ: "S001", Name: "Alice"}
	bob := school.Student{TZ: "S002", Name: "Bob"}

	if err := store.PutStudent("school-a", alice); err != nil {
		t.Fatalf("put student: %v", err)
	}
	if err := store.PutStudent("school-a", bob); err != nil {
		t.Fatalf("put student: %v", err)
	}
	if err := store.PutStudent("school-b", school.Student{TZ: "S001", Name: "Other Alice"}); err != nil {
		t.Fatalf("put student: %v", err)
	}

	students, err := store.FetchStudents("school-a")
	if err != nil {
		t.Fatalf("fetch students: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 students, got %d", len(students))
	}
	if students[0].Name != "Alice" || students[1].Name != "Bob" {
		t.Errorf("unexpected students: %+v", students)
	}

	// Upsert replaces by TZ
	if err := store.PutStudent("school-a", school.Student{TZ: "S001", Name: "Alice Smith"}); err != nil {
		t.Fatalf("upsert student: %v", err)
	}
	students, err = store.FetchStudents("school-a")
	if err != nil {
		t.Fatalf("fetch students: %v", err)
	}
	if len(students) != 2 {
		t.Errorf("upsert must not add a row, got %d students", len(students))
	}
	if students[0].Name != "Alice Smith" {
		t.Errorf("expected updated name, got %s", students[0].Name)
	}
}

func TestStore_GradesInsertionOrder(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	// Grades written in declining order must read back in the same order:
	// the trend feature depends on it.
	values := []float64{90, 85, 80, 60, 50}
	for i, g := range values {
		err := store.PutGrade("school-a", school.GradeRecord{
			StudentTZ: "S001",
			Subject:   fmt.Sprintf("Subject-%d", i+1),
			Grade:     g,
			Period:    "Q1",
		})
		if err != nil {
			t.Fatalf("put grade: %v", err)
		}
	}

	grades, err := store.FetchGrades("school-a", "Q1")
	if err != nil {
		t.Fatalf("fetch grades: %v", err)
	}
	if len(grades) != len(values) {
		t.Fatalf("expected %d grades, got %d", len(values), len(grades))
	}
	for i, g := range grades {
		if g.Grade != values[i] {
			t.Errorf("grade %d: got %v, want %v (order not preserved)", i, g.Grade, values[i])
		}
	}
}

func TestStore_GradesPeriodFilter(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	records := []school.GradeRecord{
		{StudentTZ: "S001", Subject: "Math", Grade: 80, Period: "Q1"},
		{StudentTZ: "S001", Subject: "Math", Grade: 85, Period: "Q2"},
		{StudentTZ: "S001", Subject: "History", Grade: 70, Period: "Q1"},
	}
	for _, g := range records {
		if err := store.PutGrade("school-a", g); err != nil {
			t.Fatalf("put grade: %v", err)
		}
	}

	q1, err := store.FetchGrades("school-a", "Q1")
	if err != nil {
		t.Fatalf("fetch q1: %v", err)
	}
	if len(q1) != 2 {
		t.Errorf("expected 2 Q1 grades, got %d", len(q1))
	}

	all, err := store.FetchGrades("school-a", "")
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 grades without filter, got %d", len(all))
	}
}

func TestStore_Attendance(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	record := school.AttendanceRecord{
		StudentTZ:           "S001",
		Period:              "Q1",
		LessonsReported:     100,
		Absence:             2,
		AbsenceJustified:    1,
		Late:                1,
		TotalAbsences:       3,
		TotalNegativeEvents: 3,
		TotalPositiveEvents: 5,
	}
	if err := store.PutAttendance("school-a", record); err != nil {
		t.Fatalf("put attendance: %v", err)
	}

	records, err := store.FetchAttendance("school-a", "Q1")
	if err != nil {
		t.Fatalf("fetch attendance: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0] != record {
		t.Errorf("round trip mismatch: %+v", records[0])
	}

	none, err := store.FetchAttendance("school-a", "Q2")
	if err != nil {
		t.Fatalf("fetch q2: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no Q2 records, got %d", len(none))
	}
}

func TestStore_ScopeIsolation(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.PutGrade("school-a", school.GradeRecord{StudentTZ: "S001", Grade: 80, Period: "Q1"}); err != nil {
		t.Fatalf("put grade: %v", err)
	}

	grades, err := store.FetchGrades("school-b", "")
	if err != nil {
		t.Fatalf("fetch grades: %v", err)
	}
	if len(grades) != 0 {
		t.Errorf("school-b must not see school-a grades, got %d", len(grades))
	}
}

func TestStore_ScopeIsolation_PrefixNames(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	// One school name being a prefix of another must not leak records
	// in either direction.
	if err := store.PutStudent("north", school.Student{TZ: "S001", Name: "Alice"}); err != nil {
		t.Fatalf("put student: %v", err)
	}
	if err := store.PutStudent("north_annex", school.Student{TZ: "S100", Name: "Zara"}); err != nil {
		t.Fatalf("put student: %v", err)
	}
	if err := store.PutGrade("north_annex", school.GradeRecord{StudentTZ: "S100", Grade: 77, Period: "Q1"}); err != nil {
		t.Fatalf("put grade: %v", err)
	}
	if err := store.PutAttendance("north_annex", school.AttendanceRecord{StudentTZ: "S100", Period: "Q1", Absence: 1}); err != nil {
		t.Fatalf("put attendance: %v", err)
	}

	students, err := store.FetchStudents("north")
	if err != nil {
		t.Fatalf("fetch students: %v", err)
	}
	if len(students) != 1 || students[0].TZ != "S001" {
		t.Errorf("school north sees %d students, want only S001", len(students))
	}

	grades, err := store.FetchGrades("north", "")
	if err != nil {
		t.Fatalf("fetch grades: %v", err)
	}
	if len(grades) != 0 {
		t.Errorf("school north sees %d grades from north_annex, want 0", len(grades))
	}

	attendance, err := store.FetchAttendance("north", "")
	if err != nil {
		t.Fatalf("fetch attendance: %v", err)
	}
	if len(attendance) != 0 {
		t.Errorf("school north sees %d attendance rows from north_annex, want 0", len(attendance))
	}

	annex, err := store.FetchStudents("north_annex")
	if err != nil {
		t.Fatalf("fetch annex students: %v", err)
	}
	if len(annex) != 1 || annex[0].TZ != "S100" {
		t.Errorf("school north_annex sees %d students, want only S100", len(annex))
	}
}

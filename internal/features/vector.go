// Package features turns raw grade and attendance records into the fixed
// 14-column numeric vectors the models are trained and scored on.
package features

// Columns is the canonical feature order. Models are fitted against
// matrices in this column order, so it must never be reordered.
var Columns = []string{
	"average_grade",
	"min_grade",
	"max_grade",
	"grade_std",
	"grade_trend_slope",
	"num_subjects",
	"failing_subjects",
	"absence",
	"absence_justified",
	"late",
	"disturbance",
	"total_absences",
	"total_negative_events",
	"total_positive_events",
}

// Vector is one student's feature row. Identity fields are carried
// through for presentation and are never used in modeling.
type Vector struct {
	StudentTZ   string `json:"student_tz"`
	StudentName string `json:"student_name"`

	AverageGrade        float64 `json:"average_grade"`
	MinGrade            float64 `json:"min_grade"`
	MaxGrade            float64 `json:"max_grade"`
	GradeStd            float64 `json:"grade_std"`
	GradeTrendSlope     float64 `json:"grade_trend_slope"`
	NumSubjects         int     `json:"num_subjects"`
	FailingSubjects     int     `json:"failing_subjects"`
	Absence             int     `json:"absence"`
	AbsenceJustified    int     `json:"absence_justified"`
	Late                int     `json:"late"`
	Disturbance         int     `json:"disturbance"`
	TotalAbsences       int     `json:"total_absences"`
	TotalNegativeEvents int     `json:"total_negative_events"`
	TotalPositiveEvents int     `json:"total_positive_events"`
}

// Values returns the numeric fields in Columns order.
func (v Vector) Values() []float64 {
	return []float64{
		v.AverageGrade,
		v.MinGrade,
		v.MaxGrade,
		v.GradeStd,
		v.GradeTrendSlope,
		float64(v.NumSubjects),
		float64(v.FailingSubjects),
		float64(v.Absence),
		float64(v.AbsenceJustified),
		float64(v.Late),
		float64(v.Disturbance),
		float64(v.TotalAbsences),
		float64(v.TotalNegativeEvents),
		float64(v.TotalPositiveEvents),
	}
}

// Map returns the feature snapshot keyed by column name, as embedded in
// prediction results.
func (v Vector) Map() map[string]float64 {
	vals := v.Values()
	m := make(map[string]float64, len(Columns))
	for i, name := range Columns {
		m[name] = vals[i]
	}
	return m
}

// Matrix converts vectors into a rows×14 matrix in Columns order.
func Matrix(vectors []Vector) [][]float64 {
	rows := make([][]float64, len(vectors))
	for i, v := range vectors {
		rows[i] = v.Values()
	}
	return rows
}

package features

import (
	"math"

	"github.com/MrFaiman/student-personalizer/internal/school"
)

// Extractor builds feature vectors from raw records. AtRiskThreshold is
// the grade below which a subject counts as failing.
type Extractor struct {
	AtRiskThreshold float64
}

type gradeStats struct {
	sum     float64
	min     float64
	max     float64
	count   int
	failing int
	values  []float64 // in record order, for std and trend
}

type attendanceSums struct {
	absence          int
	absenceJustified int
	late             int
	disturbance      int
	totalAbsences    int
	totalNegative    int
	totalPositive    int
}

// Build produces exactly one Vector per student that has at least one
// grade record in scope. Students without grades are dropped; students
// without attendance rows keep zero-valued attendance features. Row order
// follows the student list.
func (e Extractor) Build(students []school.Student, grades []school.GradeRecord, attendance []school.AttendanceRecord) []Vector {
	byStudent := make(map[string]*gradeStats)
	for _, g := range grades {
		st, ok := byStudent[g.StudentTZ]
		if !ok {
			st = &gradeStats{min: math.Inf(1), max: math.Inf(-1)}
			byStudent[g.StudentTZ] = st
		}
		st.sum += g.Grade
		st.count++
		st.values = append(st.values, g.Grade)
		if g.Grade < st.min {
			st.min = g.Grade
		}
		if g.Grade > st.max {
			st.max = g.Grade
		}
		if g.Grade < e.AtRiskThreshold {
			st.failing++
		}
	}

	attByStudent := make(map[string]*attendanceSums)
	for _, a := range attendance {
		sums, ok := attByStudent[a.StudentTZ]
		if !ok {
			sums = &attendanceSums{}
			attByStudent[a.StudentTZ] = sums
		}
		sums.absence += a.Absence
		sums.absenceJustified += a.AbsenceJustified
		sums.late += a.Late
		sums.disturbance += a.Disturbance
		sums.totalAbsences += a.TotalAbsences
		sums.totalNegative += a.TotalNegativeEvents
		sums.totalPositive += a.TotalPositiveEvents
	}

	vectors := make([]Vector, 0, len(byStudent))
	for _, student := range students {
		st, ok := byStudent[student.TZ]
		if !ok {
			continue // no grades in scope: excluded entirely
		}

		v := Vector{
			StudentTZ:       student.TZ,
			StudentName:     student.Name,
			AverageGrade:    round2(st.sum / float64(st.count)),
			MinGrade:        st.min,
			MaxGrade:        st.max,
			GradeStd:        round2(populationStd(st.values)),
			GradeTrendSlope: round4(trendSlope(st.values)),
			NumSubjects:     st.count,
			FailingSubjects: st.failing,
		}

		if sums, ok := attByStudent[student.TZ]; ok {
			v.Absence = sums.absence
			v.AbsenceJustified = sums.absenceJustified
			v.Late = sums.late
			v.Disturbance = sums.disturbance
			v.TotalAbsences = sums.totalAbsences
			v.TotalNegativeEvents = sums.totalNegative
			v.TotalPositiveEvents = sums.totalPositive
		}

		vectors = append(vectors, v)
	}

	return vectors
}

// populationStd is the population standard deviation, 0 for fewer than
// two values.
func populationStd(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// trendSlope is the ordinary-least-squares slope of grade value against
// positional index 0..n-1, 0 for fewer than two points. The positional
// index stands in for time: the grade source guarantees insertion order.
func trendSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0.0
	}

	xMean := float64(n-1) / 2
	var yMean float64
	for _, v := range values {
		yMean += v
	}
	yMean /= float64(n)

	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	return num / den
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

package ml

import (
	"sort"

	"github.com/MrFaiman/student-personalizer/internal/features"
)

// DropoutLabels derives the binary dropout target for each feature row:
// 1 when the student is both underperforming (average below the at-risk
// threshold) and behaviorally flagged (negative events or absences above
// the cohort median). The medians are recomputed from the current
// population on every call, so a label is a property of (student, cohort
// at training time), not of the student alone.
func DropoutLabels(vectors []features.Vector, atRiskThreshold float64) []int {
	negatives := make([]float64, len(vectors))
	absences := make([]float64, len(vectors))
	for i, v := range vectors {
		negatives[i] = float64(v.TotalNegativeEvents)
		absences[i] = float64(v.TotalAbsences)
	}
	medianNegative := median(negatives)
	medianAbsences := median(absences)

	labels := make([]int, len(vectors))
	for i, v := range vectors {
		underperforming := v.AverageGrade < atRiskThreshold
		flagged := float64(v.TotalNegativeEvents) > medianNegative ||
			float64(v.TotalAbsences) > medianAbsences
		if underperforming && flagged {
			labels[i] = 1
		}
	}
	return labels
}

// median returns the middle value, averaging the two central values for
// even-length input.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

package ml

import (
	"testing"

	"github.com/MrFaiman/student-personalizer/internal/features"
)

func TestDropoutLabels(t *testing.T) {
	// Medians: negatives [0,2,4,12] -> 3, absences [1,2,5,10] -> 3.5.
	vectors := []features.Vector{
		{StudentTZ: "A", AverageGrade: 85, TotalNegativeEvents: 0, TotalAbsences: 1},   // fine
		{StudentTZ: "B", AverageGrade: 50, TotalNegativeEvents: 2, TotalAbsences: 2},   // low grades but not flagged
		{StudentTZ: "C", AverageGrade: 45, TotalNegativeEvents: 12, TotalAbsences: 10}, // flagged on both
		{StudentTZ: "D", AverageGrade: 90, TotalNegativeEvents: 4, TotalAbsences: 5},   // flagged but grades fine
	}

	labels := DropoutLabels(vectors, 55)
	want := []int{0, 0, 1, 0}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("%s: label %d, want %d", vectors[i].StudentTZ, labels[i], want[i])
		}
	}
}

func TestDropoutLabels_EitherFlagSuffices(t *testing.T) {
	// Medians: negatives [0,0,0,9] -> 0, absences [0,0,0,9] -> 0.
	vectors := []features.Vector{
		{StudentTZ: "A", AverageGrade: 40, TotalNegativeEvents: 9, TotalAbsences: 0},
		{StudentTZ: "B", AverageGrade: 40, TotalNegativeEvents: 0, TotalAbsences: 9},
		{StudentTZ: "C", AverageGrade: 40, TotalNegativeEvents: 0, TotalAbsences: 0},
		{StudentTZ: "D", AverageGrade: 80, TotalNegativeEvents: 0, TotalAbsences: 0},
	}

	labels := DropoutLabels(vectors, 55)
	want := []int{1, 1, 0, 0}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("%s: label %d, want %d", vectors[i].StudentTZ, labels[i], want[i])
		}
	}
}

func TestDropoutLabels_ThresholdIsExclusive(t *testing.T) {
	// Medians are 5, so both flagged students exceed them.
	vectors := []features.Vector{
		{StudentTZ: "A", AverageGrade: 55, TotalNegativeEvents: 10, TotalAbsences: 10},
		{StudentTZ: "B", AverageGrade: 54.99, TotalNegativeEvents: 10, TotalAbsences: 10},
		{StudentTZ: "C", AverageGrade: 90, TotalNegativeEvents: 0, TotalAbsences: 0},
		{StudentTZ: "D", AverageGrade: 90, TotalNegativeEvents: 0, TotalAbsences: 0},
	}

	labels := DropoutLabels(vectors, 55)
	if labels[0] != 0 {
		t.Error("average exactly at threshold must not be labeled")
	}
	if labels[1] != 1 {
		t.Error("average below threshold with flags must be labeled")
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd", []float64{3, 1, 2}, 2},
		{"even averages middles", []float64{1, 2, 3, 4}, 2.5},
		{"unsorted even", []float64{10, 1, 4, 2}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

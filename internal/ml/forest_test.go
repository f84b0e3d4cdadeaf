package ml

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/MrFaiman/student-personalizer/internal/cfg"
)

func smallParams() cfg.ForestParams {
	return cfg.ForestParams{
		Trees:           25,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Seed:            42,
	}
}

// Two well-separated clusters in feature 0; feature 1 is noise.
func separableData() ([][]float64, []int) {
	x := [][]float64{
		{1, 7}, {2, 3}, {1.5, 9}, {2.5, 1}, {1.2, 4},
		{10, 2}, {11, 8}, {10.5, 5}, {12, 3}, {11.5, 6},
	}
	labels := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	return x, labels
}

func TestFitClassifier_LearnsSeparableData(t *testing.T) {
	x, labels := separableData()
	f := FitClassifier(x, labels, smallParams())

	for i, row := range x {
		if got := f.predictClass(row); got != labels[i] {
			t.Errorf("row %d: predicted class %d, want %d", i, got, labels[i])
		}
	}

	low := f.PositiveProb([]float64{1.8, 5})
	high := f.PositiveProb([]float64{11, 5})
	if low >= 0.5 {
		t.Errorf("expected low positive probability near class 0 cluster, got %v", low)
	}
	if high <= 0.5 {
		t.Errorf("expected high positive probability near class 1 cluster, got %v", high)
	}
}

func TestFitRegressor_LearnsStepFunction(t *testing.T) {
	x := [][]float64{
		{1}, {2}, {3}, {4}, {5},
		{11}, {12}, {13}, {14}, {15},
	}
	y := []float64{10, 10, 10, 10, 10, 50, 50, 50, 50, 50}

	f := FitRegressor(x, y, smallParams())

	if got := f.Predict([]float64{3}); math.Abs(got-10) > 5 {
		t.Errorf("expected prediction near 10, got %v", got)
	}
	if got := f.Predict([]float64{13}); math.Abs(got-50) > 5 {
		t.Errorf("expected prediction near 50, got %v", got)
	}
}

func TestImportancesSumToOne(t *testing.T) {
	x, labels := separableData()
	f := FitClassifier(x, labels, smallParams())

	var sum float64
	for _, imp := range f.Importances {
		if imp < 0 {
			t.Errorf("negative importance %v", imp)
		}
		sum += imp
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", sum)
	}

	// Feature 0 separates the classes; feature 1 is noise.
	if f.Importances[0] <= f.Importances[1] {
		t.Errorf("expected feature 0 to dominate: %v", f.Importances)
	}
}

func TestPositiveProb_SingleClass(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}}
	labels := []int{0, 0, 0, 0, 0}

	f := FitClassifier(x, labels, smallParams())
	if got := f.PositiveProb([]float64{3}); got != 0.0 {
		t.Errorf("expected 0.0 for single-class model, got %v", got)
	}
}

func TestFit_Deterministic(t *testing.T) {
	x, labels := separableData()

	a := FitClassifier(x, labels, smallParams())
	b := FitClassifier(x, labels, smallParams())

	probe := []float64{6, 5}
	if a.PositiveProb(probe) != b.PositiveProb(probe) {
		t.Error("same seed produced different models")
	}
}

func TestForest_JSONRoundTrip(t *testing.T) {
	x, labels := separableData()
	f := FitClassifier(x, labels, smallParams())

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	loaded := &Forest{}
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	probe := []float64{11, 5}
	if loaded.PositiveProb(probe) != f.PositiveProb(probe) {
		t.Error("reloaded model disagrees with original")
	}
	if loaded.predictClass(probe) != f.predictClass(probe) {
		t.Error("reloaded class prediction disagrees with original")
	}
}

func TestResolveMaxFeatures(t *testing.T) {
	tests := []struct {
		configured, total, want int
	}{
		{0, 14, 14},  // all
		{-1, 14, 4},  // sqrt(14) rounds to 4
		{-1, 1, 1},   // floor at 1
		{3, 14, 3},   // explicit cap
		{20, 14, 14}, // cap above total falls back to all
	}
	for _, tt := range tests {
		if got := resolveMaxFeatures(tt.configured, tt.total); got != tt.want {
			t.Errorf("resolveMaxFeatures(%d, %d) = %d, want %d", tt.configured, tt.total, got, tt.want)
		}
	}
}

package ml

import (
	"testing"
)

func TestFoldCount(t *testing.T) {
	tests := []struct {
		folds, samples, want int
	}{
		{5, 100, 5}, // normal case
		{5, 3, 3},   // shrinks to sample count
		{5, 1, 2},   // clamped to 2
		{2, 10, 2},
	}
	for _, tt := range tests {
		if got := foldCount(tt.folds, tt.samples); got != tt.want {
			t.Errorf("foldCount(%d, %d) = %d, want %d", tt.folds, tt.samples, got, tt.want)
		}
	}
}

func TestFoldBounds(t *testing.T) {
	// 10 samples in 3 folds: first fold gets the extra element.
	bounds := foldBounds(10, 3)
	want := [][2]int{{0, 4}, {4, 7}, {7, 10}}
	if len(bounds) != len(want) {
		t.Fatalf("expected %d folds, got %d", len(want), len(bounds))
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("fold %d: %v, want %v", i, bounds[i], want[i])
		}
	}

	// Every sample must be covered exactly once.
	covered := 0
	for _, b := range bounds {
		covered += b[1] - b[0]
	}
	if covered != 10 {
		t.Errorf("folds cover %d samples, want 10", covered)
	}
}

func TestWithoutRange(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}, {4}}
	y := []float64{0, 1, 2, 3, 4}

	trainX, trainY := withoutRange(x, y, 1, 3)
	if len(trainX) != 3 || len(trainY) != 3 {
		t.Fatalf("expected 3 training rows, got %d/%d", len(trainX), len(trainY))
	}
	wantY := []float64{0, 3, 4}
	for i := range wantY {
		if trainY[i] != wantY[i] {
			t.Errorf("trainY[%d] = %v, want %v", i, trainY[i], wantY[i])
		}
	}
}

func TestCrossValAccuracy_SeparableData(t *testing.T) {
	x, labels := separableData()
	acc := crossValAccuracy(x, labels, smallParams(), 5)
	if acc < 0 || acc > 1 {
		t.Fatalf("accuracy %v out of [0,1]", acc)
	}
}

func TestCrossValMAE_NonNegative(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	y := []float64{10, 12, 14, 16, 18, 20, 22, 24}

	mae := crossValMAE(x, y, smallParams(), 4)
	if mae < 0 {
		t.Errorf("MAE %v is negative", mae)
	}
}

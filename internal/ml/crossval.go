package ml

import (
	"math"

	"github.com/MrFaiman/student-personalizer/internal/cfg"
)

// Cross-validation uses contiguous folds without shuffling, with k shrunk
// to the sample count so every fold is non-empty. The reported quality
// metrics are always out-of-sample: each fold is scored by a model that
// never saw it.

// crossValMAE returns the mean over folds of the mean absolute error of a
// regression forest refitted on the remaining folds.
func crossValMAE(x [][]float64, y []float64, p cfg.ForestParams, folds int) float64 {
	k := foldCount(folds, len(x))
	var total float64
	for _, fold := range foldBounds(len(x), k) {
		trainX, trainY := withoutRange(x, y, fold[0], fold[1])
		model := FitRegressor(trainX, trainY, p)

		var absErr float64
		for i := fold[0]; i < fold[1]; i++ {
			absErr += math.Abs(model.Predict(x[i]) - y[i])
		}
		total += absErr / float64(fold[1]-fold[0])
	}
	return total / float64(k)
}

// crossValAccuracy returns the mean over folds of the holdout accuracy of
// a classification forest refitted on the remaining folds.
func crossValAccuracy(x [][]float64, labels []int, p cfg.ForestParams, folds int) float64 {
	k := foldCount(folds, len(x))
	y := make([]float64, len(labels))
	for i, l := range labels {
		y[i] = float64(l)
	}

	var total float64
	for _, fold := range foldBounds(len(x), k) {
		trainX, trainY := withoutRange(x, y, fold[0], fold[1])
		trainLabels := make([]int, len(trainY))
		for i, v := range trainY {
			trainLabels[i] = int(v)
		}
		model := FitClassifier(trainX, trainLabels, p)

		correct := 0
		for i := fold[0]; i < fold[1]; i++ {
			if model.predictClass(x[i]) == labels[i] {
				correct++
			}
		}
		total += float64(correct) / float64(fold[1]-fold[0])
	}
	return total / float64(k)
}

// predictClass returns the class with the highest averaged probability.
func (f *Forest) predictClass(x []float64) int {
	probs := f.PredictProba(x)
	best, bestProb := 0, -1.0
	for i, p := range probs {
		if p > bestProb {
			bestProb = p
			best = i
		}
	}
	return f.Classes[best]
}

func foldCount(folds, samples int) int {
	k := folds
	if samples < k {
		k = samples
	}
	if k < 2 {
		k = 2
	}
	return k
}

// foldBounds splits [0,n) into k contiguous [start,end) ranges, the first
// n%k of them one element larger.
func foldBounds(n, k int) [][2]int {
	bounds := make([][2]int, 0, k)
	base := n / k
	extra := n % k
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		bounds = append(bounds, [2]int{start, start + size})
		start += size
	}
	return bounds
}

func withoutRange(x [][]float64, y []float64, start, end int) ([][]float64, []float64) {
	trainX := make([][]float64, 0, len(x)-(end-start))
	trainY := make([]float64, 0, len(y)-(end-start))
	for i := range x {
		if i >= start && i < end {
			continue
		}
		trainX = append(trainX, x[i])
		trainY = append(trainY, y[i])
	}
	return trainX, trainY
}

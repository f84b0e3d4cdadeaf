package ml

import (
	"math"
	"math/rand"
	"sort"

	"github.com/MrFaiman/student-personalizer/internal/cfg"
)

// Forest is a bagged ensemble of CART trees, fitted either as a regressor
// (variance splits, leaf means) or a classifier (gini splits, leaf class
// distributions). The whole model is JSON-serializable so artifacts can be
// loaded by another process without shared state.
type Forest struct {
	Task        string `json:"task"`
	NumFeatures int    `json:"num_features"`
	Classes     []int  `json:"classes,omitempty"`
	Trees       []tree `json:"trees"`
	// Importances is the normalized mean decrease in impurity per feature
	// column, averaged over trees.
	Importances []float64 `json:"importances"`
}

const (
	taskRegression     = "regression"
	taskClassification = "classification"
)

type tree struct {
	Nodes []node `json:"nodes"`
}

// node is one flattened tree node. Feature == -1 marks a leaf; internal
// nodes route x[Feature] <= Threshold to Left, otherwise Right.
type node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     float64   `json:"v,omitempty"`
	Dist      []float64 `json:"d,omitempty"`
}

// FitRegressor fits a bagged regression forest on X (rows×features)
// against continuous targets y.
func FitRegressor(x [][]float64, y []float64, p cfg.ForestParams) *Forest {
	return fit(x, y, nil, taskRegression, p)
}

// FitClassifier fits a bagged classification forest on X against integer
// labels. The class set is whatever labels appear in the training data; a
// single-class population yields a degenerate but valid model.
func FitClassifier(x [][]float64, labels []int, p cfg.ForestParams) *Forest {
	classes := uniqueSorted(labels)
	classIdx := make(map[int]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	y := make([]float64, len(labels))
	for i, l := range labels {
		y[i] = float64(classIdx[l])
	}
	f := fit(x, y, classes, taskClassification, p)
	return f
}

func fit(x [][]float64, y []float64, classes []int, task string, p cfg.ForestParams) *Forest {
	numFeatures := 0
	if len(x) > 0 {
		numFeatures = len(x[0])
	}

	f := &Forest{
		Task:        task,
		NumFeatures: numFeatures,
		Classes:     classes,
		Trees:       make([]tree, 0, p.Trees),
		Importances: make([]float64, numFeatures),
	}

	rng := rand.New(rand.NewSource(p.Seed))
	n := len(x)

	for t := 0; t < p.Trees; t++ {
		// Bootstrap sample with replacement.
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}

		b := &treeBuilder{
			x:           x,
			y:           y,
			numClasses:  len(classes),
			params:      p,
			rng:         rng,
			maxFeatures: resolveMaxFeatures(p.MaxFeatures, numFeatures),
			nTotal:      len(indices),
			importances: make([]float64, numFeatures),
		}
		b.build(indices, 0)
		f.Trees = append(f.Trees, tree{Nodes: b.nodes})

		// Per-tree importances are normalized before averaging, matching
		// the mean-decrease-in-impurity convention.
		normalize(b.importances)
		for i, imp := range b.importances {
			f.Importances[i] += imp
		}
	}

	for i := range f.Importances {
		f.Importances[i] /= float64(p.Trees)
	}
	normalize(f.Importances)

	return f
}

// Predict returns the regression output for one feature row: the mean of
// the per-tree leaf values.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.predictValue(x)
	}
	return sum / float64(len(f.Trees))
}

// PredictProba returns the averaged per-class probabilities for one
// feature row, in Classes order.
func (f *Forest) PredictProba(x []float64) []float64 {
	probs := make([]float64, len(f.Classes))
	for _, t := range f.Trees {
		dist := t.predictDist(x)
		for i, p := range dist {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(f.Trees))
	}
	return probs
}

// PositiveProb returns the probability of class 1. A classifier trained
// on a single-class label set has no defined positive-class column; that
// degenerate case is defined as 0.0 rather than an error.
func (f *Forest) PositiveProb(x []float64) float64 {
	if len(f.Classes) < 2 {
		return 0.0
	}
	probs := f.PredictProba(x)
	for i, c := range f.Classes {
		if c == 1 {
			return probs[i]
		}
	}
	return 0.0
}

func (t tree) predictValue(x []float64) float64 {
	n := t.walk(x)
	return n.Value
}

func (t tree) predictDist(x []float64) []float64 {
	n := t.walk(x)
	return n.Dist
}

func (t tree) walk(x []float64) node {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x           [][]float64
	y           []float64
	numClasses  int // 0 for regression
	params      cfg.ForestParams
	rng         *rand.Rand
	maxFeatures int
	nTotal      int
	importances []float64
	nodes       []node
}

// build grows the subtree for the given sample indices and returns the
// index of its root node.
func (b *treeBuilder) build(indices []int, depth int) int {
	imp := b.impurity(indices)

	if len(indices) < b.params.MinSamplesSplit ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		imp == 0 {
		return b.leaf(indices)
	}

	feature, threshold, gain, left, right := b.bestSplit(indices, imp)
	if feature < 0 {
		return b.leaf(indices)
	}

	b.importances[feature] += float64(len(indices)) / float64(b.nTotal) * gain

	// Reserve this node's slot before recursing so children land after it.
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx] = node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

func (b *treeBuilder) leaf(indices []int) int {
	n := node{Feature: -1}
	if b.numClasses > 0 {
		dist := make([]float64, b.numClasses)
		for _, i := range indices {
			dist[int(b.y[i])]++
		}
		for c := range dist {
			dist[c] /= float64(len(indices))
		}
		n.Dist = dist
	} else {
		var sum float64
		for _, i := range indices {
			sum += b.y[i]
		}
		n.Value = sum / float64(len(indices))
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, n)
	return idx
}

// impurity is variance for regression and gini for classification.
func (b *treeBuilder) impurity(indices []int) float64 {
	if b.numClasses > 0 {
		counts := make([]float64, b.numClasses)
		for _, i := range indices {
			counts[int(b.y[i])]++
		}
		gini := 1.0
		for _, c := range counts {
			p := c / float64(len(indices))
			gini -= p * p
		}
		return gini
	}

	var sum float64
	for _, i := range indices {
		sum += b.y[i]
	}
	mean := sum / float64(len(indices))
	var sq float64
	for _, i := range indices {
		d := b.y[i] - mean
		sq += d * d
	}
	return sq / float64(len(indices))
}

// bestSplit searches a random feature subset for the threshold with the
// largest impurity decrease. Returns feature -1 when no split satisfies
// the leaf-size constraint.
func (b *treeBuilder) bestSplit(indices []int, parentImp float64) (feature int, threshold, gain float64, left, right []int) {
	feature = -1

	perm := b.rng.Perm(len(b.importances))
	candidates := perm[:b.maxFeatures]

	type sampleValue struct {
		idx   int
		value float64
	}

	n := len(indices)
	for _, fIdx := range candidates {
		sorted := make([]sampleValue, n)
		for i, idx := range indices {
			sorted[i] = sampleValue{idx, b.x[idx][fIdx]}
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].value < sorted[j].value })

		for i := 1; i < n; i++ {
			if sorted[i].value == sorted[i-1].value {
				continue
			}
			if i < b.params.MinSamplesLeaf || n-i < b.params.MinSamplesLeaf {
				continue
			}

			leftIdx := make([]int, i)
			rightIdx := make([]int, n-i)
			for j := 0; j < i; j++ {
				leftIdx[j] = sorted[j].idx
			}
			for j := i; j < n; j++ {
				rightIdx[j-i] = sorted[j].idx
			}

			weighted := float64(i)/float64(n)*b.impurity(leftIdx) +
				float64(n-i)/float64(n)*b.impurity(rightIdx)
			g := parentImp - weighted
			if g > gain {
				gain = g
				feature = fIdx
				threshold = (sorted[i-1].value + sorted[i].value) / 2
				left = leftIdx
				right = rightIdx
			}
		}
	}

	return feature, threshold, gain, left, right
}

func resolveMaxFeatures(configured, total int) int {
	switch {
	case configured > 0 && configured < total:
		return configured
	case configured == -1:
		mf := int(math.Round(math.Sqrt(float64(total))))
		if mf < 1 {
			mf = 1
		}
		return mf
	default:
		return total
	}
}

func uniqueSorted(labels []int) []int {
	seen := make(map[int]bool)
	var classes []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Ints(classes)
	return classes
}

func normalize(values []float64) {
	var total float64
	for _, v := range values {
		total += v
	}
	if total == 0 {
		return
	}
	for i := range values {
		values[i] /= total
	}
}

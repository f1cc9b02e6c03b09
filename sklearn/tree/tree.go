// Package tree builds regression trees from first and second order
// gradients. The same builder backs DecisionTreeRegressor (squared loss from
// a zero prediction), the gradient boosting ensemble and the xgboost booster.
package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is a tree node. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
	Samples   int
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a flat array of nodes; node 0 is the root.
type Tree struct {
	Nodes []Node
}

// PredictRow walks the tree for one sample. Values <= Threshold go left.
func (t *Tree) PredictRow(row []float64) float64 {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.IsLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// Predict evaluates the tree for every row of X.
func (t *Tree) Predict(X mat.Matrix) []float64 {
	r, c := X.Dims()
	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out[i] = t.PredictRow(row)
	}
	return out
}

// Scale multiplies every leaf value by f.
func (t *Tree) Scale(f float64) {
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			t.Nodes[i].Value *= f
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(idx int) int
	walk = func(idx int) int {
		n := t.Nodes[idx]
		if n.IsLeaf() {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// NumLeaves counts the leaves.
func (t *Tree) NumLeaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

// BuilderParams controls tree growth.
type BuilderParams struct {
	// MaxDepth limits depth; <= 0 means unlimited.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may be split.
	MinSamplesSplit int
	// MinSamplesLeaf is the smallest allowed child.
	MinSamplesLeaf int
	// MinChildWeight is the smallest allowed hessian sum in a child.
	MinChildWeight float64
	// Lambda is the L2 penalty on leaf values.
	Lambda float64
	// Gamma is the minimum gain a split must reach.
	Gamma float64
}

// Builder grows one tree from gradients and hessians.
type Builder struct {
	Params BuilderParams

	X    *mat.Dense
	Grad []float64
	Hess []float64
}

// Build grows a tree over the given sample rows. A nil rows slice means all
// rows of X.
func (b *Builder) Build(rows []int) *Tree {
	if rows == nil {
		n, _ := b.X.Dims()
		rows = make([]int, n)
		for i := range rows {
			rows[i] = i
		}
	}
	t := &Tree{}
	b.grow(t, rows, 0)
	return t
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	found     bool
}

func (b *Builder) sums(rows []int) (g, h float64) {
	for _, i := range rows {
		g += b.Grad[i]
		h += b.Hess[i]
	}
	return g, h
}

func (b *Builder) leafValue(g, h float64) float64 {
	denom := h + b.Params.Lambda
	if denom <= 1e-12 {
		return 0
	}
	return -g / denom
}

func (b *Builder) score(g, h float64) float64 {
	denom := h + b.Params.Lambda
	if denom <= 1e-12 {
		return 0
	}
	return g * g / denom
}

func (b *Builder) grow(t *Tree, rows []int, depth int) int {
	idx := len(t.Nodes)
	g, h := b.sums(rows)
	t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Value: b.leafValue(g, h), Samples: len(rows)})

	minSplit := b.Params.MinSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}
	if (b.Params.MaxDepth > 0 && depth >= b.Params.MaxDepth) || len(rows) < minSplit {
		return idx
	}

	best := b.bestSplit(rows, g, h)
	if !best.found || best.gain <= b.Params.Gamma {
		return idx
	}

	var left, right []int
	for _, i := range rows {
		if b.X.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(t, left, depth+1)
	r := b.grow(t, right, depth+1)
	t.Nodes[idx].Feature = best.feature
	t.Nodes[idx].Threshold = best.threshold
	t.Nodes[idx].Gain = best.gain
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

func (b *Builder) bestSplit(rows []int, totalG, totalH float64) split {
	_, cols := b.X.Dims()
	best := split{gain: math.Inf(-1)}
	parent := b.score(totalG, totalH)

	minLeaf := b.Params.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	sorted := make([]int, len(rows))
	for f := 0; f < cols; f++ {
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool {
			return b.X.At(sorted[i], f) < b.X.At(sorted[j], f)
		})

		var lg, lh float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			lg += b.Grad[i]
			lh += b.Hess[i]

			v, next := b.X.At(i, f), b.X.At(sorted[k+1], f)
			if v == next {
				continue
			}
			nl, nr := k+1, len(sorted)-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rg, rh := totalG-lg, totalH-lh
			if lh < b.Params.MinChildWeight || rh < b.Params.MinChildWeight {
				continue
			}

			gain := 0.5 * (b.score(lg, lh) + b.score(rg, rh) - parent)
			if gain > best.gain {
				best = split{feature: f, threshold: (v + next) / 2, gain: gain, found: true}
			}
		}
	}
	return best
}

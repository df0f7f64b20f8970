package model

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"lutfit/internal/colorset"
)

// center is a basis function center, remembering its position in the
// correspondence set so weights can be looked up after a tree search.
type center struct {
	p   colorset.Point3
	idx int
}

// Compare implements kdtree.Comparable.
func (c center) Compare(o kdtree.Comparable, d kdtree.Dim) float64 {
	q := o.(center)
	return c.p[d] - q.p[d]
}

// Dims implements kdtree.Comparable.
func (c center) Dims() int { return 3 }

// Distance returns the squared euclidean distance.
func (c center) Distance(o kdtree.Comparable) float64 {
	return sqDist(c.p, o.(center).p)
}

type centers []center

func (c centers) Index(i int) kdtree.Comparable         { return c[i] }
func (c centers) Len() int                               { return len(c) }
func (c centers) Slice(start, end int) kdtree.Interface { return c[start:end] }

func (c centers) Pivot(d kdtree.Dim) int {
	p := plane{centers: c, Dim: d}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// plane sorts centers along one dimension for tree construction.
type plane struct {
	centers
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.centers[i].p[p.Dim] < p.centers[j].p[p.Dim]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{centers: p.centers[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.centers[i], p.centers[j] = p.centers[j], p.centers[i]
}

// centerTree answers fixed-radius neighbour queries over the source points.
type centerTree struct {
	tree *kdtree.Tree
}

func newCenterTree(points []colorset.Point3) *centerTree {
	cs := make(centers, len(points))
	for i, p := range points {
		cs[i] = center{p: p, idx: i}
	}
	// kdtree.New reorders cs; idx keeps the original position.
	return &centerTree{tree: kdtree.New(cs, false)}
}

// within calls fn for every center whose distance to p is at most radius.
// d2 is the squared distance.
func (t *centerTree) within(p colorset.Point3, radius float64, fn func(idx int, d2 float64)) {
	keep := kdtree.NewDistKeeper(radius * radius)
	t.tree.NearestSet(keep, center{p: p, idx: -1})
	for _, c := range keep.Heap {
		// The keeper seeds its heap with a sentinel holding no Comparable.
		if c.Comparable == nil {
			continue
		}
		fn(c.Comparable.(center).idx, c.Dist)
	}
}

func sqDist(a, b colorset.Point3) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}

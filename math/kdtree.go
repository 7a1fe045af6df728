// math/kdtree.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"slices"
)

// KDNode is a node in a 2D KD-tree over Point2LL locations; each node
// carries the index of the item it was built from.
type KDNode struct {
	Location Point2LL
	Index    int
	Left     *KDNode
	Right    *KDNode
}

// KDTree is a static 2D KD-tree that indexes a slice of items by their
// lat-long location.
type KDTree[T any] struct {
	Items []T
	root  *KDNode
}

// BuildKDTree constructs a balanced KD-tree for the given items; loc
// returns each item's location. The tree alternates splitting by X
// (longitude) and Y (latitude) at each level.
func BuildKDTree[T any](items []T, loc func(T) Point2LL) *KDTree[T] {
	nodes := make([]KDNode, len(items))
	for i, it := range items {
		nodes[i] = KDNode{Location: loc(it), Index: i}
	}
	return &KDTree[T]{
		Items: items,
		root:  buildKDTreeRecursive(nodes, 0),
	}
}

func buildKDTreeRecursive(nodes []KDNode, depth int) *KDNode {
	if len(nodes) == 0 {
		return nil
	}
	if len(nodes) == 1 {
		n := nodes[0]
		return &n
	}

	// Alternate between X (depth even) and Y (depth odd)
	axis := depth % 2

	// Sort by the splitting axis and find median; the stable sort keeps
	// ties in input order so that queries are deterministic.
	slices.SortStableFunc(nodes, func(a, b KDNode) int {
		if a.Location[axis] < b.Location[axis] {
			return -1
		} else if a.Location[axis] > b.Location[axis] {
			return 1
		}
		return 0
	})

	median := len(nodes) / 2
	n := nodes[median]
	n.Left = buildKDTreeRecursive(nodes[:median], depth+1)
	n.Right = buildKDTreeRecursive(nodes[median+1:], depth+1)
	return &n
}

// Len returns the number of items in the tree.
func (t *KDTree[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Items)
}

// InBox returns the indices of all items whose location is inside the
// given box, in ascending index order. Boxes that cross the antimeridian
// are handled by splitting them.
func (t *KDTree[T]) InBox(e Extent2D) []int {
	if t == nil || t.root == nil {
		return nil
	}
	var idx []int
	for _, b := range e.SplitLL() {
		idx = t.root.collect(b, 0, idx)
	}
	slices.Sort(idx)
	return slices.Compact(idx)
}

func (n *KDNode) collect(e Extent2D, depth int, idx []int) []int {
	if n == nil {
		return idx
	}
	if e.Inside(n.Location) {
		idx = append(idx, n.Index)
	}
	axis := depth % 2
	// Items equal to the median on the split axis may be on either side
	// after the sort, so both comparisons are inclusive.
	if e.P0[axis] <= n.Location[axis] {
		idx = n.Left.collect(e, depth+1, idx)
	}
	if e.P1[axis] >= n.Location[axis] {
		idx = n.Right.collect(e, depth+1, idx)
	}
	return idx
}

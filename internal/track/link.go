// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package track

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/mlnoga/multiscale/internal/octave"
)

// A detection as a k-d tree point. Distances are squared Euclidean, following
// the gonum kdtree convention
type node struct {
	x, y, r float64
	idx     int
}

func (p node) Dims() int { return 2 }

func (p node) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(node)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p node) Distance(c kdtree.Comparable) float64 {
	q := c.(node)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type nodes []node

func (s nodes) Index(i int) kdtree.Comparable         { return s[i] }
func (s nodes) Len() int                              { return len(s) }
func (s nodes) Slice(start, end int) kdtree.Interface { return s[start:end] }
func (s nodes) Pivot(d kdtree.Dim) int                { return plane{d, s}.Pivot() }

type plane struct {
	kdtree.Dim
	nodes
}

func (p plane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.nodes[i].x < p.nodes[j].x
	}
	return p.nodes[i].y < p.nodes[j].y
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.nodes = p.nodes[start:end]
	return p
}
func (p plane) Swap(i, j int) { p.nodes[i], p.nodes[j] = p.nodes[j], p.nodes[i] }

// Builds candidate links between the detections of two consecutive frames.
// Two detections may link when their distance stays within factor times the sum
// of their blob radii; candidates come from a k-d tree range query over the
// previous frame. The returned links are unsorted and not yet one-to-one;
// TrajIndex.AddFrame resolves them greedily by distance
func LinkFrames(prev, next []octave.Center, factor float64) []Link {
	if len(prev) == 0 || len(next) == 0 {
		return nil
	}
	ps := make(nodes, len(prev))
	maxPrevR := 0.0
	for i, c := range prev {
		ps[i] = node{x: float64(c.X), y: float64(c.Y), r: float64(c.R), idx: i}
		if float64(c.R) > maxPrevR {
			maxPrevR = float64(c.R)
		}
	}
	tree := kdtree.New(ps, false)
	var links []Link
	for j, c := range next {
		q := node{x: float64(c.X), y: float64(c.Y), r: float64(c.R), idx: j}
		tol := factor * (q.r + maxPrevR)
		keep := kdtree.NewDistKeeper(tol * tol)
		tree.NearestSet(keep, q)
		for _, hit := range keep.Heap {
			if hit.Comparable == nil {
				continue
			}
			p := hit.Comparable.(node)
			pairTol := factor * (q.r + p.r)
			if hit.Dist <= pairTol*pairTol {
				links = append(links, Link{From: p.idx, To: j, Distance: math.Sqrt(hit.Dist)})
			}
		}
	}
	return links
}

// Links a whole sequence of frames into a trajectory index
func LinkSequence(frames [][]octave.Center, factor float64) (*TrajIndex, error) {
	if len(frames) == 0 {
		return NewTrajIndex(0), nil
	}
	ti := NewTrajIndex(len(frames[0]))
	for t := 1; t < len(frames); t++ {
		links := LinkFrames(frames[t-1], frames[t], factor)
		if err := ti.AddFrame(len(frames[t]), links); err != nil {
			return nil, err
		}
	}
	return ti, nil
}

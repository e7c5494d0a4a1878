// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"sort"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// Cluster partitions the cells in the rows of scores into communities. A
// symmetric k-nearest neighbour graph is constructed from the Euclidean
// distances between cells with edges weighted 1/(1+d), and communities
// are found by Louvain modularity optimisation at the given resolution
// using a random source seeded with seed.
//
// The returned labels hold the cluster of each cell. Clusters are
// numbered from zero in decreasing order of size, with ties ordered by
// their lowest cell index.
func Cluster(scores *mat.Dense, k int, resolution float64, seed uint64) []int {
	if scores == nil {
		return nil
	}
	n, _ := scores.Dims()
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}

	type neighbour struct {
		id   int
		dist float64
	}
	near := make([]neighbour, 0, n)
	for i := 0; i < n; i++ {
		near = near[:0]
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			near = append(near, neighbour{id: j, dist: floats.Distance(scores.RawRowView(i), scores.RawRowView(j), 2)})
		}
		sort.Slice(near, func(a, b int) bool {
			if near[a].dist == near[b].dist {
				return near[a].id < near[b].id
			}
			return near[a].dist < near[b].dist
		})
		if len(near) > k {
			near = near[:k]
		}
		for _, nb := range near {
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(nb.id), 1/(1+nb.dist)))
		}
	}

	reduced := community.Modularize(g, resolution, rand.NewSource(seed))
	communities := reduced.Communities()
	ordered := make([][]int, 0, len(communities))
	for _, members := range communities {
		if len(members) == 0 {
			continue
		}
		ids := make([]int, len(members))
		for i, m := range members {
			ids[i] = int(m.ID())
		}
		sort.Ints(ids)
		ordered = append(ordered, ids)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i][0] < ordered[j][0]
	})

	labels := make([]int, n)
	for c, ids := range ordered {
		for _, id := range ids {
			labels[id] = c
		}
	}
	return labels
}

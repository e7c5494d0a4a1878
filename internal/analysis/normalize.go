// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kortschak/scfshd/internal/counts"
)

// DefaultScale is the library size each cell is scaled to by Normalize.
const DefaultScale = 1e4

// Normalize returns the log-normalized expression of m. Each cell's counts
// are divided by the cell's total count, multiplied by scale and then
// transformed with log1p. Cells with no counts are left at zero. Rows and
// columns of the result correspond to those of m.
func Normalize(m *counts.Matrix, scale float64) *mat.Dense {
	if m.Counts == nil {
		return nil
	}
	totals := m.Totals()
	r, c := m.Counts.Dims()
	norm := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		src := m.Counts.RawRowView(i)
		dst := norm.RawRowView(i)
		for j, v := range src {
			if totals[j] == 0 {
				continue
			}
			dst[j] = math.Log1p(v / totals[j] * scale)
		}
	}
	return norm
}

// VariableGenes returns the indices of the n rows of norm with the highest
// variance in decreasing order of variance. Ties are broken by row index.
func VariableGenes(norm *mat.Dense, n int) []int {
	if norm == nil {
		return nil
	}
	r, _ := norm.Dims()
	variance := make([]float64, r)
	rows := make([]int, r)
	for i := range rows {
		rows[i] = i
		_, variance[i] = stat.MeanVariance(norm.RawRowView(i), nil)
		if math.IsNaN(variance[i]) {
			variance[i] = 0
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return variance[rows[i]] > variance[rows[j]] })
	if n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

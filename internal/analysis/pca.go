// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reduction is the result of a principal components analysis of cells.
type Reduction struct {
	// Genes is the set of rows of the
	// normalized matrix used.
	Genes []int

	// Scores holds the cell scores in
	// rows for each retained component.
	Scores *mat.Dense

	// Vars is the complete set of
	// component variances in descending
	// order.
	Vars []float64

	// OptimalRank is the optimal hard
	// threshold rank of the centered data
	// calculated according to the method
	// of Matan Gavish and David L. Donoho
	// https://arxiv.org/abs/1305.5870.
	OptimalRank int
}

// PCA performs a principal components analysis of the cells of norm using
// the genes in the given rows and returns the scores of the first k
// components. If k is larger than the number of available components, all
// components are retained.
func PCA(norm *mat.Dense, rows []int, k int) (*Reduction, error) {
	if norm == nil || len(rows) == 0 {
		return nil, errors.New("analysis: no genes for principal components")
	}
	_, n := norm.Dims()
	if n < 2 {
		return nil, errors.New("analysis: too few cells for principal components")
	}
	d := len(rows)

	// Cells are observations.
	x := mat.NewDense(n, d, nil)
	for c, r := range rows {
		for j, v := range norm.RawRowView(r) {
			x.Set(j, c, v)
		}
	}

	var pc stat.PC
	ok := pc.PrincipalComponents(x, nil)
	if !ok {
		return nil, errors.New("analysis: could not factorise expression matrix")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, avail := vecs.Dims()
	if k > avail || k <= 0 {
		k = avail
	}

	for c := 0; c < d; c++ {
		col := mat.Col(nil, c, x)
		mean := stat.Mean(col, nil)
		for j := range col {
			x.Set(j, c, col[j]-mean)
		}
	}
	scores := mat.NewDense(n, k, nil)
	scores.Mul(x, vecs.Slice(0, d, 0, k))

	sigma := make([]float64, len(vars))
	for i, v := range vars {
		sigma[i] = math.Sqrt(v * float64(n-1))
	}

	return &Reduction{
		Genes:       append([]int(nil), rows...),
		Scores:      scores,
		Vars:        vars,
		OptimalRank: idxBelow(tau(n, d, sigma), sigma),
	}, nil
}

func idxBelow(thresh float64, s []float64) int {
	for i, v := range s {
		if v < thresh {
			return i
		}
	}
	return len(s)
}

// https://arxiv.org/abs/1305.5870 Eq. 4.
func tau(rows, cols int, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[len(values)-1-i] = v
	}
	m := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return omega(rows, cols) * m
}

// https://arxiv.org/abs/1305.5870 Eq. 5.
func omega(rows, cols int) float64 {
	beta := float64(rows) / float64(cols)
	if beta > 1 {
		beta = 1 / beta
	}
	beta2 := beta * beta
	return 0.56*beta2*beta - 0.95*beta2 + 1.82*beta + 1.43
}

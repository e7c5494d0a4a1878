// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Difference is the differential expression of a gene between two groups
// of cells.
type Difference struct {
	Gene      string `csv:"gene"`
	Accession string `csv:"accession"`

	// MeanA and MeanB are the mean
	// log-normalized expression in the
	// two groups.
	MeanA float64 `csv:"meanA"`
	MeanB float64 `csv:"meanB"`

	// Log2FC is the log2 fold change of
	// the mean de-logged expression of
	// group A over group B with a
	// pseudocount of one.
	Log2FC float64 `csv:"log2FC"`

	// T and DF are the Welch t statistic
	// and its degrees of freedom.
	T  float64 `csv:"t"`
	DF float64 `csv:"df"`

	P    float64 `csv:"p"`
	PAdj float64 `csv:"pAdj"`
}

// ErrTooFewCells is returned by DifferentialExpression when either group
// has fewer than two cells.
var ErrTooFewCells = errors.New("analysis: too few cells for comparison")

// DifferentialExpression performs a Welch two-sample t-test for each gene
// in the rows of norm between cells whose group label is a and cells whose
// label is b. Cells with other labels are ignored. P-values are adjusted
// with the Benjamini-Hochberg procedure and the results are sorted by
// adjusted p-value, then by gene.
func DifferentialExpression(norm *mat.Dense, genes, accessions, group []string, a, b string) ([]Difference, error) {
	if norm == nil {
		return nil, fmt.Errorf("analysis: no expression data")
	}
	r, c := norm.Dims()
	if len(genes) != r || len(accessions) != r || len(group) != c {
		return nil, fmt.Errorf("analysis: label length mismatch")
	}
	var inA, inB []int
	for j, g := range group {
		switch g {
		case a:
			inA = append(inA, j)
		case b:
			inB = append(inB, j)
		}
	}
	if len(inA) < 2 || len(inB) < 2 {
		return nil, fmt.Errorf("%w: %s=%d %s=%d", ErrTooFewCells, a, len(inA), b, len(inB))
	}

	diffs := make([]Difference, r)
	p := make([]float64, r)
	xa := make([]float64, len(inA))
	xb := make([]float64, len(inB))
	for i := 0; i < r; i++ {
		row := norm.RawRowView(i)
		for k, j := range inA {
			xa[k] = row[j]
		}
		for k, j := range inB {
			xb[k] = row[j]
		}
		t, df, pv := welch(xa, xb)
		meanA := stat.Mean(xa, nil)
		meanB := stat.Mean(xb, nil)
		diffs[i] = Difference{
			Gene:      genes[i],
			Accession: accessions[i],
			MeanA:     meanA,
			MeanB:     meanB,
			Log2FC:    math.Log2(meanExpm1(xa)+1) - math.Log2(meanExpm1(xb)+1),
			T:         t,
			DF:        df,
			P:         pv,
		}
		p[i] = pv
	}
	for i, q := range adjust(p) {
		diffs[i].PAdj = q
	}
	sort.SliceStable(diffs, func(i, j int) bool {
		if diffs[i].PAdj != diffs[j].PAdj {
			return diffs[i].PAdj < diffs[j].PAdj
		}
		return diffs[i].Gene < diffs[j].Gene
	})
	return diffs, nil
}

// welch returns the Welch t statistic, the Welch-Satterthwaite degrees
// of freedom and the two-sided p-value for the difference in means of
// a and b. Samples with no variance have a p-value of 1 when their means
// are equal and 0 otherwise.
func welch(a, b []float64) (t, df, p float64) {
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))
	sa, sb := va/na, vb/nb
	se := math.Sqrt(sa + sb)
	if se == 0 {
		if ma == mb {
			return 0, na + nb - 2, 1
		}
		return math.Copysign(math.Inf(1), ma-mb), na + nb - 2, 0
	}
	t = (ma - mb) / se
	df = (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	return t, df, math.Min(p, 1)
}

func meanExpm1(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += math.Expm1(v)
	}
	return sum / float64(len(x))
}

// adjust returns the Benjamini-Hochberg adjusted values of the p-values
// in p in the same order.
func adjust(p []float64) []float64 {
	n := len(p)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return p[idx[i]] < p[idx[j]] })
	q := make([]float64, n)
	min := 1.0
	for rank := n; rank > 0; rank-- {
		i := idx[rank-1]
		v := p[i] * float64(n) / float64(rank)
		if v < min {
			min = v
		}
		q[i] = min
	}
	return q
}

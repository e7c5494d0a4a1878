// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package analysis implements the downstream analysis of a merged
// single-cell dataset: quality control, normalization, dimensionality
// reduction, clustering, differential expression between conditions and
// gene set over-representation.
package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"

	"github.com/kortschak/scfshd/internal/sample"
)

// MitoPrefix is the symbol prefix of mitochondrially encoded genes.
const MitoPrefix = "MT-"

// CellQC holds the quality control metrics for a single cell.
type CellQC struct {
	Cell      string  `csv:"cell"`
	Sample    string  `csv:"sample"`
	Condition string  `csv:"condition"`
	NFeature  int     `csv:"nFeature"`
	NCount    float64 `csv:"nCount"`

	// Mito is the fraction of the cell's
	// counts from mitochondrial genes.
	Mito float64 `csv:"mito"`
}

// QCOptions specifies the cell quality thresholds. Retained cells have
// MinFeatures < NFeature < MaxFeatures and Mito < MaxMito.
type QCOptions struct {
	MinFeatures int
	MaxFeatures int
	MaxMito     float64
}

// DefaultQCOptions are the default cell quality thresholds.
var DefaultQCOptions = QCOptions{MinFeatures: 200, MaxFeatures: 6000, MaxMito: 0.10}

// QC returns the quality control metrics for each cell in d.
func QC(d *sample.Dataset) []CellQC {
	m := d.Matrix
	_, nFeature := m.Detected()
	nCount := m.Totals()
	mito := make([]float64, len(m.Cells))
	if m.Counts != nil {
		for i, g := range m.Genes {
			if !strings.HasPrefix(g, MitoPrefix) {
				continue
			}
			for j, v := range m.Counts.RawRowView(i) {
				mito[j] += v
			}
		}
	}

	metrics := make([]CellQC, len(m.Cells))
	for j, c := range m.Cells {
		var frac float64
		if nCount[j] != 0 {
			frac = mito[j] / nCount[j]
		}
		metrics[j] = CellQC{
			Cell:      c,
			Sample:    d.SampleNames[j],
			Condition: d.Conditions[j],
			NFeature:  nFeature[j],
			NCount:    nCount[j],
			Mito:      frac,
		}
	}
	return metrics
}

// FilterCells returns the cells of d and their metrics that pass the
// thresholds in opts. If no cell passes, a *sample.EmptySampleError is
// returned.
func FilterCells(d *sample.Dataset, metrics []CellQC, opts QCOptions) (*sample.Dataset, []CellQC, error) {
	if len(metrics) != len(d.Matrix.Cells) {
		return nil, nil, fmt.Errorf("analysis: metrics length mismatch: %d != %d", len(metrics), len(d.Matrix.Cells))
	}
	var (
		cols []int
		kept []CellQC
	)
	for j, q := range metrics {
		if opts.MinFeatures < q.NFeature && q.NFeature < opts.MaxFeatures && q.Mito < opts.MaxMito {
			cols = append(cols, j)
			kept = append(kept, q)
		}
	}
	if len(cols) == 0 {
		return nil, nil, &sample.EmptySampleError{Name: strings.Join(d.Samples, "+"), Genes: len(d.Matrix.Genes)}
	}
	return d.SubsetCells(cols), kept, nil
}

// SummarizeQC writes the median and 5th and 95th percentiles of each QC
// metric to w, followed by a terminal histogram of its distribution.
func SummarizeQC(w io.Writer, metrics []CellQC) error {
	if len(metrics) == 0 {
		_, err := fmt.Fprintln(w, "no cells")
		return err
	}
	nFeature := make(stats.Float64Data, len(metrics))
	nCount := make(stats.Float64Data, len(metrics))
	mito := make(stats.Float64Data, len(metrics))
	for i, q := range metrics {
		nFeature[i] = float64(q.NFeature)
		nCount[i] = q.NCount
		mito[i] = q.Mito
	}
	for _, metric := range []struct {
		name string
		data stats.Float64Data
	}{
		{name: "nFeature", data: nFeature},
		{name: "nCount", data: nCount},
		{name: "mito", data: mito},
	} {
		med, err := stats.Median(metric.data)
		if err != nil {
			return err
		}
		lo, err := stats.PercentileNearestRank(metric.data, 5)
		if err != nil {
			return err
		}
		hi, err := stats.PercentileNearestRank(metric.data, 95)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s: median=%g p5=%g p95=%g\n", metric.name, med, lo, hi)
		if err != nil {
			return err
		}
		h := histogram.Hist(20, metric.data)
		err = histogram.Fprint(w, h, histogram.Linear(40))
		if err != nil {
			return err
		}
	}
	return nil
}

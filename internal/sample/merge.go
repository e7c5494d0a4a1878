// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sample

import (
	"fmt"
	"sort"

	"github.com/kortschak/scfshd/internal/counts"
	"github.com/kortschak/scfshd/internal/genesym"
)

// Dataset is the union of a set of samples.
type Dataset struct {
	// Samples is the names of the merged
	// samples in input order.
	Samples []string

	// Matrix holds the merged counts. Rows
	// are the union of sample genes and
	// columns are the cells of all samples.
	Matrix *counts.Matrix

	// Accessions holds the source gene
	// accession for each row of Matrix.
	Accessions []string

	// SampleNames, Conditions and Source
	// hold per-cell metadata. Source is
	// the index into Samples of the cell's
	// originating sample.
	SampleNames []string
	Conditions  []string
	Source      []int
}

// InsufficientInputError is returned when too few samples are provided
// to Merge.
type InsufficientInputError struct {
	N int
}

func (e *InsufficientInputError) Error() string {
	return fmt.Sprintf("sample: insufficient input for merge: %d samples", e.N)
}

// Merge returns the union of the provided samples. Merge accepts a single
// sample and returns an *InsufficientInputError when no sample is given.
//
// Genes are aligned on their accessions and genes absent from a sample
// have zero counts for that sample's cells. Rows are kept in first-seen
// order. Gene symbols are chosen by genesym.Unique over the lexically
// sorted union of accessions, so an accession is given the same symbol
// regardless of the order of samples. Cells are kept in input order.
// Cell identifiers that occur in more than one sample are prefixed with
// their sample name and an underscore.
func Merge(samples ...*Sample) (*Dataset, error) {
	if len(samples) < 1 {
		return nil, &InsufficientInputError{N: len(samples)}
	}

	accIdx := make(map[string]int)
	var accessions []string
	known := make(map[string]string)
	cellCount := make(map[string]int)
	var nCells int
	for _, s := range samples {
		for _, acc := range s.Accessions {
			if _, ok := accIdx[acc]; ok {
				continue
			}
			accIdx[acc] = len(accessions)
			accessions = append(accessions, acc)
			if sym, ok := s.Symbols[acc]; ok {
				known[acc] = sym
			}
		}
		for _, c := range s.Matrix.Cells {
			cellCount[c]++
		}
		nCells += len(s.Matrix.Cells)
	}
	sorted := append([]string(nil), accessions...)
	sort.Strings(sorted)
	genes := genesym.Relabel(genesym.Unique(sorted, known), accessions)

	d := &Dataset{
		Samples:     make([]string, len(samples)),
		Accessions:  accessions,
		SampleNames: make([]string, 0, nCells),
		Conditions:  make([]string, 0, nCells),
		Source:      make([]int, 0, nCells),
	}
	cells := make([]string, 0, nCells)
	seen := make(map[string]bool, nCells)
	for k, s := range samples {
		d.Samples[k] = s.Name
		for _, c := range s.Matrix.Cells {
			if cellCount[c] > 1 {
				c = s.Name + "_" + c
			}
			if seen[c] {
				return nil, fmt.Errorf("sample: cell identifier %q is not unique after disambiguation", c)
			}
			seen[c] = true
			cells = append(cells, c)
			d.SampleNames = append(d.SampleNames, s.Name)
			d.Conditions = append(d.Conditions, s.Condition)
			d.Source = append(d.Source, k)
		}
	}

	d.Matrix = counts.New(genes, cells, nil)
	if d.Matrix.Counts == nil {
		return d, nil
	}
	var offset int
	for _, s := range samples {
		for i, acc := range s.Accessions {
			if s.Matrix.Counts == nil {
				break
			}
			dst := d.Matrix.Counts.RawRowView(accIdx[acc])[offset:]
			copy(dst, s.Matrix.Counts.RawRowView(i))
		}
		offset += len(s.Matrix.Cells)
	}
	return d, nil
}

// Sort returns a copy of d with samples, genes and cells sorted lexically
// by identifier.
func (d *Dataset) Sort() *Dataset {
	rows := span(len(d.Matrix.Genes))
	sort.SliceStable(rows, func(i, j int) bool { return d.Matrix.Genes[rows[i]] < d.Matrix.Genes[rows[j]] })
	cols := span(len(d.Matrix.Cells))
	sort.SliceStable(cols, func(i, j int) bool { return d.Matrix.Cells[cols[i]] < d.Matrix.Cells[cols[j]] })
	order := span(len(d.Samples))
	sort.SliceStable(order, func(i, j int) bool { return d.Samples[order[i]] < d.Samples[order[j]] })
	source := make([]int, len(order))
	for k, o := range order {
		source[o] = k
	}

	s := &Dataset{
		Samples:     make([]string, len(order)),
		Matrix:      d.Matrix.Subset(rows, cols),
		Accessions:  make([]string, len(rows)),
		SampleNames: make([]string, len(cols)),
		Conditions:  make([]string, len(cols)),
		Source:      make([]int, len(cols)),
	}
	for k, o := range order {
		s.Samples[k] = d.Samples[o]
	}
	for i, r := range rows {
		s.Accessions[i] = d.Accessions[r]
	}
	for j, c := range cols {
		s.SampleNames[j] = d.SampleNames[c]
		s.Conditions[j] = d.Conditions[c]
		s.Source[j] = source[d.Source[c]]
	}
	return s
}

// SubsetCells returns a copy of d holding only the given cell columns in
// the order they are specified. All genes and samples are retained.
func (d *Dataset) SubsetCells(cols []int) *Dataset {
	s := &Dataset{
		Samples:     append([]string(nil), d.Samples...),
		Matrix:      d.Matrix.Subset(span(len(d.Matrix.Genes)), cols),
		Accessions:  append([]string(nil), d.Accessions...),
		SampleNames: make([]string, len(cols)),
		Conditions:  make([]string, len(cols)),
		Source:      make([]int, len(cols)),
	}
	for j, c := range cols {
		s.SampleNames[j] = d.SampleNames[c]
		s.Conditions[j] = d.Conditions[c]
		s.Source[j] = d.Source[c]
	}
	return s
}

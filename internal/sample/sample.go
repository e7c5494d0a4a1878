// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sample loads per-sample single-cell count matrices, annotates
// them with gene symbols and merges them into a single dataset.
package sample

import (
	"context"
	"fmt"
	"strings"

	"github.com/kortschak/scfshd/internal/counts"
	"github.com/kortschak/scfshd/internal/genesym"
)

// Condition labels.
const (
	FSHD    = "FSHD"
	Control = "Control"
)

// Condition returns the disease condition encoded in a sample name.
// Names containing "FSHD" are FSHD samples, all others are controls.
func Condition(name string) string {
	if strings.Contains(name, FSHD) {
		return FSHD
	}
	return Control
}

// Options specifies the minimal quality filters applied when loading
// a sample.
type Options struct {
	// MinCells is the minimum number of
	// cells a gene must be detected in.
	MinCells int

	// MinFeatures is the minimum number of
	// genes that must be detected in a cell.
	MinFeatures int

	// Comma is the field delimiter of the
	// count file. If zero, it is detected.
	Comma rune
}

// DefaultOptions are the filter options used for loading FSHD myocyte
// samples.
var DefaultOptions = Options{MinCells: 3, MinFeatures: 200}

// Sample is an annotated and filtered count matrix for a single sample.
type Sample struct {
	// Name is the name of the sample and
	// Condition is derived from it.
	Name      string
	Condition string

	// Matrix holds the counts with gene
	// symbols as row labels.
	Matrix *counts.Matrix

	// Accessions holds the source gene
	// accession for each row of Matrix.
	Accessions []string

	// Symbols holds the symbol resolved for
	// each accession before suffixing. It
	// is used to choose unique symbols for
	// merged data. Accessions without a
	// symbol are absent.
	Symbols map[string]string
}

// EmptySampleError is returned when filtering removes all genes or all
// cells from a sample.
type EmptySampleError struct {
	Name         string
	Genes, Cells int
}

func (e *EmptySampleError) Error() string {
	return fmt.Sprintf("sample: %s is empty after filtering: %d genes x %d cells", e.Name, e.Genes, e.Cells)
}

// Load returns the sample named name read from the count matrix at path.
// Gene accessions are replaced with symbols obtained from r, then cells
// with fewer than opts.MinFeatures detected genes are removed, followed
// by genes detected in fewer than opts.MinCells of the remaining cells.
func Load(ctx context.Context, path, name string, r genesym.Resolver, opts Options) (*Sample, error) {
	m, err := counts.ReadFile(ctx, path, opts.Comma)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", name, err)
	}

	accessions := m.Genes
	known, err := genesym.Lookup(ctx, r, accessions)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", name, err)
	}
	err = m.Relabel(genesym.Relabel(genesym.Unique(accessions, known), accessions))
	if err != nil {
		return nil, err
	}

	m, accessions = filter(m, accessions, opts)
	if g, c := m.Dims(); g == 0 || c == 0 {
		return nil, &EmptySampleError{Name: name, Genes: g, Cells: c}
	}

	symbols := make(map[string]string)
	for _, acc := range accessions {
		if sym := known[acc]; sym != "" {
			symbols[acc] = sym
		}
	}
	return &Sample{
		Name:       name,
		Condition:  Condition(name),
		Matrix:     m,
		Accessions: accessions,
		Symbols:    symbols,
	}, nil
}

// filter returns the subset of m and its accessions that satisfy the
// detection thresholds in opts.
func filter(m *counts.Matrix, accessions []string, opts Options) (*counts.Matrix, []string) {
	_, genesPerCell := m.Detected()
	var cols []int
	for j, n := range genesPerCell {
		if n >= opts.MinFeatures {
			cols = append(cols, j)
		}
	}
	m = m.Subset(span(len(m.Genes)), cols)

	cellsPerGene, _ := m.Detected()
	var (
		rows []int
		kept []string
	)
	for i, n := range cellsPerGene {
		if n >= opts.MinCells {
			rows = append(rows, i)
			kept = append(kept, accessions[i])
		}
	}
	return m.Subset(rows, span(len(m.Cells))), kept
}

// span returns the indices [0, n).
func span(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

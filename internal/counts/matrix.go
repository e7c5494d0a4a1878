// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package counts implements reading and writing of labelled molecule count
// matrices with genes in rows and cells in columns.
package counts

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a labelled count matrix. Rows correspond to genes and columns
// correspond to cells.
type Matrix struct {
	// Genes and Cells are the row and
	// column labels of Counts.
	Genes []string
	Cells []string

	// Counts holds the molecule counts.
	// Counts is nil when the matrix has
	// no genes or no cells.
	Counts *mat.Dense
}

// New returns a Matrix with the given labels and row-major data. If data
// is nil, a zeroed matrix is allocated.
func New(genes, cells []string, data []float64) *Matrix {
	m := &Matrix{Genes: genes, Cells: cells}
	if len(genes) != 0 && len(cells) != 0 {
		m.Counts = mat.NewDense(len(genes), len(cells), data)
	}
	return m
}

// Dims returns the number of genes and cells in the matrix.
func (m *Matrix) Dims() (genes, cells int) {
	return len(m.Genes), len(m.Cells)
}

// At returns the count for the gene at row i in the cell at column j.
func (m *Matrix) At(i, j int) float64 {
	return m.Counts.At(i, j)
}

// Relabel replaces the gene labels of the matrix.
func (m *Matrix) Relabel(genes []string) error {
	if len(genes) != len(m.Genes) {
		return fmt.Errorf("counts: label length mismatch: %d != %d", len(genes), len(m.Genes))
	}
	m.Genes = genes
	return nil
}

// Detected returns the number of cells each gene is detected in and the
// number of genes detected in each cell. A gene is detected in a cell
// when its count is non-zero.
func (m *Matrix) Detected() (cellsPerGene, genesPerCell []int) {
	cellsPerGene = make([]int, len(m.Genes))
	genesPerCell = make([]int, len(m.Cells))
	if m.Counts == nil {
		return cellsPerGene, genesPerCell
	}
	for i := range m.Genes {
		row := m.Counts.RawRowView(i)
		for j, v := range row {
			if v == 0 {
				continue
			}
			cellsPerGene[i]++
			genesPerCell[j]++
		}
	}
	return cellsPerGene, genesPerCell
}

// Totals returns the total count for each cell.
func (m *Matrix) Totals() []float64 {
	totals := make([]float64, len(m.Cells))
	if m.Counts == nil {
		return totals
	}
	for i := range m.Genes {
		for j, v := range m.Counts.RawRowView(i) {
			totals[j] += v
		}
	}
	return totals
}

// Subset returns a new matrix holding the given rows and columns of m in
// the order they are specified.
func (m *Matrix) Subset(rows, cols []int) *Matrix {
	genes := make([]string, len(rows))
	for i, r := range rows {
		genes[i] = m.Genes[r]
	}
	cells := make([]string, len(cols))
	for j, c := range cols {
		cells[j] = m.Cells[c]
	}
	dst := New(genes, cells, nil)
	if dst.Counts == nil {
		return dst
	}
	for i, r := range rows {
		src := m.Counts.RawRowView(r)
		row := dst.Counts.RawRowView(i)
		for j, c := range cols {
			row[j] = src[c]
		}
	}
	return dst
}

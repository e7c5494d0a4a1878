// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// CellRecord is the per-cell metadata row written to cell tables.
type CellRecord struct {
	Cell      string  `csv:"cell"`
	Sample    string  `csv:"sample"`
	Condition string  `csv:"condition"`
	NFeature  int     `csv:"nFeature"`
	NCount    float64 `csv:"nCount"`
	Mito      float64 `csv:"mito"`
	Cluster   int     `csv:"cluster"`
}

// CellRecords returns the cell table rows for the given metrics and
// cluster labels.
func CellRecords(metrics []CellQC, clusters []int) ([]CellRecord, error) {
	if len(clusters) != len(metrics) {
		return nil, fmt.Errorf("analysis: cluster length mismatch: %d != %d", len(clusters), len(metrics))
	}
	records := make([]CellRecord, len(metrics))
	for i, q := range metrics {
		records[i] = CellRecord{
			Cell:      q.Cell,
			Sample:    q.Sample,
			Condition: q.Condition,
			NFeature:  q.NFeature,
			NCount:    q.NCount,
			Mito:      q.Mito,
			Cluster:   clusters[i],
		}
	}
	return records, nil
}

// WriteTable writes records, a slice of structs with csv field tags, to w
// as a tab-delimited table with a header.
func WriteTable(w io.Writer, records interface{}) error {
	cw := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	cw.Comma = '\t'
	return gocsv.MarshalCSV(records, cw)
}

// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package counts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/csimplestring/go-csv/detector"
)

// ParseError is returned when count matrix text is malformed.
type ParseError struct {
	// Record is the 1-based record
	// number of the offending record.
	// The header is record 1.
	Record int

	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("counts: record %d: %v", e.Record, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadFile returns the count matrix held at path. The path may be a local
// file or a gs:// object and the data may be compressed. If comma is zero,
// the field delimiter is detected from the leading lines of the data.
func ReadFile(ctx context.Context, path string, comma rune) (*Matrix, error) {
	rc, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := bufio.NewReaderSize(rc, sniffLen)
	if comma == 0 {
		comma = sniffDelimiter(r)
	}
	return Parse(r, comma)
}

// Parse returns the count matrix held in r with fields delimited by comma.
//
// The first record holds the cell identifiers. It may optionally start
// with a corner label for the gene column; this is detected from the
// width of the first gene record. Each following record holds a gene
// identifier and one non-negative integer count per cell. Cell and gene
// identifiers must be unique. Lines starting with '#' are ignored.
func Parse(r io.Reader, comma rune) (*Matrix, error) {
	c := csv.NewReader(r)
	c.Comma = comma
	c.Comment = '#'
	c.FieldsPerRecord = -1

	labels, err := c.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &ParseError{Record: 1, Err: errors.New("missing header")}
		}
		return nil, &ParseError{Record: 1, Err: err}
	}
	cells := append([]string(nil), labels...)

	var (
		genes []string
		data  []float64
		rows  = make(map[string]bool)
	)
	c.ReuseRecord = true
	for rec := 2; ; rec++ {
		counts, err := c.Read()
		if err != nil {
			if err != io.EOF {
				return nil, &ParseError{Record: rec, Err: err}
			}
			break
		}
		if rec == 2 && len(counts) == len(cells) && len(cells) > 1 {
			// The header has a corner label.
			cells = cells[1:]
		}
		if len(counts) != len(cells)+1 {
			return nil, &ParseError{Record: rec, Err: fmt.Errorf("wrong number of fields: %d != %d", len(counts), len(cells)+1)}
		}
		geneid := counts[0]
		if rows[geneid] {
			return nil, &ParseError{Record: rec, Err: fmt.Errorf("duplicate gene identifier %q", geneid)}
		}
		rows[geneid] = true
		for i, f := range counts[1:] {
			v, err := parseCount(f)
			if err != nil {
				return nil, &ParseError{Record: rec, Err: fmt.Errorf("error parsing value for %q in cell %q: %w", geneid, cells[i], err)}
			}
			data = append(data, v)
		}
		genes = append(genes, geneid)
	}

	if len(cells) == 0 || (len(cells) == 1 && cells[0] == "") {
		return nil, &ParseError{Record: 1, Err: errors.New("no cell identifiers")}
	}
	seen := make(map[string]bool, len(cells))
	for _, id := range cells {
		if seen[id] {
			return nil, &ParseError{Record: 1, Err: fmt.Errorf("duplicate cell identifier %q", id)}
		}
		seen[id] = true
	}

	return New(genes, cells, data), nil
}

func parseCount(f string) (float64, error) {
	v, err := strconv.ParseFloat(f, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("invalid count %q", f)
	}
	return v, nil
}

// sniffLen is the number of leading bytes used to detect the delimiter.
const sniffLen = 1 << 16

// delimiters is the set of accepted delimiters in order of preference.
var delimiters = []string{"\t", ",", ";", "|", " "}

// sniffDelimiter returns the delimiter used in the data buffered by r.
// It returns tab if no accepted delimiter is found.
func sniffDelimiter(r *bufio.Reader) rune {
	b, _ := r.Peek(sniffLen)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[:i+1]
	}
	found := detector.New().DetectDelimiter(bytes.NewReader(b), '"')
	for _, want := range delimiters {
		for _, d := range found {
			if d == want {
				return rune(want[0])
			}
		}
	}
	return '\t'
}

// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genesym

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/formats/rdf"

	"github.com/kortschak/gogo"
)

// SymbolPredicate is the predicate linking an accession to its symbol in
// RDF symbol tables:
//
//  <ensembl:ENSG00000000000> <local:symbol> "SYMBOL" .
//
const SymbolPredicate = "<local:symbol>"

// RDFTable is a Resolver backed by an RDF graph of accession to symbol
// statements.
type RDFTable struct {
	g *gogo.Graph
}

// ReadRDFTable returns an RDFTable holding the statements in the N-Triples
// or N-Quads file at path. Files with a .gz suffix are decompressed.
func ReadRDFTable(path string) (*RDFTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		r, err = gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
	}
	return NewRDFTable(r)
}

// NewRDFTable returns an RDFTable holding the symbol statements read from r.
// Statements with other predicates are ignored.
func NewRDFTable(r io.Reader) (*RDFTable, error) {
	g := gogo.NewGraph()
	dec := rdf.NewDecoder(r)
	for {
		s, err := dec.Unmarshal()
		if err != nil {
			if err == io.EOF {
				return &RDFTable{g: g}, nil
			}
			return nil, err
		}
		if s.Predicate.Value != SymbolPredicate {
			continue
		}
		if !strings.HasPrefix(s.Subject.Value, "<ensembl:") {
			return nil, fmt.Errorf("genesym: unexpected subject in symbol statement: %s", s)
		}

		s.Subject.UID = 0
		s.Predicate.UID = 0
		s.Object.UID = 0
		g.AddStatement(s)
	}
}

// Resolve implements the Resolver interface. If an accession has more
// than one symbol, the lexically first is used.
func (t *RDFTable) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	known := make(map[string]string, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		from, ok := t.g.TermFor("<ensembl:" + id + ">")
		if !ok {
			continue
		}
		terms := t.g.Query(from).Out(func(s *rdf.Statement) bool {
			return s.Predicate.Value == SymbolPredicate
		}).Unique().Result()

		var syms []string
		for _, term := range terms {
			text, _, kind, err := term.Parts()
			if err != nil {
				return nil, fmt.Errorf("genesym: invalid term in graph: %w", err)
			}
			if kind == rdf.Literal {
				syms = append(syms, text)
			}
		}
		if len(syms) == 0 {
			continue
		}
		sort.Strings(syms)
		known[id] = syms[0]
	}
	return known, nil
}

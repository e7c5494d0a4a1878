// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	fet "github.com/glycerine/golang-fisher-exact"
	"gonum.org/v1/gonum/graph/formats/rdf"

	"github.com/kortschak/gogo"
)

// GeneSet is a Gene Ontology term and the accessions it annotates.
type GeneSet struct {
	ID      string
	Label   string
	Members []string
}

// ReadGeneSets returns the gene sets described by the N-Triples or N-Quads
// file at path. Files with a .gz suffix are decompressed.
func ReadGeneSets(path string) ([]GeneSet, error) {
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
	return LoadGeneSets(r)
}

// LoadGeneSets returns the gene sets described by the statements in r,
// sorted by ID. Annotations are expected in the form
//
//  <obo:GO_0000000> <local:annotates> <ensembl:ENSG00000000000> .
//
// and optional term labels in the form
//
//  <obo:GO_0000000> <rdfs:label> "label" .
//
// Other statements are ignored.
func LoadGeneSets(r io.Reader) ([]GeneSet, error) {
	g := gogo.NewGraph()
	dec := rdf.NewDecoder(r)
	for {
		s, err := dec.Unmarshal()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if !strings.HasPrefix(s.Subject.Value, "<obo:GO_") {
			continue
		}
		switch s.Predicate.Value {
		case "<local:annotates>":
			if !strings.HasPrefix(s.Object.Value, "<ensembl:") {
				continue
			}
		case "<rdfs:label>":
		default:
			continue
		}

		s.Subject.UID = 0
		s.Predicate.UID = 0
		s.Object.UID = 0
		g.AddStatement(s)
	}

	var sets []GeneSet
	nodes := g.Nodes()
	for nodes.Next() {
		term := nodes.Node().(rdf.Term)
		if !strings.HasPrefix(term.Value, "<obo:GO_") {
			continue
		}
		genes := g.Query(term).Out(func(s *rdf.Statement) bool {
			return s.Predicate.Value == "<local:annotates>"
		}).Unique().Result()
		if len(genes) == 0 {
			continue
		}
		set := GeneSet{
			ID:      "GO:" + strip(term.Value, "<obo:GO_", ">"),
			Members: make([]string, len(genes)),
		}
		for i, t := range genes {
			set.Members[i] = strip(t.Value, "<ensembl:", ">")
		}
		sort.Strings(set.Members)

		labels := g.Query(term).Out(func(s *rdf.Statement) bool {
			return s.Predicate.Value == "<rdfs:label>"
		}).Result()
		for _, l := range labels {
			text, _, kind, err := l.Parts()
			if err != nil {
				return nil, fmt.Errorf("analysis: invalid term in graph: %w", err)
			}
			if kind == rdf.Literal {
				set.Label = text
				break
			}
		}
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].ID < sets[j].ID })
	return sets, nil
}

func strip(s, prefix, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, prefix), suffix)
}

// Enrichment is the over-representation of a gene set among a set of hits.
type Enrichment struct {
	ID    string `csv:"term"`
	Label string `csv:"label"`

	// Overlap is the number of hits in the
	// set and Size is the number of set
	// members in the universe.
	Overlap int `csv:"overlap"`
	Size    int `csv:"size"`

	// Hits and Universe are the total
	// number of hits and of genes tested.
	Hits     int `csv:"hits"`
	Universe int `csv:"universe"`

	P    float64 `csv:"p"`
	PAdj float64 `csv:"pAdj"`
}

// Enrich performs a one-sided Fisher exact test for over-representation
// of each gene set among hits, relative to universe. Hits and set members
// not in universe are ignored. Sets with no hits are omitted. P-values are
// adjusted with the Benjamini-Hochberg procedure over the reported sets
// and results are sorted by p-value, then by ID.
func Enrich(hits, universe []string, sets []GeneSet) []Enrichment {
	inUniverse := make(map[string]bool, len(universe))
	for _, id := range universe {
		inUniverse[id] = true
	}
	isHit := make(map[string]bool, len(hits))
	for _, id := range hits {
		if inUniverse[id] {
			isHit[id] = true
		}
	}
	n := len(isHit)
	total := len(inUniverse)

	var (
		results []Enrichment
		p       []float64
	)
	for _, set := range sets {
		var size, overlap int
		for _, id := range set.Members {
			if !inUniverse[id] {
				continue
			}
			size++
			if isHit[id] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		_, _, right, _ := fet.FisherExactTest(overlap, n-overlap, size-overlap, total-n-size+overlap)
		results = append(results, Enrichment{
			ID:       set.ID,
			Label:    set.Label,
			Overlap:  overlap,
			Size:     size,
			Hits:     n,
			Universe: total,
			P:        right,
		})
		p = append(p, right)
	}
	for i, q := range adjust(p) {
		results[i].PAdj = q
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].P != results[j].P {
			return results[i].P < results[j].P
		}
		return results[i].ID < results[j].ID
	})
	return results
}

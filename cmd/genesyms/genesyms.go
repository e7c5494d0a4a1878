// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// genesyms maps Ensembl ENSG gene identifiers to gene symbols based on
// Ensembl RDF data.
package main

import (
	"bufio"
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/formats/rdf"

	"github.com/kortschak/gogo"

	"github.com/kortschak/scfshd/internal/genesym"
)

func main() {
	var (
		orgPath = flag.String("org", "", "specify the Ensembl organism data (.nt.gz/.nq.gz - required)")
		dbPath  = flag.String("db", "", "specify a SQLite database to write the mapping to")
		help    = flag.Bool("help", false, "print help text")
	)

	flag.Parse()

	if *help {
		flag.Usage()
		fmt.Fprintf(os.Stderr, `
%s maps ENSG identifiers to gene symbols based on Ensembl RDF data.
It outputs the mapping as RDF triples in the form:

 <ensembl:ENSG00000000000> <local:symbol> "SYMBOL" .

for each Ensembl gene with a label. If a database path is given, the
mapping is also written to a SQLite database for use with scfshd.

Input data can be obtained from ftp://ftp.ensembl.org/pub/current_rdf
in Turtle format. These files must first be converted to N-Triples.

The input file is expected to be gzip compressed and the output is
written uncompressed to standard output.

Copyright ©2026 Dan Kortschak. All rights reserved.

`, filepath.Base(os.Args[0]))
		os.Exit(0)
	}

	if *orgPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*orgPath)
	if err != nil {
		log.Fatal(err)
	}
	r, err := gzip.NewReader(f)
	if err != nil {
		log.Fatal(err)
	}
	g, err := labelGraph(r)
	if err != nil {
		log.Fatalf("error during decoding: %v", err)
	}
	f.Close()

	symbols, err := geneSymbols(g)
	if err != nil {
		log.Fatal(err)
	}

	w := bufio.NewWriter(os.Stdout)
	err = writeTriples(w, symbols)
	if err != nil {
		log.Fatal(err)
	}
	err = w.Flush()
	if err != nil {
		log.Fatal(err)
	}

	if *dbPath != "" {
		db, err := genesym.OpenSQLiteTable(*dbPath)
		if err != nil {
			log.Fatal(err)
		}
		err = db.Insert(context.Background(), symbols)
		if err != nil {
			log.Fatal(err)
		}
		err = db.Close()
		if err != nil {
			log.Fatal(err)
		}
	}
}

const (
	ensemblGene = "<http://rdf.ebi.ac.uk/resource/ensembl/"
	rdfsLabel   = "<http://www.w3.org/2000/01/rdf-schema#label>"
)

// labelGraph returns a graph holding the gene label statements in r,
// rewritten to use short ensembl and rdfs prefixes.
func labelGraph(r io.Reader) (*gogo.Graph, error) {
	g := gogo.NewGraph()
	dec := rdf.NewDecoder(r)
	for {
		s, err := dec.Unmarshal()
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			return g, nil
		}

		switch s.Predicate.Value {
		case "<rdfs:label>":
			if !strings.HasPrefix(s.Subject.Value, "<ensembl:ENSG") {
				continue
			}
		case rdfsLabel:
			if !strings.HasPrefix(s.Subject.Value, ensemblGene+"ENSG") {
				continue
			}
			s.Subject.Value = "<ensembl:" + strings.TrimPrefix(s.Subject.Value, ensemblGene)
			s.Predicate.Value = "<rdfs:label>"
		default:
			continue
		}

		s.Subject.UID = 0
		s.Predicate.UID = 0
		s.Object.UID = 0

		g.AddStatement(s)
	}
}

// geneSymbols returns the symbol for each gene in g. Genes with more
// than one label are given the lexically first.
func geneSymbols(g *gogo.Graph) (map[string]string, error) {
	symbols := make(map[string]string)
	nodes := g.Nodes()
	for nodes.Next() {
		gene := nodes.Node().(rdf.Term)
		if !strings.HasPrefix(gene.Value, "<ensembl:") {
			continue
		}
		labels := g.Query(gene).Out(func(s *rdf.Statement) bool {
			return s.Predicate.Value == "<rdfs:label>"
		}).Unique().Result()

		var syms []string
		for _, l := range labels {
			text, _, kind, err := l.Parts()
			if err != nil {
				return nil, err
			}
			if kind == rdf.Literal && text != "" {
				syms = append(syms, text)
			}
		}
		if len(syms) == 0 {
			continue
		}
		sort.Strings(syms)
		id := strings.TrimSuffix(strings.TrimPrefix(gene.Value, "<ensembl:"), ">")
		symbols[id] = syms[0]
	}
	return symbols, nil
}

// writeTriples writes the symbol mapping to w as N-Triples sorted by
// gene identifier.
func writeTriples(w io.Writer, symbols map[string]string) error {
	ids := make([]string, 0, len(symbols))
	for id := range symbols {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sym, err := rdf.NewLiteralTerm(symbols[id], "")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, &rdf.Statement{
			Subject:   rdf.Term{Value: "<ensembl:" + id + ">"},
			Predicate: rdf.Term{Value: genesym.SymbolPredicate},
			Object:    sym,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// scfshd merges single-cell count data from FSHD and control myocyte
// samples and performs a downstream analysis of the merged data.
//
// Samples are listed in a tab-delimited manifest with a header naming the
// name and path columns. Relative paths are resolved against the directory
// holding the manifest and paths may refer to gs:// objects. Samples with
// names containing "FSHD" are FSHD samples and all others are controls.
//
// Count files are delimited text with cell identifiers in the first row
// and an Ensembl gene ID followed by integer counts in each following row.
// Count files may be compressed with gzip, bzip2, xz, zlib or zip.
//
// Gene symbols are obtained from exactly one of an RDF N-Triples table in
// the form:
//
//  <ensembl:ENSG00000000000> <local:symbol> "SYMBOL" .
//
// a SQLite table as written by genesyms, or an annotation web service.
//
// The optional ENSG to GO mapping is expected to be in RDF N-Triples or
// N-Quads in the form:
//
//  <obo:GO_0000000> <local:annotates> <ensembl:ENSG00000000000> .
//  <obo:GO_0000000> <rdfs:label> "label" .
//
// The merged matrix, cell, differential expression and enrichment tables
// are written to the output directory along with plots and a summary
// document in JSON format.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/carbocation/pfx"

	"github.com/kortschak/scfshd/internal/analysis"
	"github.com/kortschak/scfshd/internal/genesym"
	"github.com/kortschak/scfshd/internal/sample"
)

func main() {
	var (
		manifest   = flag.String("samples", "", "specify the sample manifest (.tsv - required)")
		out        = flag.String("out", "", "specify the output directory (required)")
		symbols    = flag.String("symbols", "", "specify the ENSG to symbol table (.nt/.nt.gz)")
		symbolsDB  = flag.String("symbols-db", "", "specify the ENSG to symbol SQLite database")
		symbolsURL = flag.String("symbols-url", "", "specify the gene annotation service URL")
		goMap      = flag.String("go-map", "", "specify the ENSG to GO mapping (.nt/.nt.gz)")
		timeout    = flag.Duration("timeout", genesym.DefaultTimeout, "time limit for annotation service queries")
		minCells   = flag.Int("min-cells", sample.DefaultOptions.MinCells, "minimum number of cells a gene must be detected in")
		minFeat    = flag.Int("min-features", sample.DefaultOptions.MinFeatures, "minimum number of genes a cell must express")
		qcMin      = flag.Int("qc-min-features", analysis.DefaultQCOptions.MinFeatures, "QC lower bound on genes per cell (exclusive)")
		qcMax      = flag.Int("qc-max-features", analysis.DefaultQCOptions.MaxFeatures, "QC upper bound on genes per cell (exclusive)")
		qcMito     = flag.Float64("qc-max-mito", analysis.DefaultQCOptions.MaxMito, "QC upper bound on mitochondrial count fraction (exclusive)")
		scale      = flag.Float64("scale", analysis.DefaultScale, "library size for normalization")
		nVar       = flag.Int("variable", 2000, "number of variable genes used for PCA")
		pcs        = flag.Int("pcs", 10, "number of principal components used for clustering")
		k          = flag.Int("k", 20, "number of nearest neighbours for clustering")
		resolution = flag.Float64("resolution", 1, "community detection resolution")
		seed       = flag.Uint64("seed", 1, "random seed for community detection")
		alpha      = flag.Float64("alpha", 0.05, "adjusted p-value threshold for differential expression")
		help       = flag.Bool("help", false, "print help text")
	)
	flag.Parse()

	if *help {
		flag.Usage()
		fmt.Fprintf(os.Stderr, `
%s merges single-cell count data from FSHD and control myocyte samples
and performs a downstream analysis of the merged data.

Samples are listed in a tab-delimited manifest with a header naming the
name and path columns. Relative paths are resolved against the directory
holding the manifest and paths may refer to gs:// objects. Samples with
names containing "FSHD" are FSHD samples and all others are controls.

Count files are delimited text with cell identifiers in the first row
and an Ensembl gene ID followed by integer counts in each following row.
Count files may be compressed with gzip, bzip2, xz, zlib or zip.

Gene symbols are obtained from exactly one of an RDF N-Triples table in
the form:

 <ensembl:ENSG00000000000> <local:symbol> "SYMBOL" .

a SQLite table as written by genesyms, or an annotation web service.
Genes without a symbol keep their Ensembl ID.

The optional ENSG to GO mapping is expected to be in RDF N-Triples or
N-Quads in the form:

 <obo:GO_0000000> <local:annotates> <ensembl:ENSG00000000000> .
 <obo:GO_0000000> <rdfs:label> "label" .

The output directory will contain:

 merged.tsv      - merged count matrix
 cells.tsv       - per-cell metadata, QC metrics and cluster
 de.tsv          - FSHD vs Control differential expression
 enrichment.tsv  - GO term over-representation (with -go-map)
 summary.json    - run summary
 plots/qc.png    - cell quality plot
 plots/pca.png   - principal components plot

Copyright ©2026 Dan Kortschak. All rights reserved.

`, filepath.Base(os.Args[0]))
		os.Exit(0)
	}

	var sources int
	for _, s := range []string{*symbols, *symbolsDB, *symbolsURL} {
		if s != "" {
			sources++
		}
	}
	if *manifest == "" || *out == "" || sources != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := Config{
		Manifest:   *manifest,
		Out:        *out,
		Symbols:    *symbols,
		SymbolsDB:  *symbolsDB,
		SymbolsURL: *symbolsURL,
		GOMap:      *goMap,
		Timeout:    *timeout,
		Load: sample.Options{
			MinCells:    *minCells,
			MinFeatures: *minFeat,
		},
		QC: analysis.QCOptions{
			MinFeatures: *qcMin,
			MaxFeatures: *qcMax,
			MaxMito:     *qcMito,
		},
		Scale:      *scale,
		Variable:   *nVar,
		PCs:        *pcs,
		Neighbours: *k,
		Resolution: *resolution,
		Seed:       *seed,
		Alpha:      *alpha,
	}

	log.Println(os.Args)
	err := run(context.Background(), cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// Config holds the parameters of an analysis run.
type Config struct {
	Manifest string
	Out      string

	// Exactly one of Symbols, SymbolsDB
	// and SymbolsURL must be set.
	Symbols    string
	SymbolsDB  string
	SymbolsURL string
	Timeout    time.Duration

	GOMap string

	Load sample.Options
	QC   analysis.QCOptions

	Scale      float64
	Variable   int
	PCs        int
	Neighbours int
	Resolution float64
	Seed       uint64
	Alpha      float64
}

// resolver returns the gene symbol resolver specified by cfg and a function
// to release its resources.
func resolver(cfg Config) (genesym.Resolver, func() error, error) {
	nop := func() error { return nil }
	switch {
	case cfg.Symbols != "":
		t, err := genesym.ReadRDFTable(cfg.Symbols)
		if err != nil {
			return nil, nil, pfx.Err(err)
		}
		return t, nop, nil
	case cfg.SymbolsDB != "":
		t, err := genesym.OpenSQLiteTable(cfg.SymbolsDB)
		if err != nil {
			return nil, nil, pfx.Err(err)
		}
		return t, t.Close, nil
	case cfg.SymbolsURL != "":
		return &genesym.Service{URL: cfg.SymbolsURL, Timeout: cfg.Timeout}, nop, nil
	default:
		return nil, nil, pfx.Err(fmt.Errorf("no gene symbol source"))
	}
}

// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/mat"

	"github.com/kortschak/scfshd/internal/analysis"
	"github.com/kortschak/scfshd/internal/counts"
	"github.com/kortschak/scfshd/internal/sample"
)

// SummaryDoc is the summary of an analysis run written to summary.json.
type SummaryDoc struct {
	// Samples holds the dimensions of each
	// sample after load filtering, in
	// manifest order.
	Samples []SampleSummary

	// Genes and Cells are the dimensions
	// of the merged matrix and QCCells is
	// the number of cells passing QC.
	Genes, Cells, QCCells int

	// VariableGenes is the number of genes
	// used for the principal components
	// analysis, Vars is the variance of
	// each component and OptimalRank is
	// the Gavish-Donoho rank of the data.
	VariableGenes int
	Vars          []float64
	OptimalRank   int

	// Clusters holds the size of each
	// cluster.
	Clusters []int

	// Differential is the number of genes
	// with an adjusted p-value below the
	// threshold and Enriched is the number
	// of GO terms over-represented among
	// them at the same threshold.
	Differential int
	Enriched     int
}

// SampleSummary describes a loaded sample.
type SampleSummary struct {
	Name      string
	Condition string
	Path      string
	Genes     int
	Cells     int
}

// run performs the complete analysis described by cfg.
func run(ctx context.Context, cfg Config) error {
	entries, err := sample.ReadManifest(cfg.Manifest)
	if err != nil {
		return pfx.Err(err)
	}
	base := filepath.Dir(cfg.Manifest)
	for i, e := range entries {
		if !strings.HasPrefix(e.Path, "gs://") && !filepath.IsAbs(e.Path) {
			entries[i].Path = filepath.Join(base, e.Path)
		}
	}

	for _, d := range []string{
		cfg.Out,
		filepath.Join(cfg.Out, "plots"),
	} {
		err := os.MkdirAll(d, 0o755)
		if err != nil {
			return pfx.Err(err)
		}
	}

	r, release, err := resolver(cfg)
	if err != nil {
		return err
	}
	defer release()

	log.Println("[loading samples]")
	samples := make([]*sample.Sample, len(entries))
	errs := make([]error, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		i := i
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			samples[i], errs[i] = sample.Load(ctx, e.Path, e.Name, r, cfg.Load)
		}()
	}
	wg.Wait()
	var doc SummaryDoc
	for i, err := range errs {
		if err != nil {
			return pfx.Err(err)
		}
		s := samples[i]
		g, c := s.Matrix.Dims()
		log.Printf("%s (%s): %d genes x %d cells", s.Name, s.Condition, g, c)
		doc.Samples = append(doc.Samples, SampleSummary{
			Name:      s.Name,
			Condition: s.Condition,
			Path:      entries[i].Path,
			Genes:     g,
			Cells:     c,
		})
	}

	log.Println("[merging samples]")
	d, err := sample.Merge(samples...)
	if err != nil {
		return pfx.Err(err)
	}
	doc.Genes, doc.Cells = d.Matrix.Dims()
	log.Printf("merged: %d genes x %d cells", doc.Genes, doc.Cells)
	err = writeFile(filepath.Join(cfg.Out, "merged.tsv"), func(w io.Writer) error {
		return counts.Write(w, d.Matrix)
	})
	if err != nil {
		return pfx.Err(err)
	}

	log.Println("[cell quality control]")
	metrics := analysis.QC(d)
	err = analysis.SummarizeQC(log.Writer(), metrics)
	if err != nil {
		return pfx.Err(err)
	}
	err = analysis.PlotQC(filepath.Join(cfg.Out, "plots", "qc.png"), metrics)
	if err != nil {
		return pfx.Err(err)
	}
	d, metrics, err = analysis.FilterCells(d, metrics, cfg.QC)
	if err != nil {
		return pfx.Err(err)
	}
	doc.QCCells = len(metrics)
	log.Printf("%d cells pass QC", doc.QCCells)

	log.Println("[normalizing]")
	norm := analysis.Normalize(d.Matrix, cfg.Scale)

	log.Println("[principal components]")
	rows := analysis.VariableGenes(norm, cfg.Variable)
	doc.VariableGenes = len(rows)
	reduction, err := analysis.PCA(norm, rows, cfg.PCs)
	if err != nil {
		return pfx.Err(err)
	}
	doc.Vars = reduction.Vars
	doc.OptimalRank = reduction.OptimalRank
	log.Printf("optimal rank: %d", doc.OptimalRank)

	log.Println("[clustering]")
	clusters := analysis.Cluster(reduction.Scores, cfg.Neighbours, cfg.Resolution, cfg.Seed)
	for _, c := range clusters {
		for len(doc.Clusters) <= c {
			doc.Clusters = append(doc.Clusters, 0)
		}
		doc.Clusters[c]++
	}
	log.Printf("cluster sizes: %v", doc.Clusters)
	err = analysis.PlotPCA(filepath.Join(cfg.Out, "plots", "pca.png"), reduction.Scores, clusters)
	if err != nil {
		return pfx.Err(err)
	}
	records, err := analysis.CellRecords(metrics, clusters)
	if err != nil {
		return pfx.Err(err)
	}
	err = writeFile(filepath.Join(cfg.Out, "cells.tsv"), func(w io.Writer) error {
		return analysis.WriteTable(w, records)
	})
	if err != nil {
		return pfx.Err(err)
	}

	log.Println("[differential expression]")
	err = compare(cfg, d, norm, &doc)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return pfx.Err(err)
	}
	err = os.WriteFile(filepath.Join(cfg.Out, "summary.json"), b, 0o644)
	if err != nil {
		return pfx.Err(err)
	}
	log.Println("[done]")
	return nil
}

// compare writes the differential expression of FSHD and control cells
// and, if a GO mapping is configured, the GO term enrichment of the
// differentially expressed genes. Comparison is skipped when either
// condition has too few cells.
func compare(cfg Config, d *sample.Dataset, norm *mat.Dense, doc *SummaryDoc) error {
	diffs, err := analysis.DifferentialExpression(norm, d.Matrix.Genes, d.Accessions, d.Conditions, sample.FSHD, sample.Control)
	if err != nil {
		if errors.Is(err, analysis.ErrTooFewCells) {
			log.Printf("skipping differential expression: %v", err)
			return nil
		}
		return pfx.Err(err)
	}
	err = writeFile(filepath.Join(cfg.Out, "de.tsv"), func(w io.Writer) error {
		return analysis.WriteTable(w, diffs)
	})
	if err != nil {
		return pfx.Err(err)
	}
	var hits []string
	for _, diff := range diffs {
		if diff.PAdj < cfg.Alpha {
			hits = append(hits, diff.Accession)
		}
	}
	doc.Differential = len(hits)
	log.Printf("%d differentially expressed genes", doc.Differential)

	if cfg.GOMap == "" {
		return nil
	}
	log.Println("[gene set enrichment]")
	sets, err := analysis.ReadGeneSets(cfg.GOMap)
	if err != nil {
		return pfx.Err(err)
	}
	enriched := analysis.Enrich(hits, d.Accessions, sets)
	for _, e := range enriched {
		if e.PAdj < cfg.Alpha {
			doc.Enriched++
		}
	}
	err = writeFile(filepath.Join(cfg.Out, "enrichment.tsv"), func(w io.Writer) error {
		return analysis.WriteTable(w, enriched)
	})
	if err != nil {
		return pfx.Err(err)
	}
	return nil
}

// writeFile creates the file at path and writes to it using fn.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	err = fn(w)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return w.Flush()
}

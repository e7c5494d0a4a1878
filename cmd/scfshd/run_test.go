// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kortschak/scfshd/internal/analysis"
	"github.com/kortschak/scfshd/internal/counts"
	"github.com/kortschak/scfshd/internal/sample"
)

var runFiles = map[string]string{
	"samples.tsv": `name	path
FSHD1_1	fshd.tsv
Control_1	control.tsv
`,
	"fshd.tsv": `Geneid	AAAC-1	AAAG-1	AACA-1	AACC-1
ENSG01	9	8	9	10
ENSG02	7	8	6	7
ENSG03	1	0	1	2
ENSG04	0	1	0	1
ENSG05	3	3	2	3
ENSG06	2	2	3	2
`,
	"control.tsv": `Geneid	AAAC-1	TTTG-1	TTCA-1	TTCC-1
ENSG01	1	0	1	2
ENSG02	0	1	1	0
ENSG03	8	9	7	8
ENSG04	9	8	9	7
ENSG05	3	2	3	3
ENSG07	1	1	2	1
`,
	"symbols.nt": `<ensembl:ENSG01> <local:symbol> "DUX4" .
<ensembl:ENSG02> <local:symbol> "ZSCAN4" .
<ensembl:ENSG03> <local:symbol> "MYOG" .
<ensembl:ENSG07> <local:symbol> "MT-CO1" .
`,
	"go.nt": `<obo:GO_0000001> <local:annotates> <ensembl:ENSG01> .
<obo:GO_0000001> <local:annotates> <ensembl:ENSG02> .
<obo:GO_0000001> <rdfs:label> "germline program" .
<obo:GO_0000002> <local:annotates> <ensembl:ENSG03> .
<obo:GO_0000002> <local:annotates> <ensembl:ENSG05> .
`,
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	for name, content := range runFiles {
		err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
		if err != nil {
			t.Fatal(err)
		}
	}
	out := filepath.Join(dir, "out")
	cfg := Config{
		Manifest:   filepath.Join(dir, "samples.tsv"),
		Out:        out,
		Symbols:    filepath.Join(dir, "symbols.nt"),
		GOMap:      filepath.Join(dir, "go.nt"),
		QC:         analysis.QCOptions{MinFeatures: 0, MaxFeatures: 100, MaxMito: 0.5},
		Scale:      analysis.DefaultScale,
		Variable:   10,
		PCs:        3,
		Neighbours: 2,
		Resolution: 1,
		Seed:       1,
		Alpha:      0.05,
	}
	err := run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{
		"merged.tsv",
		"cells.tsv",
		"de.tsv",
		"enrichment.tsv",
		"summary.json",
		filepath.Join("plots", "qc.png"),
		filepath.Join("plots", "pca.png"),
	} {
		_, err := os.Stat(filepath.Join(out, name))
		if err != nil {
			t.Errorf("missing output: %v", err)
		}
	}

	b, err := os.ReadFile(filepath.Join(out, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc SummaryDoc
	err = json.Unmarshal(b, &doc)
	if err != nil {
		t.Fatalf("unexpected error decoding summary: %v", err)
	}
	if doc.Genes != 7 || doc.Cells != 8 || doc.QCCells != 8 {
		t.Errorf("unexpected dimensions in summary: genes=%d cells=%d qc=%d", doc.Genes, doc.Cells, doc.QCCells)
	}
	if len(doc.Samples) != 2 || doc.Samples[0].Name != "FSHD1_1" || doc.Samples[1].Condition != "Control" {
		t.Errorf("unexpected sample summaries: %+v", doc.Samples)
	}
	var total int
	for _, n := range doc.Clusters {
		total += n
	}
	if total != 8 {
		t.Errorf("unexpected clustered cell count: %d", total)
	}

	cells, err := os.ReadFile(filepath.Join(out, "cells.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"FSHD1_1_AAAC-1", "Control_1_AAAC-1", "TTTG-1"} {
		if !strings.Contains(string(cells), want) {
			t.Errorf("cell table missing %q", want)
		}
	}

	merged, err := os.ReadFile(filepath.Join(out, "merged.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"\nDUX4\t", "\nMT-CO1\t0\t0\t0\t0\t1\t1\t2\t1\n", "\nENSG06\t"} {
		if !strings.Contains(string(merged), want) {
			t.Errorf("merged matrix missing %q:\n%s", want, merged)
		}
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "samples.tsv")
	err := os.WriteFile(manifest, []byte("name\tpath\nFSHD1_1\tabsent.tsv\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	symbols := filepath.Join(dir, "symbols.nt")
	err = os.WriteFile(symbols, []byte(runFiles["symbols.nt"]), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	err = run(context.Background(), Config{Manifest: manifest, Out: filepath.Join(dir, "out"), Symbols: symbols})
	if err == nil || !strings.Contains(err.Error(), "absent.tsv") {
		t.Errorf("expected missing count file error, got: %v", err)
	}

	err = run(context.Background(), Config{Manifest: manifest, Out: filepath.Join(dir, "out")})
	if err == nil {
		t.Error("expected error for missing symbol source")
	}
}

func TestCompare(t *testing.T) {
	genes := []string{"DUX4", "MYOG"}
	cells := []string{"c1", "c2", "c3"}
	d := &sample.Dataset{
		Samples:    []string{"FSHD1_1", "Control_1"},
		Matrix:     counts.New(genes, cells, []float64{4, 5, 0, 0, 1, 6}),
		Accessions: []string{"ENSG01", "ENSG02"},
	}
	norm := analysis.Normalize(d.Matrix, analysis.DefaultScale)

	for _, test := range []struct {
		name       string
		conditions []string
		wantErr    bool
	}{
		{name: "too few cells", conditions: []string{sample.FSHD, sample.FSHD, sample.Control}, wantErr: false},
		{name: "label mismatch", conditions: []string{sample.FSHD, sample.Control}, wantErr: true},
	} {
		out := t.TempDir()
		d.Conditions = test.conditions
		var doc SummaryDoc
		err := compare(Config{Out: out, Alpha: 0.05}, d, norm, &doc)
		if (err != nil) != test.wantErr {
			t.Errorf("unexpected error for %s: got:%v want error:%t", test.name, err, test.wantErr)
		}
		_, err = os.Stat(filepath.Join(out, "de.tsv"))
		if !os.IsNotExist(err) {
			t.Errorf("unexpected differential expression output for %s: %v", test.name, err)
		}
	}
}

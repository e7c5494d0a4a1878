// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sample

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kortschak/scfshd/internal/counts"
	"github.com/kortschak/scfshd/internal/genesym"
)

func newSample(name string, genes, cells []string, data []float64) *Sample {
	return &Sample{
		Name:       name,
		Condition:  Condition(name),
		Matrix:     counts.New(genes, cells, data),
		Accessions: append([]string(nil), genes...),
	}
}

func TestMergeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fshd := writeCounts(t, dir, "FSHD1_1",
		[]string{"ENSG01", "ENSG02", "ENSG03"},
		[]string{"AAAC-1", "AAAG-1", "AACA-1", "AACC-1"},
		[][]int{
			{1, 0, 2, 0},
			{5, 6, 7, 8},
			{0, 0, 1, 1},
		})
	control := writeCounts(t, dir, "Control_1",
		[]string{"ENSG02", "ENSG04", "ENSG05"},
		[]string{"TTTC-1", "TTTG-1", "TTCA-1", "TTCC-1"},
		[][]int{
			{9, 10, 11, 12},
			{1, 1, 1, 1},
			{0, 3, 0, 3},
		})
	table := genesym.Table{"ENSG02": "MYOD1", "ENSG04": "DUX4"}

	ctx := context.Background()
	var samples []*Sample
	for _, in := range []struct{ name, path string }{
		{"FSHD1_1", fshd},
		{"Control_1", control},
	} {
		s, err := Load(ctx, in.path, in.name, table, Options{})
		if err != nil {
			t.Fatalf("unexpected error loading %s: %v", in.name, err)
		}
		samples = append(samples, s)
	}

	d, err := Merge(samples...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g, c := d.Matrix.Dims(); g != 5 || c != 8 {
		t.Fatalf("unexpected dimensions: got:%dx%d want:5x8", g, c)
	}
	wantGenes := []string{"ENSG01", "MYOD1", "ENSG03", "DUX4", "ENSG05"}
	if !reflect.DeepEqual(d.Matrix.Genes, wantGenes) {
		t.Errorf("unexpected genes: got:%q want:%q", d.Matrix.Genes, wantGenes)
	}
	wantAccessions := []string{"ENSG01", "ENSG02", "ENSG03", "ENSG04", "ENSG05"}
	if !reflect.DeepEqual(d.Accessions, wantAccessions) {
		t.Errorf("unexpected accessions: got:%q want:%q", d.Accessions, wantAccessions)
	}

	wantShared := []float64{5, 6, 7, 8, 9, 10, 11, 12}
	if got := d.Matrix.Counts.RawRowView(1); !reflect.DeepEqual(got, wantShared) {
		t.Errorf("unexpected shared gene counts: got:%v want:%v", got, wantShared)
	}
	wantPadded := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	if got := d.Matrix.Counts.RawRowView(3); !reflect.DeepEqual(got, wantPadded) {
		t.Errorf("unexpected padded gene counts: got:%v want:%v", got, wantPadded)
	}

	wantNames := []string{"FSHD1_1", "FSHD1_1", "FSHD1_1", "FSHD1_1", "Control_1", "Control_1", "Control_1", "Control_1"}
	if !reflect.DeepEqual(d.SampleNames, wantNames) {
		t.Errorf("unexpected sample names: got:%q want:%q", d.SampleNames, wantNames)
	}
	wantConditions := []string{FSHD, FSHD, FSHD, FSHD, Control, Control, Control, Control}
	if !reflect.DeepEqual(d.Conditions, wantConditions) {
		t.Errorf("unexpected conditions: got:%q want:%q", d.Conditions, wantConditions)
	}
	if !reflect.DeepEqual(d.Samples, []string{"FSHD1_1", "Control_1"}) {
		t.Errorf("unexpected samples: %q", d.Samples)
	}
}

func TestMergeSharedSymbol(t *testing.T) {
	// ENSG_X and ENSG_Y share a symbol in FSHD1_1, but only
	// ENSG_Y is present in Control_1.
	fshd := &Sample{
		Name:       "FSHD1_1",
		Condition:  FSHD,
		Matrix:     counts.New([]string{"DUX4L", "DUX4L.1"}, []string{"c1", "c2"}, []float64{1, 1, 50, 50}),
		Accessions: []string{"ENSG_X", "ENSG_Y"},
		Symbols:    map[string]string{"ENSG_X": "DUX4L", "ENSG_Y": "DUX4L"},
	}
	control := &Sample{
		Name:       "Control_1",
		Condition:  Control,
		Matrix:     counts.New([]string{"DUX4L"}, []string{"c3", "c4"}, []float64{60, 60}),
		Accessions: []string{"ENSG_Y"},
		Symbols:    map[string]string{"ENSG_Y": "DUX4L"},
	}

	for _, test := range []struct {
		name       string
		samples    []*Sample
		genes      []string
		accessions []string
		counts     []float64
	}{
		{
			name:       "fshd first",
			samples:    []*Sample{fshd, control},
			genes:      []string{"DUX4L", "DUX4L.1"},
			accessions: []string{"ENSG_X", "ENSG_Y"},
			counts: []float64{
				1, 1, 0, 0,
				50, 50, 60, 60,
			},
		},
		{
			name:       "control first",
			samples:    []*Sample{control, fshd},
			genes:      []string{"DUX4L.1", "DUX4L"},
			accessions: []string{"ENSG_Y", "ENSG_X"},
			counts: []float64{
				60, 60, 50, 50,
				0, 0, 1, 1,
			},
		},
	} {
		d, err := Merge(test.samples...)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", test.name, err)
		}
		if !reflect.DeepEqual(d.Matrix.Genes, test.genes) {
			t.Errorf("unexpected genes for %s: got:%q want:%q", test.name, d.Matrix.Genes, test.genes)
		}
		if !reflect.DeepEqual(d.Accessions, test.accessions) {
			t.Errorf("unexpected accessions for %s: got:%q want:%q", test.name, d.Accessions, test.accessions)
		}
		if got := d.Matrix.Counts.RawMatrix().Data; !reflect.DeepEqual(got, test.counts) {
			t.Errorf("unexpected counts for %s: got:%v want:%v", test.name, got, test.counts)
		}
	}
}

func TestMergeCollision(t *testing.T) {
	a := newSample("FSHD1_1", []string{"A"}, []string{"c1", "c2"}, []float64{1, 2})
	b := newSample("Control_1", []string{"A"}, []string{"c2", "c3"}, []float64{3, 4})

	d, err := Merge(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c1", "FSHD1_1_c2", "Control_1_c2", "c3"}
	if !reflect.DeepEqual(d.Matrix.Cells, want) {
		t.Errorf("unexpected cells: got:%q want:%q", d.Matrix.Cells, want)
	}
	seen := make(map[string]bool)
	for _, c := range d.Matrix.Cells {
		if seen[c] {
			t.Errorf("duplicate cell identifier %q", c)
		}
		seen[c] = true
	}
}

func TestMergeUnresolvableCollision(t *testing.T) {
	a := newSample("S", []string{"A"}, []string{"x_c"}, []float64{1})
	b := newSample("x", []string{"A"}, []string{"c"}, []float64{1})
	c := newSample("T", []string{"A"}, []string{"c"}, []float64{1})

	// The prefixed "c" from sample x is "x_c", already used by sample S.
	_, err := Merge(a, b, c)
	if err == nil {
		t.Error("expected error for cell identifiers that remain ambiguous")
	}
}

func TestMergeInsufficient(t *testing.T) {
	_, err := Merge()
	var ierr *InsufficientInputError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected InsufficientInputError, got: %v", err)
	}
	if ierr.N != 0 {
		t.Errorf("unexpected sample count: %d", ierr.N)
	}
}

func TestMergeSingle(t *testing.T) {
	a := newSample("FSHD2_1", []string{"A", "B"}, []string{"c1", "c2"}, []float64{1, 2, 3, 4})
	d, err := Merge(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(d.Matrix.Counts.RawMatrix().Data, []float64{1, 2, 3, 4}) {
		t.Errorf("unexpected counts: %v", d.Matrix.Counts.RawMatrix().Data)
	}
}

func TestMergeOrderInvariance(t *testing.T) {
	a := newSample("FSHD1_1", []string{"A", "B"}, []string{"c1", "c2"}, []float64{1, 2, 3, 4})
	b := newSample("Control_1", []string{"B", "C"}, []string{"c2", "c3"}, []float64{5, 6, 7, 8})
	c := newSample("FSHD2_1", []string{"D"}, []string{"c4"}, []float64{9})

	ab, err := Merge(a, b, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := Merge(c, b, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, want := ba.Sort(), ab.Sort()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merge is not order invariant after sorting:\ngot: %+v\nwant:%+v", got, want)
	}
	if !reflect.DeepEqual(want.Samples, []string{"Control_1", "FSHD1_1", "FSHD2_1"}) {
		t.Errorf("unexpected sorted samples: %q", want.Samples)
	}
	for j, src := range want.Source {
		if want.Samples[src] != want.SampleNames[j] {
			t.Errorf("source index mismatch for cell %q: %q != %q", want.Matrix.Cells[j], want.Samples[src], want.SampleNames[j])
		}
	}
}

// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genesym

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

var mapTests = []struct {
	name  string
	table Table
	ids   []string
	want  map[string]string
}{
	{
		name:  "all known",
		table: Table{"ENSG00000111046": "MYF6", "ENSG00000122180": "MYOG"},
		ids:   []string{"ENSG00000111046", "ENSG00000122180"},
		want:  map[string]string{"ENSG00000111046": "MYF6", "ENSG00000122180": "MYOG"},
	},
	{
		name:  "missing and empty fall back",
		table: Table{"ENSG00000111046": "", "ENSG00000122180": "MYOG"},
		ids:   []string{"ENSG00000111046", "ENSG00000122180", "ENSG00000999999"},
		want: map[string]string{
			"ENSG00000111046": "ENSG00000111046",
			"ENSG00000122180": "MYOG",
			"ENSG00000999999": "ENSG00000999999",
		},
	},
	{
		name: "collisions",
		table: Table{
			"ENSG01": "DUX4",
			"ENSG02": "DUX4",
			"ENSG03": "DUX4",
			"ENSG04": "MYOD1",
		},
		ids: []string{"ENSG02", "ENSG04", "ENSG01", "ENSG03"},
		want: map[string]string{
			"ENSG02": "DUX4",
			"ENSG04": "MYOD1",
			"ENSG01": "DUX4.1",
			"ENSG03": "DUX4.2",
		},
	},
	{
		name: "suffix already in use",
		table: Table{
			"ENSG01": "PRAMEF1",
			"ENSG02": "PRAMEF1.1",
			"ENSG03": "PRAMEF1",
		},
		ids: []string{"ENSG01", "ENSG02", "ENSG03"},
		want: map[string]string{
			"ENSG01": "PRAMEF1",
			"ENSG02": "PRAMEF1.1",
			"ENSG03": "PRAMEF1.2",
		},
	},
	{
		name: "suffix already in use later",
		table: Table{
			"ENSG01": "PRAMEF1",
			"ENSG02": "PRAMEF1.1",
			"ENSG03": "PRAMEF1",
		},
		ids: []string{"ENSG01", "ENSG03", "ENSG02"},
		want: map[string]string{
			"ENSG01": "PRAMEF1",
			"ENSG02": "PRAMEF1.1",
			"ENSG03": "PRAMEF1.2",
		},
	},
	{
		name: "fallback accession reserved",
		table: Table{
			"ENSG01": "ENSG03.1",
			"ENSG02": "ENSG03",
		},
		ids: []string{"ENSG02", "ENSG03", "ENSG01"},
		want: map[string]string{
			"ENSG02": "ENSG03",
			"ENSG03": "ENSG03.2",
			"ENSG01": "ENSG03.1",
		},
	},
	{
		name:  "symbol equal to another accession",
		table: Table{"ENSG01": "ENSG02"},
		ids:   []string{"ENSG01", "ENSG02"},
		want:  map[string]string{"ENSG01": "ENSG02", "ENSG02": "ENSG02.1"},
	},
	{
		name:  "duplicate inputs",
		table: Table{"ENSG01": "ZSCAN4"},
		ids:   []string{"ENSG01", "ENSG01", "ENSG01"},
		want:  map[string]string{"ENSG01": "ZSCAN4"},
	},
}

func TestMap(t *testing.T) {
	for _, test := range mapTests {
		ids := append([]string(nil), test.ids...)
		got, err := Map(context.Background(), test.table, test.ids)
		if err != nil {
			t.Errorf("unexpected error for %q: %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("unexpected mapping for %q:\ngot: %v\nwant:%v", test.name, got, test.want)
		}
		if !reflect.DeepEqual(ids, test.ids) {
			t.Errorf("input mutated for %q", test.name)
		}

		used := make(map[string]string)
		for _, id := range test.ids {
			sym, ok := got[id]
			if !ok || sym == "" {
				t.Errorf("missing symbol for %q in %q", id, test.name)
			}
			if other, ok := used[sym]; ok && other != id {
				t.Errorf("symbol %q used for both %q and %q in %q", sym, other, id, test.name)
			}
			used[sym] = id
		}
	}
}

func TestRelabel(t *testing.T) {
	symbols := map[string]string{"ENSG01": "DUX4", "ENSG02": "DUX4.1"}
	got := Relabel(symbols, []string{"ENSG02", "ENSG01"})
	want := []string{"DUX4.1", "DUX4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected labels: got:%q want:%q", got, want)
	}
}

type countingResolver struct {
	Table
	calls [][]string
}

func (r *countingResolver) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	r.calls = append(r.calls, append([]string(nil), ids...))
	return r.Table.Resolve(ctx, ids)
}

func TestMapQueriesOnce(t *testing.T) {
	r := &countingResolver{Table: Table{"ENSG01": "A"}}
	_, err := Map(context.Background(), r, []string{"ENSG02", "ENSG01", "ENSG02"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"ENSG02", "ENSG01"}}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("unexpected resolver calls: got:%q want:%q", r.calls, want)
	}
}

type failingResolver struct{ err error }

func (r failingResolver) Resolve(context.Context, []string) (map[string]string, error) {
	return nil, r.err
}

func TestMapLookupFailure(t *testing.T) {
	cause := errors.New("connection refused")
	_, err := Map(context.Background(), failingResolver{cause}, []string{"ENSG01"})
	var lf *LookupFailure
	if !errors.As(err, &lf) {
		t.Fatalf("expected LookupFailure, got: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected LookupFailure to wrap cause")
	}

	_, err = Map(context.Background(), failingResolver{lf}, []string{"ENSG01"})
	if err != lf {
		t.Errorf("expected existing LookupFailure to be returned unwrapped, got: %v", err)
	}
}

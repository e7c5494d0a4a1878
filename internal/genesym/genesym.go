// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package genesym maps gene accession identifiers to unique display
// symbols using an annotation source.
package genesym

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Resolver is an accession to symbol annotation source.
type Resolver interface {
	// Resolve returns the known symbols for the
	// given accessions. Accessions without a known
	// symbol may be absent from the returned map
	// or map to the empty string.
	Resolve(ctx context.Context, ids []string) (map[string]string, error)
}

// LookupFailure is returned when an annotation source is unreachable or
// returns malformed data.
type LookupFailure struct {
	Err error
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("genesym: lookup failed: %v", e.Err)
}

func (e *LookupFailure) Unwrap() error { return e.Err }

// Map returns a mapping from each accession in ids to a unique non-empty
// symbol. It is equivalent to calling Unique with the symbols returned by
// Lookup.
func Map(ctx context.Context, r Resolver, ids []string) (map[string]string, error) {
	known, err := Lookup(ctx, r, ids)
	if err != nil {
		return nil, err
	}
	return Unique(ids, known), nil
}

// Lookup returns the symbols known to r for the accessions in ids. The
// resolver is queried once with the distinct accessions in first-seen
// order. Resolver errors are returned as a *LookupFailure.
func Lookup(ctx context.Context, r Resolver, ids []string) (map[string]string, error) {
	known, err := r.Resolve(ctx, distinct(ids))
	if err != nil {
		var lf *LookupFailure
		if errors.As(err, &lf) {
			return nil, err
		}
		return nil, &LookupFailure{Err: err}
	}
	return known, nil
}

// Unique returns a mapping from each accession in ids to a unique non-empty
// symbol based on the symbols in known.
//
// Accessions with no symbol, or an empty symbol, map to themselves.
// When distinct accessions share a symbol, the first seen keeps it and
// the others are given a numeric suffix, ".1", ".2" and so on. Suffixes
// skip any symbol that is already the unsuffixed symbol of an accession.
func Unique(ids []string, known map[string]string) map[string]string {
	ids = distinct(ids)
	symbols := make(map[string]string, len(ids))
	used := make(map[string]bool, len(ids))
	var dups []string
	for _, id := range ids {
		sym := known[id]
		if sym == "" {
			sym = id
		}
		if used[sym] {
			dups = append(dups, id)
			continue
		}
		used[sym] = true
		symbols[id] = sym
	}

	suffix := make(map[string]int)
	for _, id := range dups {
		base := known[id]
		if base == "" {
			base = id
		}
		n := suffix[base]
		var sym string
		for {
			n++
			sym = base + "." + strconv.Itoa(n)
			if !used[sym] {
				break
			}
		}
		suffix[base] = n
		used[sym] = true
		symbols[id] = sym
	}
	return symbols
}

// distinct returns the distinct elements of ids in first-seen order.
func distinct(ids []string) []string {
	d := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		d = append(d, id)
	}
	return d
}

// Relabel returns the symbols for ids using the mapping returned by Map.
func Relabel(symbols map[string]string, ids []string) []string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = symbols[id]
	}
	return labels
}

// Table is an in-memory accession to symbol table.
type Table map[string]string

// Resolve implements the Resolver interface.
func (t Table) Resolve(_ context.Context, ids []string) (map[string]string, error) {
	known := make(map[string]string, len(ids))
	for _, id := range ids {
		if sym, ok := t[id]; ok {
			known[id] = sym
		}
	}
	return known, nil
}

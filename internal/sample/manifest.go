// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sample

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// Entry is a sample manifest entry.
type Entry struct {
	Name string `csv:"name"`
	Path string `csv:"path"`
}

// ReadManifest returns the entries of the tab-delimited manifest at path.
func ReadManifest(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseManifest(f)
}

// ParseManifest returns the entries of the tab-delimited manifest in r.
// The manifest must have a header naming the name and path columns. Lines
// starting with '#' are ignored. Sample names must be unique and non-empty.
func ParseManifest(r io.Reader) ([]Entry, error) {
	c := csv.NewReader(r)
	c.Comma = '\t'
	c.Comment = '#'
	var entries []Entry
	err := gocsv.UnmarshalCSV(c, &entries)
	if err != nil {
		return nil, fmt.Errorf("sample: invalid manifest: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Name == "" || e.Path == "" {
			return nil, fmt.Errorf("sample: incomplete manifest entry %d", i+1)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("sample: duplicate sample name %q in manifest", e.Name)
		}
		seen[e.Name] = true
	}
	return entries, nil
}

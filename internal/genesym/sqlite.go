// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genesym

import (
	"context"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS symbols (
	accession TEXT PRIMARY KEY,
	symbol    TEXT NOT NULL
)`

// maxVars is the number of accessions bound in a single query. It is
// kept below the default SQLite host parameter limit of 999.
const maxVars = 500

// SQLiteTable is a Resolver backed by a SQLite database holding a
// symbols(accession, symbol) table.
type SQLiteTable struct {
	db *sqlx.DB
}

// OpenSQLiteTable opens the SQLite database at path, creating the symbols
// table if it does not exist.
func OpenSQLiteTable(path string) (*SQLiteTable, error) {
	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html.
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteTable{db: db}, nil
}

// Close closes the underlying database.
func (t *SQLiteTable) Close() error {
	return t.db.Close()
}

// Insert adds or replaces the given accession to symbol pairs.
func (t *SQLiteTable) Insert(ctx context.Context, symbols map[string]string) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PreparexContext(ctx, "INSERT OR REPLACE INTO symbols (accession, symbol) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	ids := make([]string, 0, len(symbols))
	for id := range symbols {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		_, err = stmt.ExecContext(ctx, id, symbols[id])
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	return tx.Commit()
}

type symbolRow struct {
	Accession string `db:"accession"`
	Symbol    string `db:"symbol"`
}

// Resolve implements the Resolver interface.
func (t *SQLiteTable) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	known := make(map[string]string, len(ids))
	for len(ids) != 0 {
		n := len(ids)
		if n > maxVars {
			n = maxVars
		}
		query, args, err := sqlx.In("SELECT accession, symbol FROM symbols WHERE accession IN (?)", ids[:n])
		if err != nil {
			return nil, err
		}
		var rows []symbolRow
		err = t.db.SelectContext(ctx, &rows, t.db.Rebind(query), args...)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			known[r.Accession] = r.Symbol
		}
		ids = ids[n:]
	}
	return known, nil
}

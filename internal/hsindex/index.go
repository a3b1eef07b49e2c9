// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package hsindex is the fast tier of HS code lookup: a Postgres table of
// Harmonized System codes queried with pgx. The console falls back to the
// AI suggestion endpoint when this index has nothing for a query.
package hsindex

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loxtr/console/internal/backend"
)

// DefaultLimit caps the rows returned by Search.
const DefaultLimit = 10

const schemaSQL = `
CREATE TABLE IF NOT EXISTS hs_codes (
	code        text PRIMARY KEY,
	description text NOT NULL
);
CREATE INDEX IF NOT EXISTS hs_codes_description_lower ON hs_codes (lower(description));`

const searchSQL = `
SELECT code, description
FROM hs_codes
WHERE code LIKE $1 ESCAPE '\' OR description ILIKE $2 ESCAPE '\'
ORDER BY (code LIKE $1 ESCAPE '\') DESC, code
LIMIT $3`

const upsertSQL = `
INSERT INTO hs_codes (code, description) VALUES ($1, $2)
ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description`

// Index queries the hs_codes table.
type Index struct {
	pool  *pgxpool.Pool
	limit int
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Index, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse index DSN: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to index: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	return &Index{pool: pool, limit: DefaultLimit}, nil
}

// Close releases the pool.
func (i *Index) Close() { i.pool.Close() }

// EnsureSchema creates the hs_codes table when missing.
func (i *Index) EnsureSchema(ctx context.Context) error {
	_, err := i.pool.Exec(ctx, schemaSQL)
	return err
}

type row struct {
	Code        string `db:"code"`
	Description string `db:"description"`
}

// Search returns codes whose number starts with query or whose description
// contains it, code-prefix matches first.
func (i *Index) Search(ctx context.Context, query string) ([]backend.HSCode, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []backend.HSCode{}, nil
	}
	rows, err := i.pool.Query(ctx, searchSQL, escapeLike(q)+"%", "%"+escapeLike(q)+"%", i.limit)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[row])
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	out := make([]backend.HSCode, 0, len(found))
	for _, r := range found {
		out = append(out, backend.HSCode{Code: r.Code, Description: r.Description})
	}
	return out, nil
}

// Load upserts "code,description" records from r in one transaction and
// returns how many were written. A header line starting with "code" is skipped.
func (i *Index) Load(ctx context.Context, r io.Reader) (int, error) {
	codes, err := ReadCSV(r)
	if err != nil {
		return 0, err
	}
	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range codes {
		batch.Queue(upsertSQL, c.Code, c.Description)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(codes), nil
}

// ReadCSV parses "code,description" records.
func ReadCSV(r io.Reader) ([]backend.HSCode, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []backend.HSCode
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want code,description", line)
		}
		code := strings.TrimSpace(rec[0])
		desc := strings.TrimSpace(rec[1])
		if code == "" || desc == "" {
			return nil, fmt.Errorf("line %d: empty code or description", line)
		}
		out = append(out, backend.HSCode{Code: code, Description: desc})
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// sequence numbers audit rows across tables so that the LLM calls and the
// uploads of one report can be ordered against each other. Every number is
// the rowid of a fresh audit_sequence row, which keeps it unique when the
// console and the server share a database file.
type sequence struct {
	db *sql.DB
}

// Next issues the next number.
func (s sequence) Next(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO audit_sequence DEFAULT VALUES RETURNING id`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}

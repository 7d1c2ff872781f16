package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type reportRepo struct {
	db  *sql.DB
	seq sequence
}

func (r *reportRepo) AppendReport(ctx context.Context, rec ReportRecord) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO reports
		(id, sequence, timestamp, session_id, user_id, variant, filename, status, url, local_path, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, seqNum, rec.Timestamp.UTC(), rec.SessionID, rec.UserID, rec.Variant,
		rec.Filename, rec.Status, rec.URL, rec.LocalPath, rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save report record: %w", err)
	}
	return nil
}

func (r *reportRepo) QueryReports(ctx context.Context, opts QueryOpts) ([]ReportRecord, error) {
	where, args := opts.where("user_id", opts.UserID)
	q := `SELECT id, sequence, timestamp, session_id, user_id, variant, filename, status,
		url, local_path, error_message FROM reports` + where + " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		var rec ReportRecord
		if err := rows.Scan(&rec.ID, &rec.Sequence, &rec.Timestamp, &rec.SessionID, &rec.UserID,
			&rec.Variant, &rec.Filename, &rec.Status, &rec.URL, &rec.LocalPath, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AuditRepo persists fulfillment events in the 'fulfillment_audit' table.  A
// repo with a nil DB reports ErrArchiveDisabled.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Enabled reports whether a database is attached.
func (r *AuditRepo) Enabled() bool { return r != nil && r.DB != nil }

// Append upserts the row for e.SessionID.  Replayed events overwrite the
// existing row, keeping the first recorded_at.
func (r *AuditRepo) Append(ctx context.Context, e model.AuditEntry) error {
	if !r.Enabled() {
		return ErrArchiveDisabled
	}
	recordedAt := e.RecordedAt.UTC()
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO fulfillment_audit (session_id, role, email, source, recorded_at)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE role=VALUES(role), email=VALUES(email), source=VALUES(source)`,
		e.SessionID, e.Role, nullString(e.Email), e.Source, recordedAt)
	return err
}

// List returns the newest entries first.  limit is clamped to [1, 500] with
// 50 used for non-positive values.
func (r *AuditRepo) List(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if !r.Enabled() {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT session_id, role, email, source, recorded_at FROM fulfillment_audit ORDER BY recorded_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AuditEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetBySession fetches the row for sessionID.
func (r *AuditRepo) GetBySession(ctx context.Context, sessionID string) (model.AuditEntry, error) {
	if !r.Enabled() {
		return model.AuditEntry{}, ErrArchiveDisabled
	}
	row := r.DB.QueryRowContext(ctx,
		"SELECT session_id, role, email, source, recorded_at FROM fulfillment_audit WHERE session_id=? LIMIT 1",
		sessionID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuditEntry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (model.AuditEntry, error) {
	var (
		e     model.AuditEntry
		email sql.NullString
	)
	if err := s.Scan(&e.SessionID, &e.Role, &email, &e.Source, &e.RecordedAt); err != nil {
		return model.AuditEntry{}, err
	}
	e.Email = email.String
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

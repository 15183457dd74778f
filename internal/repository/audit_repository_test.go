package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

func newMock(t *testing.T) (*AuditRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAuditRepo(db), mock
}

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAuditRepo_Append(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fulfillment_audit (session_id, role, email, source, recorded_at)")).
		WithArgs("cs_1", "architect", sql.NullString{String: "a@example.com", Valid: true}, "webhook", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), model.AuditEntry{
		SessionID: "cs_1", Role: "architect", Email: "a@example.com", Source: "webhook", RecordedAt: at,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_AppendWithoutEmail(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("INSERT INTO fulfillment_audit").
		WithArgs("cs_2", "driver", sql.NullString{}, "success", at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Append(context.Background(), model.AuditEntry{
		SessionID: "cs_2", Role: "driver", Source: "success", RecordedAt: at,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_AppendError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("INSERT INTO fulfillment_audit").WillReturnError(errors.New("deadlock"))

	err := repo.Append(context.Background(), model.AuditEntry{SessionID: "cs_3", Role: "guide", RecordedAt: at})
	require.Error(t, err)
}

func TestAuditRepo_List(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"session_id", "role", "email", "source", "recorded_at"}).
		AddRow("cs_2", "driver", nil, "success", at.Add(time.Minute)).
		AddRow("cs_1", "architect", "a@example.com", "webhook", at)
	mock.ExpectQuery(regexp.QuoteMeta("FROM fulfillment_audit ORDER BY recorded_at DESC LIMIT ?")).
		WithArgs(50).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cs_2", got[0].SessionID)
	assert.Equal(t, "", got[0].Email)
	assert.Equal(t, "a@example.com", got[1].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_ListClampsLimit(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM fulfillment_audit").
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "role", "email", "source", "recorded_at"}))

	got, err := repo.List(context.Background(), 10000)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_GetBySession(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE session_id=? LIMIT 1")).
		WithArgs("cs_1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "role", "email", "source", "recorded_at"}).
			AddRow("cs_1", "architect", "a@example.com", "verify", at))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE session_id=? LIMIT 1")).
		WithArgs("cs_missing").
		WillReturnError(sql.ErrNoRows)

	e, err := repo.GetBySession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, model.AuditEntry{SessionID: "cs_1", Role: "architect", Email: "a@example.com", Source: "verify", RecordedAt: at}, e)

	_, err = repo.GetBySession(context.Background(), "cs_missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Disabled(t *testing.T) {
	repo := NewAuditRepo(nil)
	assert.False(t, repo.Enabled())

	require.ErrorIs(t, repo.Append(context.Background(), model.AuditEntry{}), ErrArchiveDisabled)
	_, err := repo.List(context.Background(), 10)
	require.ErrorIs(t, err, ErrArchiveDisabled)
	_, err = repo.GetBySession(context.Background(), "cs_1")
	require.ErrorIs(t, err, ErrArchiveDisabled)

	var nilRepo *AuditRepo
	assert.False(t, nilRepo.Enabled())
}

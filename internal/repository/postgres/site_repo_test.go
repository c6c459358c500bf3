package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

func TestNetworkRepo_DeleteWithSitesIsInvalid(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNetworkRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM sites WHERE network_id=\$1\)`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := r.Delete(context.Background(), 1)
	require.ErrorIs(t, err, errs.ErrInvalid)
	require.Equal(t, errs.CodeInvalid, errs.CodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNetworkRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNetworkRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`DELETE FROM networkmeta WHERE network_id=\$1`).
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM networks WHERE id=\$1`).
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	require.NoError(t, r.Delete(ctx, 2))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`DELETE FROM networkmeta`).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM networks`).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()
	require.ErrorIs(t, r.Delete(ctx, 3), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNetworkRepo_DeleteRacingSiteInsertIsInvalid(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNetworkRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`DELETE FROM networkmeta`).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM networks`).
		WithArgs(int64(4)).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	require.ErrorIs(t, r.Delete(context.Background(), 4), errs.ErrInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSiteRepo_InsertAndGet(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSiteRepo(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := &model.Site{NetworkID: 1, Domain: "example.com", Path: "/blog/", Registered: now, LastUpdated: now, Public: true}
	mock.ExpectQuery(`INSERT INTO sites`).
		WithArgs(anyArgs(11)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	id, err := r.Insert(ctx, s)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	cols := []string{"id", "network_id", "domain", "path", "registered", "last_updated",
		"public", "archived", "mature", "spam", "deleted", "lang_id"}
	mock.ExpectQuery(`FROM sites WHERE id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(7), int64(1), "example.com", "/blog/", now, now, true, false, false, false, false, 0))
	got, err := r.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "/blog/", got.Path)
	require.True(t, got.Public)

	mock.ExpectQuery(`FROM sites WHERE id=\$1`).
		WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows(cols))
	_, err = r.Get(ctx, 8)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

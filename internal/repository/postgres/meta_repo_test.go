package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

func TestMetaRepo_List_PerTypeTable(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMetaRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT meta_id, user_id, meta_key, meta_value FROM usermeta WHERE user_id=\$1 AND meta_key=\$2 ORDER BY meta_id`).
		WithArgs(int64(5), "nickname").
		WillReturnRows(pgxmock.NewRows([]string{"meta_id", "user_id", "meta_key", "meta_value"}).
			AddRow(int64(1), int64(5), "nickname", "bob").
			AddRow(int64(2), int64(5), "nickname", "bobby"))
	rows, err := r.List(ctx, model.ObjectUser, 5, "nickname")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "bobby", rows[1].Value)

	mock.ExpectQuery(`FROM termmeta WHERE term_id=\$1 ORDER BY meta_id`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"meta_id", "term_id", "meta_key", "meta_value"}))
	rows, err = r.List(ctx, model.ObjectTerm, 3, "")
	require.NoError(t, err)
	require.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetaRepo_UnknownType(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMetaRepo(db)

	_, err := r.Insert(context.Background(), model.ObjectRole, 1, "k", "v")
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestMetaRepo_InsertUpdateDelete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMetaRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO postmeta \(post_id, meta_key, meta_value\) VALUES \(\$1,\$2,\$3\) RETURNING meta_id`).
		WithArgs(int64(10), "color", "red").
		WillReturnRows(pgxmock.NewRows([]string{"meta_id"}).AddRow(int64(77)))
	id, err := r.Insert(ctx, model.ObjectPost, 10, "color", "red")
	require.NoError(t, err)
	require.Equal(t, int64(77), id)

	mock.ExpectExec(`UPDATE postmeta SET meta_value=\$2 WHERE meta_id=\$1`).
		WithArgs(int64(77), "blue").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateValue(ctx, model.ObjectPost, 77, "blue"))

	mock.ExpectExec(`DELETE FROM postmeta WHERE meta_id=\$1`).
		WithArgs(int64(77)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, model.ObjectPost, 77), errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOptionRepo_UpsertAndGet(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOptionRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`ON CONFLICT \(option_name\) DO UPDATE`).
		WithArgs("blogname", "Charm", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Upsert(ctx, "blogname", "Charm", true))

	mock.ExpectQuery(`FROM options WHERE option_name=\$1`).
		WithArgs("blogname").
		WillReturnRows(pgxmock.NewRows([]string{"option_id", "option_name", "option_value", "autoload"}).
			AddRow(int64(1), "blogname", "Charm", true))
	o, err := r.Get(ctx, "blogname")
	require.NoError(t, err)
	require.Equal(t, "Charm", o.Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

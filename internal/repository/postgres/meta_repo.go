package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// metaTable names the table and owner column of one object type's meta.
type metaTable struct {
	table  string
	column string
}

var metaTables = map[model.ObjectType]metaTable{
	model.ObjectPost:    {"postmeta", "post_id"},
	model.ObjectUser:    {"usermeta", "user_id"},
	model.ObjectTerm:    {"termmeta", "term_id"},
	model.ObjectSite:    {"sitemeta", "site_id"},
	model.ObjectNetwork: {"networkmeta", "network_id"},
}

func tableFor(t model.ObjectType) (metaTable, error) {
	mt, ok := metaTables[t]
	if !ok {
		return metaTable{}, fmt.Errorf("%w: no meta for object type %q", errs.ErrInvalid, t)
	}
	return mt, nil
}

// MetaRepo implements MetaRepository using PostgreSQL.
type MetaRepo struct{ db *DB }

// NewMetaRepo constructs a meta repository.
func NewMetaRepo(db *DB) *MetaRepo { return &MetaRepo{db: db} }

// List returns the rows of one object, optionally limited to one key.
func (r *MetaRepo) List(ctx context.Context, t model.ObjectType, objectID int64, key string) ([]model.MetaRow, error) {
	mt, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT meta_id, %s, meta_key, meta_value FROM %s WHERE %s=$1`, mt.column, mt.table, mt.column)
	args := []any{objectID}
	if key != "" {
		q += ` AND meta_key=$2`
		args = append(args, key)
	}
	q += ` ORDER BY meta_id`

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MetaRow
	for rows.Next() {
		var m model.MetaRow
		if err := rows.Scan(&m.ID, &m.ObjectID, &m.Key, &m.Value); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get selects one row by meta id.
func (r *MetaRepo) Get(ctx context.Context, t model.ObjectType, metaID int64) (model.MetaRow, error) {
	mt, err := tableFor(t)
	if err != nil {
		return model.MetaRow{}, err
	}
	q := fmt.Sprintf(`SELECT meta_id, %s, meta_key, meta_value FROM %s WHERE meta_id=$1`, mt.column, mt.table)
	var m model.MetaRow
	if err := r.db.Pool.QueryRow(ctx, q, metaID).Scan(&m.ID, &m.ObjectID, &m.Key, &m.Value); err != nil {
		return model.MetaRow{}, mapErr(err)
	}
	return m, nil
}

// Insert adds a row and returns its meta id.
func (r *MetaRepo) Insert(ctx context.Context, t model.ObjectType, objectID int64, key, value string) (int64, error) {
	mt, err := tableFor(t)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`INSERT INTO %s (%s, meta_key, meta_value) VALUES ($1,$2,$3) RETURNING meta_id`, mt.table, mt.column)
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, objectID, key, value).Scan(&id); err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// UpdateValue rewrites the value of one row.
func (r *MetaRepo) UpdateValue(ctx context.Context, t model.ObjectType, metaID int64, value string) error {
	mt, err := tableFor(t)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET meta_value=$2 WHERE meta_id=$1`, mt.table), metaID, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes one row by meta id.
func (r *MetaRepo) Delete(ctx context.Context, t model.ObjectType, metaID int64) error {
	mt, err := tableFor(t)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE meta_id=$1`, mt.table), metaID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

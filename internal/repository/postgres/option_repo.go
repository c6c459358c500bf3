package postgres

import (
	"context"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// OptionRepo implements OptionRepository using PostgreSQL.
type OptionRepo struct{ db *DB }

// NewOptionRepo constructs an option repository.
func NewOptionRepo(db *DB) *OptionRepo { return &OptionRepo{db: db} }

// Get selects an option by name.
func (r *OptionRepo) Get(ctx context.Context, name string) (*model.Option, error) {
	const q = `SELECT option_id, option_name, option_value, autoload FROM options WHERE option_name=$1`
	var o model.Option
	if err := r.db.Pool.QueryRow(ctx, q, name).Scan(&o.ID, &o.Name, &o.Value, &o.Autoload); err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

// Upsert inserts or replaces an option.
func (r *OptionRepo) Upsert(ctx context.Context, name, value string, autoload bool) error {
	const q = `
INSERT INTO options (option_name, option_value, autoload) VALUES ($1,$2,$3)
ON CONFLICT (option_name) DO UPDATE SET option_value=EXCLUDED.option_value, autoload=EXCLUDED.autoload`
	_, err := r.db.Pool.Exec(ctx, q, name, value, autoload)
	return err
}

// Delete removes an option.
func (r *OptionRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM options WHERE option_name=$1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

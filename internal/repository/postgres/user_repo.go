package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, user_login, user_pass, user_nicename, user_email, user_url, user_registered,
user_activation_key, user_status, display_name`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PassHash, &u.Nicename, &u.Email, &u.URL, &u.Registered,
		&u.ActivationKey, &u.Status, &u.DisplayName)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// Insert inserts a new user row.
func (r *UserRepo) Insert(ctx context.Context, u *model.User) (int64, error) {
	const q = `
INSERT INTO users (user_login, user_pass, user_nicename, user_email, user_url, user_registered,
user_activation_key, user_status, display_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	var id int64
	err := r.db.Pool.QueryRow(ctx, q, u.Login, u.PassHash, u.Nicename, u.Email, u.URL, u.Registered,
		u.ActivationKey, u.Status, u.DisplayName).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// Update overwrites the row of u.ID.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users SET user_login=$2, user_pass=$3, user_nicename=$4, user_email=$5, user_url=$6,
user_activation_key=$7, user_status=$8, display_name=$9
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, u.Login, u.PassHash, u.Nicename, u.Email, u.URL,
		u.ActivationKey, u.Status, u.DisplayName)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get selects a user by ID.
func (r *UserRepo) Get(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// GetByLogin selects a user by login.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_login=$1`, login))
}

// GetByEmail selects a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(user_email)=lower($1)`, email))
}

// GetBySlug selects a user by nicename.
func (r *UserRepo) GetBySlug(ctx context.Context, slug string) (*model.User, error) {
	return scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_nicename=$1`, slug))
}

// Query lists users ordered by login.
func (r *UserRepo) Query(ctx context.Context, uq model.UserQuery) ([]model.User, error) {
	var w where
	if uq.Search != "" {
		s := "%" + uq.Search + "%"
		w.add("(user_login ILIKE ? OR user_email ILIKE ? OR display_name ILIKE ?)", s, s, s)
	}
	if uq.Role != "" {
		w.add(`EXISTS (SELECT 1 FROM usermeta m WHERE m.user_id=users.id AND m.meta_key='`+
			model.MetaCapabilities+`' AND jsonb_exists(m.meta_value::jsonb, ?))`, uq.Role)
	}
	cond := w.String()
	q := `SELECT ` + userColumns + ` FROM users` + cond + ` ORDER BY user_login` + w.page(uq.Limit, uq.Offset)

	rows, err := r.db.Pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Delete removes a user and its meta.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM usermeta WHERE user_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

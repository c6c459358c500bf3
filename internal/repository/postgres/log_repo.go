package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/charm/internal/model"
)

// LogRepo implements LogRepository using PostgreSQL.
type LogRepo struct{ db *DB }

// NewLogRepo constructs an audit log repository.
func NewLogRepo(db *DB) *LogRepo { return &LogRepo{db: db} }

// logsDDL is safe to run on every start.
const logsDDL = `
CREATE TABLE IF NOT EXISTS logs (
    id              BIGSERIAL PRIMARY KEY,
    user_id         BIGINT REFERENCES users(id) ON DELETE SET NULL,
    user_name       TEXT NOT NULL DEFAULT '',
    action          VARCHAR(64) NOT NULL,
    object_type     VARCHAR(64) NOT NULL DEFAULT '',
    object_id       BIGINT NOT NULL DEFAULT 0,
    object_name     TEXT NOT NULL DEFAULT '',
    sub_action      VARCHAR(64) NOT NULL DEFAULT '',
    sub_object_type VARCHAR(64) NOT NULL DEFAULT '',
    sub_object_id   BIGINT NOT NULL DEFAULT 0,
    sub_object_name TEXT NOT NULL DEFAULT '',
    success         BOOLEAN NOT NULL DEFAULT TRUE,
    message         TEXT NOT NULL DEFAULT '',
    detail          JSONB,
    date            TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS logs_object_idx ON logs (object_type, object_id);
CREATE INDEX IF NOT EXISTS logs_user_idx ON logs (user_id);`

const logColumns = `id, user_id, user_name, action, object_type, object_id, object_name, sub_action,
sub_object_type, sub_object_id, sub_object_name, success, message, detail, date`

// EnsureTable creates the logs table when missing.
func (r *LogRepo) EnsureTable(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, logsDDL)
	return err
}

func scanLog(row pgx.Row) (*model.Log, error) {
	var (
		l      model.Log
		userID *int64
		objT   string
		subT   string
	)
	err := row.Scan(&l.ID, &userID, &l.UserName, &l.Action, &objT, &l.ObjectID, &l.ObjectName,
		&l.SubAction, &subT, &l.SubObjectID, &l.SubObjectName, &l.Success, &l.Message, &l.Detail, &l.Date)
	if err != nil {
		return nil, mapErr(err)
	}
	if userID != nil {
		l.UserID = *userID
	}
	l.ObjectType, l.SubObjectType = model.ObjectType(objT), model.ObjectType(subT)
	return &l, nil
}

// Insert stores one audit row and returns its id.
func (r *LogRepo) Insert(ctx context.Context, l *model.Log) (int64, error) {
	const q = `
INSERT INTO logs (user_id, user_name, action, object_type, object_id, object_name, sub_action,
sub_object_type, sub_object_id, sub_object_name, success, message, detail, date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id`
	var detail any
	if len(l.Detail) > 0 {
		detail = l.Detail
	}
	var id int64
	err := r.db.Pool.QueryRow(ctx, q, nullID(l.UserID), l.UserName, l.Action, string(l.ObjectType), l.ObjectID,
		l.ObjectName, l.SubAction, string(l.SubObjectType), l.SubObjectID, l.SubObjectName, l.Success,
		l.Message, detail, l.Date).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// Get selects one audit row.
func (r *LogRepo) Get(ctx context.Context, id int64) (*model.Log, error) {
	return scanLog(r.db.Pool.QueryRow(ctx, `SELECT `+logColumns+` FROM logs WHERE id=$1`, id))
}

// List returns audit rows newest first.
func (r *LogRepo) List(ctx context.Context, lq model.LogQuery) ([]model.Log, error) {
	var w where
	if lq.Action != "" {
		w.add("action=?", lq.Action)
	}
	if lq.ObjectType != "" {
		w.add("object_type=?", string(lq.ObjectType))
	}
	if lq.ObjectID > 0 {
		w.add("object_id=?", lq.ObjectID)
	}
	if lq.UserID > 0 {
		w.add("user_id=?", lq.UserID)
	}
	cond := w.String()
	q := `SELECT ` + logColumns + ` FROM logs` + cond + ` ORDER BY date DESC, id DESC` + w.page(lq.Limit, lq.Offset)

	rows, err := r.db.Pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

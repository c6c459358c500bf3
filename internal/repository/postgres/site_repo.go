package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// SiteRepo implements SiteRepository using PostgreSQL.
type SiteRepo struct{ db *DB }

// NewSiteRepo constructs a site repository.
func NewSiteRepo(db *DB) *SiteRepo { return &SiteRepo{db: db} }

const siteColumns = `id, network_id, domain, path, registered, last_updated, public, archived, mature, spam, deleted, lang_id`

func scanSite(row pgx.Row) (*model.Site, error) {
	var s model.Site
	err := row.Scan(&s.ID, &s.NetworkID, &s.Domain, &s.Path, &s.Registered, &s.LastUpdated,
		&s.Public, &s.Archived, &s.Mature, &s.Spam, &s.Deleted, &s.LangID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// Insert stores a new site row.
func (r *SiteRepo) Insert(ctx context.Context, s *model.Site) (int64, error) {
	const q = `
INSERT INTO sites (network_id, domain, path, registered, last_updated, public, archived, mature, spam, deleted, lang_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id`
	var id int64
	err := r.db.Pool.QueryRow(ctx, q, s.NetworkID, s.Domain, s.Path, s.Registered, s.LastUpdated,
		s.Public, s.Archived, s.Mature, s.Spam, s.Deleted, s.LangID).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// Update overwrites the row of s.ID.
func (r *SiteRepo) Update(ctx context.Context, s *model.Site) error {
	const q = `
UPDATE sites SET network_id=$2, domain=$3, path=$4, last_updated=$5, public=$6, archived=$7,
mature=$8, spam=$9, deleted=$10, lang_id=$11
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, s.ID, s.NetworkID, s.Domain, s.Path, s.LastUpdated,
		s.Public, s.Archived, s.Mature, s.Spam, s.Deleted, s.LangID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get selects a site by id.
func (r *SiteRepo) Get(ctx context.Context, id int64) (*model.Site, error) {
	return scanSite(r.db.Pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id=$1`, id))
}

// GetByDomainPath selects a site by its address.
func (r *SiteRepo) GetByDomainPath(ctx context.Context, domain, path string) (*model.Site, error) {
	return scanSite(r.db.Pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE domain=$1 AND path=$2`, domain, path))
}

// Query lists sites ordered by id.
func (r *SiteRepo) Query(ctx context.Context, networkID int64, limit, offset int) ([]model.Site, error) {
	var w where
	if networkID > 0 {
		w.add("network_id=?", networkID)
	}
	cond := w.String()
	q := `SELECT ` + siteColumns + ` FROM sites` + cond + ` ORDER BY id` + w.page(limit, offset)
	rows, err := r.db.Pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Delete removes a site and its meta.
func (r *SiteRepo) Delete(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM sitemeta WHERE site_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM sites WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// NetworkRepo implements NetworkRepository using PostgreSQL.
type NetworkRepo struct{ db *DB }

// NewNetworkRepo constructs a network repository.
func NewNetworkRepo(db *DB) *NetworkRepo { return &NetworkRepo{db: db} }

func scanNetwork(row pgx.Row) (*model.Network, error) {
	var n model.Network
	if err := row.Scan(&n.ID, &n.Domain, &n.Path); err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

// Insert stores a new network row.
func (r *NetworkRepo) Insert(ctx context.Context, n *model.Network) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx, `INSERT INTO networks (domain, path) VALUES ($1,$2) RETURNING id`, n.Domain, n.Path).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// Update overwrites the row of n.ID.
func (r *NetworkRepo) Update(ctx context.Context, n *model.Network) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE networks SET domain=$2, path=$3 WHERE id=$1`, n.ID, n.Domain, n.Path)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get selects a network by id.
func (r *NetworkRepo) Get(ctx context.Context, id int64) (*model.Network, error) {
	return scanNetwork(r.db.Pool.QueryRow(ctx, `SELECT id, domain, path FROM networks WHERE id=$1`, id))
}

// GetByDomainPath selects a network by its address.
func (r *NetworkRepo) GetByDomainPath(ctx context.Context, domain, path string) (*model.Network, error) {
	return scanNetwork(r.db.Pool.QueryRow(ctx, `SELECT id, domain, path FROM networks WHERE domain=$1 AND path=$2`, domain, path))
}

// List returns every network ordered by id.
func (r *NetworkRepo) List(ctx context.Context) ([]model.Network, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, domain, path FROM networks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Network
	for rows.Next() {
		n, err := scanNetwork(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Delete removes a network and its meta. Sites still attached make it fail.
func (r *NetworkRepo) Delete(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		var attached bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sites WHERE network_id=$1)`, id).Scan(&attached); err != nil {
			return err
		}
		if attached {
			return fmt.Errorf("%w: network %d still has sites", errs.ErrInvalid, id)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM networkmeta WHERE network_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM networks WHERE id=$1`, id)
		if err != nil {
			return mapErr(err)
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

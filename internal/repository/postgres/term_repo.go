package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// TermRepo implements TermRepository using PostgreSQL.
type TermRepo struct{ db *DB }

// NewTermRepo constructs a term repository.
func NewTermRepo(db *DB) *TermRepo { return &TermRepo{db: db} }

const termSelect = `
SELECT t.term_id, t.name, t.slug, t.term_group, tt.term_taxonomy_id, tt.taxonomy, tt.description, tt.parent, tt.count
FROM terms t JOIN term_taxonomy tt ON tt.term_id = t.term_id`

func scanTerm(row pgx.Row) (*model.Term, error) {
	var t model.Term
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Group, &t.TaxonomyID, &t.Taxonomy, &t.Description, &t.Parent, &t.Count)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *TermRepo) list(ctx context.Context, q string, args ...any) ([]model.Term, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Insert stores the term row and its taxonomy row in one transaction.
func (r *TermRepo) Insert(ctx context.Context, t *model.Term) (termID, taxonomyID int64, err error) {
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		const insTerm = `INSERT INTO terms (name, slug, term_group) VALUES ($1,$2,$3) RETURNING term_id`
		const insTax = `
INSERT INTO term_taxonomy (term_id, taxonomy, description, parent, count)
VALUES ($1,$2,$3,$4,0) RETURNING term_taxonomy_id`
		if err := tx.QueryRow(ctx, insTerm, t.Name, t.Slug, t.Group).Scan(&termID); err != nil {
			return mapErr(err)
		}
		if err := tx.QueryRow(ctx, insTax, termID, t.Taxonomy, t.Description, t.Parent).Scan(&taxonomyID); err != nil {
			return mapErr(err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return termID, taxonomyID, nil
}

// Update overwrites the term row and the taxonomy row of t.TaxonomyID.
func (r *TermRepo) Update(ctx context.Context, t *model.Term) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		const updTerm = `UPDATE terms SET name=$2, slug=$3, term_group=$4 WHERE term_id=$1`
		const updTax = `UPDATE term_taxonomy SET description=$2, parent=$3 WHERE term_taxonomy_id=$1`
		tag, err := tx.Exec(ctx, updTerm, t.ID, t.Name, t.Slug, t.Group)
		if err != nil {
			return mapErr(err)
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		if _, err := tx.Exec(ctx, updTax, t.TaxonomyID, t.Description, t.Parent); err != nil {
			return mapErr(err)
		}
		return nil
	})
}

// Get selects a term by term_id, optionally within one taxonomy.
func (r *TermRepo) Get(ctx context.Context, termID int64, taxonomy string) (*model.Term, error) {
	if taxonomy == "" {
		return scanTerm(r.db.Pool.QueryRow(ctx, termSelect+` WHERE t.term_id=$1 ORDER BY tt.term_taxonomy_id LIMIT 1`, termID))
	}
	return scanTerm(r.db.Pool.QueryRow(ctx, termSelect+` WHERE t.term_id=$1 AND tt.taxonomy=$2`, termID, taxonomy))
}

// GetByTaxonomyID selects a term by term_taxonomy_id.
func (r *TermRepo) GetByTaxonomyID(ctx context.Context, taxonomyID int64) (*model.Term, error) {
	return scanTerm(r.db.Pool.QueryRow(ctx, termSelect+` WHERE tt.term_taxonomy_id=$1`, taxonomyID))
}

// GetBySlug selects a term by slug within a taxonomy.
func (r *TermRepo) GetBySlug(ctx context.Context, slug, taxonomy string) (*model.Term, error) {
	return scanTerm(r.db.Pool.QueryRow(ctx, termSelect+` WHERE t.slug=$1 AND tt.taxonomy=$2`, slug, taxonomy))
}

// GetByName selects the first term with name within a taxonomy.
func (r *TermRepo) GetByName(ctx context.Context, name, taxonomy string) (*model.Term, error) {
	return scanTerm(r.db.Pool.QueryRow(ctx,
		termSelect+` WHERE t.name=$1 AND tt.taxonomy=$2 ORDER BY t.term_id LIMIT 1`, name, taxonomy))
}

// SlugExists reports whether slug is taken by another term of the taxonomy.
func (r *TermRepo) SlugExists(ctx context.Context, slug, taxonomy string, excludeTermID int64) (bool, error) {
	const q = `
SELECT EXISTS (SELECT 1 FROM terms t JOIN term_taxonomy tt ON tt.term_id=t.term_id
WHERE t.slug=$1 AND tt.taxonomy=$2 AND t.term_id<>$3)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, slug, taxonomy, excludeTermID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// NameExists reports whether a sibling term with the same name exists.
func (r *TermRepo) NameExists(ctx context.Context, name, taxonomy string, parent, excludeTermID int64) (bool, error) {
	const q = `
SELECT EXISTS (SELECT 1 FROM terms t JOIN term_taxonomy tt ON tt.term_id=t.term_id
WHERE lower(t.name)=lower($1) AND tt.taxonomy=$2 AND tt.parent=$3 AND t.term_id<>$4)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, name, taxonomy, parent, excludeTermID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Query lists terms ordered by name.
func (r *TermRepo) Query(ctx context.Context, tq model.TermQuery) ([]model.Term, error) {
	var w where
	if tq.Taxonomy != "" {
		w.add("tt.taxonomy=?", tq.Taxonomy)
	}
	if tq.Parent != nil {
		w.add("tt.parent=?", *tq.Parent)
	}
	if tq.HideEmpty {
		w.add("tt.count > 0")
	}
	if tq.Search != "" {
		s := "%" + tq.Search + "%"
		w.add("(t.name ILIKE ? OR t.slug ILIKE ?)", s, s)
	}
	cond := w.String()
	q := termSelect + cond + ` ORDER BY t.name, tt.term_taxonomy_id` + w.page(tq.Limit, tq.Offset)
	return r.list(ctx, q, w.args...)
}

// Delete removes the taxonomy row, its relationships, and the term if orphaned.
func (r *TermRepo) Delete(ctx context.Context, taxonomyID int64) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		var termID int64
		err := tx.QueryRow(ctx, `SELECT term_id FROM term_taxonomy WHERE term_taxonomy_id=$1 FOR UPDATE`, taxonomyID).Scan(&termID)
		if err != nil {
			return mapErr(err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM term_relationships WHERE term_taxonomy_id=$1`, taxonomyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE term_taxonomy SET parent=0 WHERE parent=$1`, termID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM term_taxonomy WHERE term_taxonomy_id=$1`, taxonomyID); err != nil {
			return err
		}
		const delOrphan = `DELETE FROM terms WHERE term_id=$1 AND NOT EXISTS (SELECT 1 FROM term_taxonomy WHERE term_id=$1)`
		tag, err := tx.Exec(ctx, delOrphan, termID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM termmeta WHERE term_id=$1`, termID); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddRelationship attaches objectID to the term and bumps its count.
func (r *TermRepo) AddRelationship(ctx context.Context, objectID, taxonomyID int64) (added bool, err error) {
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		const ins = `
INSERT INTO term_relationships (object_id, term_taxonomy_id) VALUES ($1,$2)
ON CONFLICT (object_id, term_taxonomy_id) DO NOTHING`
		tag, err := tx.Exec(ctx, ins, objectID, taxonomyID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		added = true
		_, err = tx.Exec(ctx, `UPDATE term_taxonomy SET count = count + 1 WHERE term_taxonomy_id=$1`, taxonomyID)
		return err
	})
	return added, err
}

// RemoveRelationship detaches objectID from the term and lowers its count.
func (r *TermRepo) RemoveRelationship(ctx context.Context, objectID, taxonomyID int64) (removed bool, err error) {
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM term_relationships WHERE object_id=$1 AND term_taxonomy_id=$2`, objectID, taxonomyID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		removed = true
		_, err = tx.Exec(ctx, `UPDATE term_taxonomy SET count = GREATEST(count - 1, 0) WHERE term_taxonomy_id=$1`, taxonomyID)
		return err
	})
	return removed, err
}

// ObjectTerms lists the terms attached to objectID.
func (r *TermRepo) ObjectTerms(ctx context.Context, objectID int64, taxonomy string) ([]model.Term, error) {
	q := termSelect + ` JOIN term_relationships tr ON tr.term_taxonomy_id = tt.term_taxonomy_id WHERE tr.object_id=$1`
	args := []any{objectID}
	if taxonomy != "" {
		q += ` AND tt.taxonomy=$2`
		args = append(args, taxonomy)
	}
	q += ` ORDER BY tr.term_order, t.name`
	return r.list(ctx, q, args...)
}

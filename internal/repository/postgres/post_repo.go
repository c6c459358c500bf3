package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

// PostRepo implements PostRepository using PostgreSQL.
type PostRepo struct{ db *DB }

// NewPostRepo constructs a post repository.
func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

const postColumns = `id, post_author, post_date, post_date_gmt, post_content, post_title, post_excerpt,
post_status, comment_status, ping_status, post_password, post_name, post_modified, post_modified_gmt,
post_parent, guid, menu_order, post_type, post_mime_type, comment_count`

func scanPost(row pgx.Row) (*model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.Author, &p.Date, &p.DateGMT, &p.Content, &p.Title, &p.Excerpt,
		&p.Status, &p.CommentStatus, &p.PingStatus, &p.Password, &p.Slug, &p.Modified, &p.ModifiedGMT,
		&p.Parent, &p.GUID, &p.MenuOrder, &p.Type, &p.MimeType, &p.CommentCount)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// Insert stores a new post row.
func (r *PostRepo) Insert(ctx context.Context, p *model.Post) (int64, error) {
	const q = `
INSERT INTO posts (post_author, post_date, post_date_gmt, post_content, post_title, post_excerpt,
post_status, comment_status, ping_status, post_password, post_name, post_modified, post_modified_gmt,
post_parent, guid, menu_order, post_type, post_mime_type, comment_count)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
RETURNING id`
	var id int64
	err := r.db.Pool.QueryRow(ctx, q, p.Author, p.Date, p.DateGMT, p.Content, p.Title, p.Excerpt,
		p.Status, p.CommentStatus, p.PingStatus, p.Password, p.Slug, p.Modified, p.ModifiedGMT,
		p.Parent, p.GUID, p.MenuOrder, p.Type, p.MimeType, p.CommentCount).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// Update overwrites the row of p.ID.
func (r *PostRepo) Update(ctx context.Context, p *model.Post) error {
	const q = `
UPDATE posts SET post_author=$2, post_date=$3, post_date_gmt=$4, post_content=$5, post_title=$6,
post_excerpt=$7, post_status=$8, comment_status=$9, ping_status=$10, post_password=$11, post_name=$12,
post_modified=$13, post_modified_gmt=$14, post_parent=$15, guid=$16, menu_order=$17, post_type=$18,
post_mime_type=$19, comment_count=$20
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, p.ID, p.Author, p.Date, p.DateGMT, p.Content, p.Title,
		p.Excerpt, p.Status, p.CommentStatus, p.PingStatus, p.Password, p.Slug,
		p.Modified, p.ModifiedGMT, p.Parent, p.GUID, p.MenuOrder, p.Type,
		p.MimeType, p.CommentCount)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get selects a post by id.
func (r *PostRepo) Get(ctx context.Context, id int64) (*model.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE id=$1`
	return scanPost(r.db.Pool.QueryRow(ctx, q, id))
}

// GetBySlug selects the oldest post of a type with the given slug.
func (r *PostRepo) GetBySlug(ctx context.Context, slug, postType string) (*model.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE post_name=$1 AND post_type=$2 ORDER BY id LIMIT 1`
	return scanPost(r.db.Pool.QueryRow(ctx, q, slug, postType))
}

// SlugExists reports whether slug is taken by another post of the same type.
func (r *PostRepo) SlugExists(ctx context.Context, slug, postType string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM posts WHERE post_name=$1 AND post_type=$2 AND id<>$3)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, slug, postType, excludeID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

var postOrderColumns = map[string]string{
	"":           "post_date",
	"ID":         "id",
	"post_date":  "post_date",
	"post_title": "post_title",
	"menu_order": "menu_order",
}

// Query lists posts matching q.
func (r *PostRepo) Query(ctx context.Context, pq model.PostQuery) ([]model.Post, error) {
	order, ok := postOrderColumns[pq.OrderBy]
	if !ok {
		return nil, fmt.Errorf("%w: order by %q", errs.ErrInvalid, pq.OrderBy)
	}
	var w where
	if pq.Type != "" {
		w.add("post_type=?", pq.Type)
	}
	if len(pq.Status) > 0 {
		w.add("post_status = ANY(?)", pq.Status)
	}
	if pq.Author > 0 {
		w.add("post_author=?", pq.Author)
	}
	if pq.Parent != nil {
		w.add("post_parent=?", *pq.Parent)
	}
	if pq.Search != "" {
		w.add("(post_title ILIKE ? OR post_content ILIKE ?)", "%"+pq.Search+"%", "%"+pq.Search+"%")
	}
	dir := "ASC"
	if pq.Desc {
		dir = "DESC"
	}
	cond := w.String()
	q := `SELECT ` + postColumns + ` FROM posts` + cond +
		` ORDER BY ` + order + ` ` + dir + `, id ` + dir + w.page(pq.Limit, pq.Offset)

	rows, err := r.db.Pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete removes a post, its meta and its term relationships atomically.
func (r *PostRepo) Delete(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		const delMeta = `DELETE FROM postmeta WHERE post_id=$1`
		const delRel = `
UPDATE term_taxonomy SET count = count - 1
WHERE term_taxonomy_id IN (SELECT term_taxonomy_id FROM term_relationships WHERE object_id=$1)`
		const delRows = `DELETE FROM term_relationships WHERE object_id=$1`
		const delPost = `DELETE FROM posts WHERE id=$1`

		for _, q := range []string{delMeta, delRel, delRows} {
			if _, err := tx.Exec(ctx, q, id); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, delPost, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// ReassignAuthor hands every post of from over to to.
func (r *PostRepo) ReassignAuthor(ctx context.Context, from, to int64) (int64, error) {
	const q = `UPDATE posts SET post_author=$2 WHERE post_author=$1`
	tag, err := r.db.Pool.Exec(ctx, q, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package model

import (
	"reflect"
	"time"
)

// Post statuses.
const (
	StatusPublish   = "publish"
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPrivate   = "private"
	StatusFuture    = "future"
	StatusTrash     = "trash"
	StatusAutoDraft = "auto-draft"
	StatusInherit   = "inherit"
)

// Built-in post types.
const (
	PostTypePost       = "post"
	PostTypePage       = "page"
	PostTypeAttachment = "attachment"
	PostTypeRevision   = "revision"
	PostTypeNavMenu    = "nav_menu_item"
)

// Meta keys written while a post sits in the trash.
const (
	MetaTrashStatus = "_wp_trash_meta_status"
	MetaTrashTime   = "_wp_trash_meta_time"
)

// Post is a row of the posts table.
type Post struct {
	ID            int64     `mapstructure:"ID"`
	Author        int64     `mapstructure:"post_author"`
	Date          time.Time `mapstructure:"post_date"`
	DateGMT       time.Time `mapstructure:"post_date_gmt"`
	Content       string    `mapstructure:"post_content"`
	Title         string    `mapstructure:"post_title"`
	Excerpt       string    `mapstructure:"post_excerpt"`
	Status        string    `mapstructure:"post_status"`
	CommentStatus string    `mapstructure:"comment_status"`
	PingStatus    string    `mapstructure:"ping_status"`
	Password      string    `mapstructure:"post_password"`
	Slug          string    `mapstructure:"post_name"`
	Modified      time.Time `mapstructure:"post_modified"`
	ModifiedGMT   time.Time `mapstructure:"post_modified_gmt"`
	Parent        int64     `mapstructure:"post_parent"`
	GUID          string    `mapstructure:"guid"`
	MenuOrder     int       `mapstructure:"menu_order"`
	Type          string    `mapstructure:"post_type"`
	MimeType      string    `mapstructure:"post_mime_type"`
	CommentCount  int64     `mapstructure:"comment_count"`
}

// Exists reports whether the post is backed by a stored row.
func (p *Post) Exists() bool { return p != nil && p.ID > 0 }

// FieldChange is one entry of an update diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Changes returns the columns that differ between before and p, keyed by column name.
// Modification timestamps are left out.
func (p *Post) Changes(before *Post) map[string]FieldChange {
	out := map[string]FieldChange{}
	if before == nil {
		return out
	}
	add := func(col string, o, n any) {
		if !reflect.DeepEqual(o, n) {
			out[col] = FieldChange{Old: o, New: n}
		}
	}
	add("post_author", before.Author, p.Author)
	if !before.Date.Equal(p.Date) {
		add("post_date", before.Date, p.Date)
	}
	add("post_content", before.Content, p.Content)
	add("post_title", before.Title, p.Title)
	add("post_excerpt", before.Excerpt, p.Excerpt)
	add("post_status", before.Status, p.Status)
	add("comment_status", before.CommentStatus, p.CommentStatus)
	add("ping_status", before.PingStatus, p.PingStatus)
	add("post_password", before.Password != "", p.Password != "")
	add("post_name", before.Slug, p.Slug)
	add("post_parent", before.Parent, p.Parent)
	add("menu_order", before.MenuOrder, p.MenuOrder)
	add("post_type", before.Type, p.Type)
	add("post_mime_type", before.MimeType, p.MimeType)
	return out
}

// PostQuery filters a post listing. Zero values mean "any".
type PostQuery struct {
	Type    string
	Status  []string
	Author  int64
	Parent  *int64
	Search  string
	OrderBy string // one of "ID", "post_date", "post_title", "menu_order"
	Desc    bool
	Limit   int
	Offset  int
}

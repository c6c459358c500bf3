package model

// Built-in taxonomies.
const (
	TaxonomyCategory = "category"
	TaxonomyPostTag  = "post_tag"
	TaxonomyNavMenu  = "nav_menu"
)

// Term joins a terms row with its term_taxonomy row.
type Term struct {
	ID          int64  `mapstructure:"term_id"`
	Name        string `mapstructure:"name"`
	Slug        string `mapstructure:"slug"`
	Group       int64  `mapstructure:"term_group"`
	TaxonomyID  int64  `mapstructure:"term_taxonomy_id"`
	Taxonomy    string `mapstructure:"taxonomy"`
	Description string `mapstructure:"description"`
	Parent      int64  `mapstructure:"parent"`
	Count       int64  `mapstructure:"count"`
}

// Exists reports whether the term is backed by a stored row.
func (t *Term) Exists() bool { return t != nil && t.ID > 0 }

// TermQuery filters a term listing.
type TermQuery struct {
	Taxonomy  string
	Parent    *int64
	HideEmpty bool
	Search    string
	Limit     int
	Offset    int
}

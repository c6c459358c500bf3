package model

// OptionUserRoles is the option that stores every role definition.
const OptionUserRoles = "user_roles"

// Role is a named set of capabilities.
type Role struct {
	Name         string          `mapstructure:"name" json:"-"`
	DisplayName  string          `mapstructure:"display_name" json:"name"`
	Capabilities map[string]bool `mapstructure:"capabilities" json:"capabilities"`

	// Persisted is set once the role is read from or written to the store.
	Persisted bool `mapstructure:"-" json:"-"`
}

// Exists reports whether the role is stored.
func (r *Role) Exists() bool { return r != nil && r.Persisted }

// Has reports whether the role grants capability.
func (r *Role) Has(capability string) bool {
	return r != nil && r.Capabilities[capability]
}

// DefaultRoles returns the five stock roles.
func DefaultRoles() []Role {
	sub := caps("read")
	contrib := caps("read", "edit_posts", "delete_posts")
	author := caps("read", "edit_posts", "delete_posts", "edit_published_posts",
		"publish_posts", "delete_published_posts", "upload_files")
	editor := caps("read", "edit_posts", "delete_posts", "edit_published_posts",
		"publish_posts", "delete_published_posts", "upload_files", "edit_others_posts",
		"delete_others_posts", "edit_pages", "publish_pages", "delete_pages",
		"edit_others_pages", "manage_categories", "moderate_comments")
	admin := caps("read", "edit_posts", "delete_posts", "edit_published_posts",
		"publish_posts", "delete_published_posts", "upload_files", "edit_others_posts",
		"delete_others_posts", "edit_pages", "publish_pages", "delete_pages",
		"edit_others_pages", "manage_categories", "moderate_comments", "manage_options",
		"list_users", "create_users", "edit_users", "delete_users", "promote_users")
	return []Role{
		{Name: "administrator", DisplayName: "Administrator", Capabilities: admin},
		{Name: "editor", DisplayName: "Editor", Capabilities: editor},
		{Name: "author", DisplayName: "Author", Capabilities: author},
		{Name: "contributor", DisplayName: "Contributor", Capabilities: contrib},
		{Name: "subscriber", DisplayName: "Subscriber", Capabilities: sub},
	}
}

func caps(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

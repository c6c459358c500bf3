package model

import "time"

// MetaCapabilities is the usermeta key holding the role map of a user.
const MetaCapabilities = "capabilities"

// User represents an account row. Sensitive keys are never stored in plaintext.
type User struct {
	ID            int64     `mapstructure:"ID"`
	Login         string    `mapstructure:"user_login"`
	PassHash      string    `mapstructure:"-"`
	Nicename      string    `mapstructure:"user_nicename"`
	Email         string    `mapstructure:"user_email"`
	URL           string    `mapstructure:"user_url"`
	Registered    time.Time `mapstructure:"user_registered"`
	ActivationKey string    `mapstructure:"user_activation_key"`
	Status        int       `mapstructure:"user_status"`
	DisplayName   string    `mapstructure:"display_name"`

	// Password is a plaintext password waiting to be hashed on the next save.
	Password string `mapstructure:"user_pass"`
	// Roles is loaded from the capabilities usermeta.
	Roles []string `mapstructure:"roles"`
}

// Exists reports whether the user is backed by a stored row.
func (u *User) Exists() bool { return u != nil && u.ID > 0 }

// HasRole reports whether role is assigned to the user.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserQuery filters a user listing.
type UserQuery struct {
	Search string // matched against login, email, display name
	Role   string
	Limit  int
	Offset int
}

// Package model defines the WordPress-schema entities used by services and repositories.
//
// Every entity is a snapshot of one row. Exists reports whether the snapshot is
// backed by a stored row; it is the only thing Save looks at when choosing
// between Create and Update.
package model

import "time"

// ObjectType tags the kind of object a meta row, log row or event refers to.
type ObjectType string

const (
	ObjectPost    ObjectType = "post"
	ObjectUser    ObjectType = "user"
	ObjectTerm    ObjectType = "term"
	ObjectSite    ObjectType = "site"
	ObjectNetwork ObjectType = "network"
	ObjectMeta    ObjectType = "meta"
	ObjectRole    ObjectType = "role"
	ObjectOption  ObjectType = "option"
)

// MetaTypes lists the object types that own a meta table.
var MetaTypes = []ObjectType{ObjectPost, ObjectUser, ObjectTerm, ObjectSite, ObjectNetwork}

// HasMeta reports whether objects of type t carry meta.
func (t ObjectType) HasMeta() bool {
	for _, m := range MetaTypes {
		if m == t {
			return true
		}
	}
	return false
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// Option is a row of the options table.
type Option struct {
	ID       int64  `mapstructure:"option_id"`
	Name     string `mapstructure:"option_name"`
	Value    string `mapstructure:"option_value"`
	Autoload bool   `mapstructure:"autoload"`
}

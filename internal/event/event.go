// Package event is the in-process hook dispatcher: services publish typed
// lifecycle events, subscribers react synchronously in subscription order.
package event

import (
	"github.com/and161185/charm/internal/model"
)

// Hook names a lifecycle moment.
type Hook string

const (
	HookSavePost       Hook = "save_post"
	HookTrashedPost    Hook = "trashed_post"
	HookUntrashedPost  Hook = "untrashed_post"
	HookDeletedPost    Hook = "deleted_post"
	HookAddedMeta      Hook = "added_meta"
	HookUpdatedMeta    Hook = "updated_meta"
	HookDeletedMeta    Hook = "deleted_meta"
	HookCreatedTerm    Hook = "created_term"
	HookEditedTerm     Hook = "edited_term"
	HookDeletedTerm    Hook = "delete_term"
	HookAddedTermRel   Hook = "added_term_relationship"
	HookDeletedTermRel Hook = "deleted_term_relationships"
	HookUserRegister   Hook = "user_register"
	HookLogin          Hook = "wp_login"
	HookLogout         Hook = "wp_logout"
	HookProfileUpdate  Hook = "profile_update"
	HookDeletedUser    Hook = "deleted_user"
	HookAdminInit      Hook = "admin_init"
	HookAdminMenu      Hook = "admin_menu"
)

// Event is a typed payload bound to one hook.
type Event interface {
	Hook() Hook
}

// PostSaved fires after a post row is inserted (Update=false) or updated.
type PostSaved struct {
	Post   model.Post
	Before *model.Post // nil on insert
	Update bool
}

// PostTrashed fires after a post moved to the trash.
type PostTrashed struct{ Post model.Post }

// PostRestored fires after a post left the trash.
type PostRestored struct{ Post model.Post }

// PostDeleted fires after a post row and its meta are gone.
type PostDeleted struct{ Post model.Post }

// MetaAdded fires after a meta row is inserted.
type MetaAdded struct{ Meta model.Meta }

// MetaUpdated fires after a meta row changed; Meta.PrevValue holds the old value.
type MetaUpdated struct{ Meta model.Meta }

// MetaDeleted fires after a meta row is removed.
type MetaDeleted struct{ Meta model.Meta }

// TermCreated fires after a term and its taxonomy row are inserted.
type TermCreated struct{ Term model.Term }

// TermEdited fires after a term is updated.
type TermEdited struct {
	Term   model.Term
	Before *model.Term
}

// TermDeleted fires after a term is removed from its taxonomy.
type TermDeleted struct{ Term model.Term }

// TermRelAdded fires after an object is attached to a term.
type TermRelAdded struct {
	ObjectID int64
	Term     model.Term
}

// TermRelDeleted fires after an object is detached from a term.
type TermRelDeleted struct {
	ObjectID int64
	Term     model.Term
}

// UserRegistered fires after a user row is inserted.
type UserRegistered struct{ User model.User }

// UserLogin fires after a successful password check.
type UserLogin struct{ User model.User }

// UserLogout fires when a user ends a session.
type UserLogout struct{ UserID int64 }

// UserUpdated fires after a user row is updated.
type UserUpdated struct {
	User   model.User
	Before *model.User
}

// UserDeleted fires after a user row is removed.
type UserDeleted struct {
	User       model.User
	ReassignTo int64
}

// AdminInit fires when the admin area initializes settings.
type AdminInit struct{}

// AdminMenu fires when the admin menu is built.
type AdminMenu struct{}

func (PostSaved) Hook() Hook      { return HookSavePost }
func (PostTrashed) Hook() Hook    { return HookTrashedPost }
func (PostRestored) Hook() Hook   { return HookUntrashedPost }
func (PostDeleted) Hook() Hook    { return HookDeletedPost }
func (MetaAdded) Hook() Hook      { return HookAddedMeta }
func (MetaUpdated) Hook() Hook    { return HookUpdatedMeta }
func (MetaDeleted) Hook() Hook    { return HookDeletedMeta }
func (TermCreated) Hook() Hook    { return HookCreatedTerm }
func (TermEdited) Hook() Hook     { return HookEditedTerm }
func (TermDeleted) Hook() Hook    { return HookDeletedTerm }
func (TermRelAdded) Hook() Hook   { return HookAddedTermRel }
func (TermRelDeleted) Hook() Hook { return HookDeletedTermRel }
func (UserRegistered) Hook() Hook { return HookUserRegister }
func (UserLogin) Hook() Hook      { return HookLogin }
func (UserLogout) Hook() Hook     { return HookLogout }
func (UserUpdated) Hook() Hook    { return HookProfileUpdate }
func (UserDeleted) Hook() Hook    { return HookDeletedUser }
func (AdminInit) Hook() Hook      { return HookAdminInit }
func (AdminMenu) Hook() Hook      { return HookAdminMenu }

package audit

import (
	"context"
	"reflect"
	"slices"

	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
)

// Install subscribes the recorder to bus. Calling it again is a no-op until Close.
func (r *Recorder) Install(bus *event.Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bus == nil || r.unsub != nil {
		return
	}
	r.unsub = []func(){
		event.On(bus, guard(r, r.onPostSaved)),
		event.On(bus, guard(r, r.onPostTrashed)),
		event.On(bus, guard(r, r.onPostRestored)),
		event.On(bus, guard(r, r.onPostDeleted)),
		event.On(bus, guard(r, r.onMetaAdded)),
		event.On(bus, guard(r, r.onMetaUpdated)),
		event.On(bus, guard(r, r.onMetaDeleted)),
		event.On(bus, guard(r, r.onTermCreated)),
		event.On(bus, guard(r, r.onTermEdited)),
		event.On(bus, guard(r, r.onTermDeleted)),
		event.On(bus, guard(r, r.onTermRelAdded)),
		event.On(bus, guard(r, r.onTermRelDeleted)),
		event.On(bus, guard(r, r.onUserRegistered)),
		event.On(bus, guard(r, r.onUserLogin)),
		event.On(bus, guard(r, r.onUserLogout)),
		event.On(bus, guard(r, r.onUserUpdated)),
		event.On(bus, guard(r, r.onUserDeleted)),
	}
}

// Close removes every subscription made by Install.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fn := range r.unsub {
		fn()
	}
	r.unsub = nil
}

func guard[E event.Event](r *Recorder, fn func(ctx context.Context, e E)) func(ctx context.Context, e E) {
	return func(ctx context.Context, e E) {
		if Recording(ctx) {
			return
		}
		fn(ctx, e)
	}
}

func (r *Recorder) skipPost(p model.Post) bool {
	return r.postTypes.has(p.Type) || p.Status == model.StatusAutoDraft
}

func postLog(action string, p model.Post) model.Log {
	return model.Log{
		Action:     action,
		ObjectType: model.ObjectPost,
		ObjectID:   p.ID,
		ObjectName: p.Title,
		Success:    true,
	}
}

func (r *Recorder) onPostSaved(ctx context.Context, e event.PostSaved) {
	if r.skipPost(e.Post) {
		return
	}
	if !e.Update {
		r.New(ctx, postLog(model.ActionCreate, e.Post))
		return
	}
	l := postLog(model.ActionUpdate, e.Post)
	if diff := e.Post.Changes(e.Before); len(diff) > 0 {
		l.Detail = make(map[string]any, len(diff))
		for k, v := range diff {
			l.Detail[k] = v
		}
	}
	r.New(ctx, l)
}

func (r *Recorder) onPostTrashed(ctx context.Context, e event.PostTrashed) {
	if !r.skipPost(e.Post) {
		r.New(ctx, postLog(model.ActionTrash, e.Post))
	}
}

func (r *Recorder) onPostRestored(ctx context.Context, e event.PostRestored) {
	if !r.skipPost(e.Post) {
		r.New(ctx, postLog(model.ActionRestore, e.Post))
	}
}

func (r *Recorder) onPostDeleted(ctx context.Context, e event.PostDeleted) {
	if !r.skipPost(e.Post) {
		r.New(ctx, postLog(model.ActionDelete, e.Post))
	}
}

// trackedMeta reports whether a meta row belongs to an object kind that is recorded.
func (r *Recorder) trackedMeta(ctx context.Context, m model.Meta) bool {
	if r.metaKeys.has(m.Key) {
		return false
	}
	switch m.ObjectType {
	case model.ObjectPost:
		if r.posts == nil {
			return true
		}
		p, err := r.posts.Get(ctx, m.ObjectID)
		return err != nil || !r.postTypes.has(p.Type)
	case model.ObjectTerm, model.ObjectUser:
		return true
	default:
		return false
	}
}

func metaLog(sub string, m model.Meta) model.Log {
	return model.Log{
		Action:        model.ActionUpdate,
		ObjectType:    m.ObjectType,
		ObjectID:      m.ObjectID,
		SubAction:     sub,
		SubObjectType: model.ObjectMeta,
		SubObjectID:   m.ID,
		SubObjectName: m.Key,
		Success:       true,
	}
}

func (r *Recorder) onMetaAdded(ctx context.Context, e event.MetaAdded) {
	if !r.trackedMeta(ctx, e.Meta) {
		return
	}
	l := metaLog(model.SubActionAddMeta, e.Meta)
	l.Detail = map[string]any{"new": e.Meta.Value}
	r.New(ctx, l)
}

func (r *Recorder) onMetaUpdated(ctx context.Context, e event.MetaUpdated) {
	if !r.trackedMeta(ctx, e.Meta) {
		return
	}
	l := metaLog(model.SubActionUpdateMeta, e.Meta)
	l.Detail = map[string]any{"old": e.Meta.PrevValue, "new": e.Meta.Value}
	r.New(ctx, l)
}

func (r *Recorder) onMetaDeleted(ctx context.Context, e event.MetaDeleted) {
	if !r.trackedMeta(ctx, e.Meta) {
		return
	}
	l := metaLog(model.SubActionDeleteMeta, e.Meta)
	l.Detail = map[string]any{"old": e.Meta.Value}
	r.New(ctx, l)
}

func termLog(action string, t model.Term) model.Log {
	return model.Log{
		Action:     action,
		ObjectType: model.ObjectTerm,
		ObjectID:   t.ID,
		ObjectName: t.Name,
		Success:    true,
		Detail:     map[string]any{"taxonomy": t.Taxonomy},
	}
}

func (r *Recorder) onTermCreated(ctx context.Context, e event.TermCreated) {
	if !r.taxonomies.has(e.Term.Taxonomy) {
		r.New(ctx, termLog(model.ActionCreate, e.Term))
	}
}

func (r *Recorder) onTermEdited(ctx context.Context, e event.TermEdited) {
	if r.taxonomies.has(e.Term.Taxonomy) {
		return
	}
	l := termLog(model.ActionUpdate, e.Term)
	if b := e.Before; b != nil {
		diff(l.Detail, "name", b.Name, e.Term.Name)
		diff(l.Detail, "slug", b.Slug, e.Term.Slug)
		diff(l.Detail, "description", b.Description, e.Term.Description)
		diff(l.Detail, "parent", b.Parent, e.Term.Parent)
	}
	r.New(ctx, l)
}

func (r *Recorder) onTermDeleted(ctx context.Context, e event.TermDeleted) {
	if !r.taxonomies.has(e.Term.Taxonomy) {
		r.New(ctx, termLog(model.ActionDelete, e.Term))
	}
}

func relLog(sub string, objectID int64, t model.Term) model.Log {
	return model.Log{
		Action:        model.ActionUpdate,
		ObjectType:    model.ObjectPost,
		ObjectID:      objectID,
		SubAction:     sub,
		SubObjectType: model.ObjectTerm,
		SubObjectID:   t.ID,
		SubObjectName: t.Name,
		Success:       true,
		Detail:        map[string]any{"taxonomy": t.Taxonomy},
	}
}

func (r *Recorder) onTermRelAdded(ctx context.Context, e event.TermRelAdded) {
	if !r.taxonomies.has(e.Term.Taxonomy) {
		r.New(ctx, relLog(model.SubActionAddTerm, e.ObjectID, e.Term))
	}
}

func (r *Recorder) onTermRelDeleted(ctx context.Context, e event.TermRelDeleted) {
	if !r.taxonomies.has(e.Term.Taxonomy) {
		r.New(ctx, relLog(model.SubActionRemoveTerm, e.ObjectID, e.Term))
	}
}

func userLog(action string, u model.User) model.Log {
	return model.Log{
		Action:     action,
		ObjectType: model.ObjectUser,
		ObjectID:   u.ID,
		ObjectName: u.DisplayName,
		Success:    true,
	}
}

func (r *Recorder) onUserRegistered(ctx context.Context, e event.UserRegistered) {
	r.New(ctx, userLog(model.ActionRegister, e.User))
}

func (r *Recorder) onUserLogin(ctx context.Context, e event.UserLogin) {
	r.New(ctx, userLog(model.ActionLogin, e.User))
}

func (r *Recorder) onUserLogout(ctx context.Context, e event.UserLogout) {
	r.New(ctx, model.Log{Action: model.ActionLogout, ObjectType: model.ObjectUser, ObjectID: e.UserID, Success: true})
}

func (r *Recorder) onUserUpdated(ctx context.Context, e event.UserUpdated) {
	l := userLog(model.ActionUpdate, e.User)
	l.Detail = map[string]any{}
	if b := e.Before; b != nil {
		diff(l.Detail, "user_login", b.Login, e.User.Login)
		diff(l.Detail, "user_email", b.Email, e.User.Email)
		diff(l.Detail, "user_url", b.URL, e.User.URL)
		diff(l.Detail, "user_nicename", b.Nicename, e.User.Nicename)
		diff(l.Detail, "display_name", b.DisplayName, e.User.DisplayName)
		diff(l.Detail, "roles", sortedRoles(b.Roles), sortedRoles(e.User.Roles))
		if b.PassHash != e.User.PassHash {
			l.Detail["password_changed"] = true
		}
	}
	r.New(ctx, l)
}

func (r *Recorder) onUserDeleted(ctx context.Context, e event.UserDeleted) {
	l := userLog(model.ActionDelete, e.User)
	if e.ReassignTo > 0 {
		l.Detail = map[string]any{"reassign_to": e.ReassignTo}
	}
	r.New(ctx, l)
}

func diff(into map[string]any, field string, old, cur any) {
	if !reflect.DeepEqual(old, cur) {
		into[field] = model.FieldChange{Old: old, New: cur}
	}
}

func sortedRoles(roles []string) []string {
	out := slices.Clone(roles)
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out
}

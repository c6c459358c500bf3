package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/charm/internal/auth"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository/memory"
	"github.com/and161185/charm/internal/service"
)

type harness struct {
	store *memory.Store
	bus   *event.Bus
	rec   *Recorder
	meta  *service.MetaService
	posts *service.PostService
	users *service.UserService
	terms *service.TermService
}

func newHarness(t *testing.T, log *zap.Logger, ensure bool) *harness {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	if ensure {
		require.NoError(t, st.Logs().EnsureTable(ctx))
	}
	bus := event.NewBus(zaptest.NewLogger(t))
	meta := service.NewMetaService(st.Meta(), bus)
	posts := service.NewPostService(st.Posts(), meta, bus)
	roles := service.NewRoleService(st.Options())
	_, err := roles.InstallDefaults(ctx)
	require.NoError(t, err)
	users := service.NewUserService(st.Users(), st.Meta(), posts, roles, bus)
	terms := service.NewTermService(st.Terms(), bus)
	objects := service.NewObjects(posts, users, terms, nil, nil)

	rec := NewRecorder(st.Logs(), st.Users(), st.Posts(), objects, Config{}, log)
	rec.Install(bus)
	t.Cleanup(rec.Close)
	return &harness{store: st, bus: bus, rec: rec, meta: meta, posts: posts, users: users, terms: terms}
}

func (h *harness) all(t *testing.T) []model.Log {
	t.Helper()
	out, err := h.rec.List(context.Background(), model.LogQuery{})
	require.NoError(t, err)
	return out
}

func TestRecorder_PostCreateWritesExactlyOneRow(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	p := &model.Post{Title: "Hello", Status: model.StatusDraft}
	_, err := h.posts.Create(ctx, p)
	require.NoError(t, err)

	logs := h.all(t)
	require.Len(t, logs, 1)
	require.Equal(t, model.ActionCreate, logs[0].Action)
	require.Equal(t, model.ObjectPost, logs[0].ObjectType)
	require.Equal(t, p.ID, logs[0].ObjectID)
	require.Equal(t, "Hello", logs[0].ObjectName)
	require.True(t, logs[0].Success)
	require.NotEmpty(t, logs[0].Detail["event_id"])
}

func TestRecorder_PostUpdateStoresChangedFields(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	p := &model.Post{Title: "Hello", Status: model.StatusDraft}
	_, err := h.posts.Create(ctx, p)
	require.NoError(t, err)
	p.Status = model.StatusPublish
	require.NoError(t, h.posts.Update(ctx, p))

	logs, err := h.rec.List(ctx, model.LogQuery{Action: model.ActionUpdate})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, model.FieldChange{Old: model.StatusDraft, New: model.StatusPublish}, logs[0].Detail["post_status"])
}

func TestRecorder_TrashRestoreIgnoresTrashMeta(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	p := &model.Post{Title: "Bin", Status: model.StatusPublish}
	_, err := h.posts.Create(ctx, p)
	require.NoError(t, err)
	require.NoError(t, h.posts.Trash(ctx, p))
	require.NoError(t, h.posts.Restore(ctx, p))

	var actions []string
	for _, l := range h.all(t) {
		actions = append(actions, l.Action)
	}
	require.Equal(t, []string{model.ActionRestore, model.ActionTrash, model.ActionCreate}, actions)
}

func TestRecorder_IgnoredMetaKeyWritesNothing(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	_, err := h.meta.Add(ctx, model.ObjectUser, 1, "session_tokens", map[string]any{"t": "x"}, false)
	require.NoError(t, err)
	require.Empty(t, h.all(t))

	m, err := h.meta.Add(ctx, model.ObjectTerm, 3, "color", "red", false)
	require.NoError(t, err)
	_, err = h.meta.Update(ctx, m, "blue")
	require.NoError(t, err)

	logs := h.all(t)
	require.Len(t, logs, 2)
	require.Equal(t, model.SubActionUpdateMeta, logs[0].SubAction)
	require.Equal(t, model.ObjectMeta, logs[0].SubObjectType)
	require.Equal(t, "color", logs[0].SubObjectName)
	require.Equal(t, "red", logs[0].Detail["old"])
	require.Equal(t, "blue", logs[0].Detail["new"])
}

func TestRecorder_IgnoredPostTypeAndTaxonomy(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	rev := &model.Post{Title: "r", Type: model.PostTypeRevision, Status: model.StatusInherit}
	_, err := h.posts.Create(ctx, rev)
	require.NoError(t, err)
	_, err = h.meta.Add(ctx, model.ObjectPost, rev.ID, "color", "red", false)
	require.NoError(t, err)
	_, err = h.terms.Create(ctx, &model.Term{Name: "Main", Taxonomy: model.TaxonomyNavMenu})
	require.NoError(t, err)
	require.Empty(t, h.all(t))
}

func TestRecorder_TermRelationshipIsLoggedOnPost(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	p := &model.Post{Title: "Tagged"}
	_, err := h.posts.Create(ctx, p)
	require.NoError(t, err)
	tag := &model.Term{Name: "Go", Taxonomy: model.TaxonomyPostTag}
	_, err = h.terms.Create(ctx, tag)
	require.NoError(t, err)
	require.NoError(t, h.terms.AddObjectTerm(ctx, p.ID, tag))

	logs := h.all(t)
	require.Len(t, logs, 3)
	rel := logs[0]
	require.Equal(t, model.SubActionAddTerm, rel.SubAction)
	require.Equal(t, p.ID, rel.ObjectID)
	require.Equal(t, "Tagged", rel.ObjectName)
	require.Equal(t, tag.ID, rel.SubObjectID)
}

func TestRecorder_NewResolvesActorNameFromObject(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	var last *model.User
	for i := 1; i <= 5; i++ {
		last = &model.User{Login: "user" + string(rune('0'+i)), DisplayName: "User " + string(rune('0'+i))}
		_, err := h.store.Users().Insert(ctx, last)
		require.NoError(t, err)
	}

	l := h.rec.New(ctx, model.Log{Action: model.ActionLogin, ObjectID: 5, Success: true})
	require.NotNil(t, l)
	require.True(t, l.Exists())
	require.Equal(t, int64(5), l.UserID)
	require.Equal(t, "User 5", l.UserName)
	require.Equal(t, model.ObjectUser, l.ObjectType)
	require.Equal(t, "User 5", l.ObjectName)
	require.False(t, l.Date.IsZero())
}

func TestRecorder_ActorFromContext(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	admin := &model.User{Login: "admin", DisplayName: "The Admin"}
	_, err := h.users.Create(ctx, admin)
	require.NoError(t, err)

	_, err = h.posts.Create(auth.WithUserID(ctx, admin.ID), &model.Post{Title: "By admin"})
	require.NoError(t, err)

	logs, err := h.rec.List(ctx, model.LogQuery{ObjectType: model.ObjectPost})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, admin.ID, logs[0].UserID)
	require.Equal(t, "The Admin", logs[0].UserName)

	byUser, err := h.rec.List(ctx, model.LogQuery{UserID: admin.ID})
	require.NoError(t, err)
	require.Len(t, byUser, 2, "registration is attributed to the new user")
}

func TestRecorder_RecordingMarkerStopsRecursion(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)

	h.bus.Publish(withRecording(context.Background()), event.PostSaved{Post: model.Post{ID: 1, Type: model.PostTypePost}})
	require.Empty(t, h.all(t))
	require.Nil(t, h.rec.New(withRecording(context.Background()), model.Log{Action: model.ActionCreate}))
}

func TestRecorder_InstallTwiceSubscribesOnce(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	h.rec.Install(h.bus)

	_, err := h.posts.Create(context.Background(), &model.Post{Title: "Once"})
	require.NoError(t, err)
	require.Len(t, h.all(t), 1)
}

func TestRecorder_FailureIsSwallowedAndLogged(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	h := newHarness(t, zap.New(core), false)

	p := &model.Post{Title: "No table"}
	_, err := h.posts.Create(context.Background(), p)
	require.NoError(t, err)
	require.True(t, p.Exists())
	require.Equal(t, 1, observed.FilterMessage("audit: insert failed").Len())
}

func TestRecorder_ConfigOverridesDefaults(t *testing.T) {
	rec := NewRecorder(nil, nil, nil, nil, Config{IgnoreMetaKeys: []string{"secret"}}, nil)
	require.Equal(t, []string{"secret"}, rec.IgnoredMetaKeys())
	require.True(t, rec.postTypes.has(model.PostTypeRevision))
}

func TestRecorder_SelfDeleteIsRecorded(t *testing.T) {
	h := newHarness(t, zaptest.NewLogger(t), true)
	ctx := context.Background()

	bob := &model.User{Login: "bob", Email: "bob@example.com"}
	_, err := h.users.Create(ctx, bob)
	require.NoError(t, err)
	bobID := bob.ID

	require.NoError(t, h.users.Delete(auth.WithUserID(ctx, bobID), bob, 0))

	logs, err := h.rec.List(ctx, model.LogQuery{Action: model.ActionDelete, ObjectType: model.ObjectUser})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, bobID, logs[0].ObjectID)
	require.Equal(t, "bob", logs[0].ObjectName)
	require.Zero(t, logs[0].UserID, "actor is nulled once the user row is gone")
}

func TestRecorder_VanishedActorIsAnonymous(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	h := newHarness(t, zap.New(core), true)
	ctx := context.Background()

	got := h.rec.New(auth.WithUserID(ctx, 404), model.Log{Action: model.ActionLogout, ObjectID: 404})
	require.NotNil(t, got)
	require.Zero(t, got.UserID)
	require.Zero(t, observed.Len())
}

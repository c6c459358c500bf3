// Package audit records lifecycle events into the logs table.
//
// Recording is best-effort: a failed insert is logged and swallowed, never
// returned to the code that fired the event. Events published while a row is
// being written carry a recording marker in their context and are ignored,
// which keeps the recorder from feeding on its own writes.
package audit

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/charm/internal/auth"
	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
	"github.com/and161185/charm/internal/service"
)

// Config holds the ignore-lists. Empty lists fall back to the defaults.
type Config struct {
	IgnorePostTypes  []string `yaml:"ignore_post_types" env:"IGNORE_POST_TYPES"`
	IgnoreTaxonomies []string `yaml:"ignore_taxonomies" env:"IGNORE_TAXONOMIES"`
	IgnoreMetaKeys   []string `yaml:"ignore_meta_keys" env:"IGNORE_META_KEYS"`
}

// DefaultConfig returns the stock ignore-lists.
func DefaultConfig() Config {
	return Config{
		IgnorePostTypes:  []string{model.PostTypeRevision, model.PostTypeNavMenu},
		IgnoreTaxonomies: []string{model.TaxonomyNavMenu},
		IgnoreMetaKeys: []string{
			"_application_passwords",
			"session_tokens",
			"_edit_lock",
			"_edit_last",
			model.MetaTrashStatus,
			model.MetaTrashTime,
		},
	}
}

type set map[string]struct{}

func newSet(items, def []string) set {
	if len(items) == 0 {
		items = def
	}
	s := make(set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

// Recorder turns bus events into log rows.
type Recorder struct {
	logs    repository.LogRepository
	users   repository.UserRepository
	posts   repository.PostRepository
	objects *service.Objects
	log     *zap.Logger
	now     func() time.Time

	postTypes  set
	taxonomies set
	metaKeys   set

	mu    sync.Mutex
	unsub []func()
}

// NewRecorder constructs a Recorder. posts is used to apply the post type
// ignore-list to post meta and may be nil.
func NewRecorder(logs repository.LogRepository, users repository.UserRepository, posts repository.PostRepository,
	objects *service.Objects, cfg Config, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultConfig()
	return &Recorder{
		logs:       logs,
		users:      users,
		posts:      posts,
		objects:    objects,
		log:        log,
		now:        time.Now,
		postTypes:  newSet(cfg.IgnorePostTypes, def.IgnorePostTypes),
		taxonomies: newSet(cfg.IgnoreTaxonomies, def.IgnoreTaxonomies),
		metaKeys:   newSet(cfg.IgnoreMetaKeys, def.IgnoreMetaKeys),
	}
}

type recordingKey struct{}

func withRecording(ctx context.Context) context.Context {
	return context.WithValue(ctx, recordingKey{}, true)
}

// Recording reports whether ctx belongs to a log write in progress.
func Recording(ctx context.Context) bool {
	on, _ := ctx.Value(recordingKey{}).(bool)
	return on
}

// New fills the actor and the object names of l, stamps the date, stores it
// and returns the stored row. It returns nil on any failure.
func (r *Recorder) New(ctx context.Context, l model.Log) *model.Log {
	if Recording(ctx) {
		return nil
	}
	ctx = withRecording(ctx)

	switch l.Action {
	case model.ActionLogin, model.ActionLogout, model.ActionRegister:
		if l.ObjectType == "" {
			l.ObjectType = model.ObjectUser
		}
	}
	if l.UserID == 0 {
		if id, ok := auth.UserIDFromCtx(ctx); ok {
			l.UserID = id
		} else if l.ObjectType == model.ObjectUser && l.ObjectID > 0 && l.Action != model.ActionDelete {
			l.UserID = l.ObjectID
		}
	}
	if l.UserName == "" && l.UserID > 0 {
		u, err := r.users.Get(ctx, l.UserID)
		switch {
		case err == nil:
			l.UserName = u.DisplayName
		case errors.Is(err, errs.ErrNotFound):
			// a vanished actor would break the user_id foreign key
			l.UserID = 0
		default:
			r.log.Warn("audit: actor lookup failed", zap.Int64("user_id", l.UserID), zap.Error(err))
		}
	}
	if l.ObjectName == "" {
		l.ObjectName = r.name(ctx, l.ObjectType, l.ObjectID)
	}
	if l.SubObjectName == "" {
		l.SubObjectName = r.name(ctx, l.SubObjectType, l.SubObjectID)
	}
	if l.Date.IsZero() {
		l.Date = r.now().UTC()
	}
	if id, ok := event.IDFromContext(ctx); ok {
		l.Detail = maps.Clone(l.Detail)
		if l.Detail == nil {
			l.Detail = map[string]any{}
		}
		l.Detail["event_id"] = id.String()
	}

	id, err := r.logs.Insert(ctx, &l)
	if err != nil {
		r.log.Warn("audit: insert failed",
			zap.String("action", l.Action),
			zap.String("object_type", string(l.ObjectType)),
			zap.Int64("object_id", l.ObjectID),
			zap.Error(err),
		)
		return nil
	}
	stored, err := r.logs.Get(ctx, id)
	if err != nil {
		r.log.Warn("audit: reload failed", zap.Int64("id", id), zap.Error(err))
		return nil
	}
	return stored
}

func (r *Recorder) name(ctx context.Context, t model.ObjectType, id int64) string {
	if r.objects == nil || id <= 0 || !r.objects.Has(t) {
		return ""
	}
	name, err := r.objects.Name(ctx, t, id)
	if err != nil {
		r.log.Debug("audit: name lookup failed", zap.String("type", string(t)), zap.Int64("id", id), zap.Error(err))
		return ""
	}
	return name
}

// Get loads one log row.
func (r *Recorder) Get(ctx context.Context, id int64) (*model.Log, error) {
	l, err := r.logs.Get(ctx, id)
	if err != nil {
		return nil, errs.Wrap("log.get", err)
	}
	return l, nil
}

// List returns log rows newest first.
func (r *Recorder) List(ctx context.Context, q model.LogQuery) ([]model.Log, error) {
	out, err := r.logs.List(ctx, q)
	if err != nil {
		return nil, errs.Wrap("log.list", err)
	}
	return out, nil
}

// IgnoredMetaKeys returns the meta keys that are never recorded, sorted.
func (r *Recorder) IgnoredMetaKeys() []string {
	return slices.Sorted(maps.Keys(r.metaKeys))
}

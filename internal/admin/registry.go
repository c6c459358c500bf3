// Package admin holds declarative admin menu and settings registrations.
//
// Builders are constructed with their registration arguments. Register
// defers the actual registration until the admin_menu or admin_init hook
// fires on the bus; Unregister removes the entry and any pending
// subscription.
package admin

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/service"
)

// Registry is the in-process admin menu and settings registry.
type Registry struct {
	bus     *event.Bus
	options *service.OptionService
	log     *zap.Logger

	mu       sync.RWMutex
	pages    map[string]*MenuPage
	settings map[string]*Setting
	sections map[string]*SettingsSection
	fields   map[string]*SettingsField
	errors   []SettingsError
}

// NewRegistry constructs an empty registry bound to bus.
func NewRegistry(bus *event.Bus, options *service.OptionService, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if bus == nil {
		bus = event.NewBus(log)
	}
	return &Registry{
		bus:      bus,
		options:  options,
		log:      log,
		pages:    map[string]*MenuPage{},
		settings: map[string]*Setting{},
		sections: map[string]*SettingsSection{},
		fields:   map[string]*SettingsField{},
	}
}

// Init fires admin_menu and then admin_init, the way the admin area boots.
func (r *Registry) Init(ctx context.Context) {
	r.bus.Publish(ctx, event.AdminMenu{})
	r.bus.Publish(ctx, event.AdminInit{})
}

// Pages returns the registered pages ordered by position, then slug.
func (r *Registry) Pages() []*MenuPage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MenuPage, 0, len(r.pages))
	for _, p := range r.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].Slug < out[j].Slug
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Page returns the page registered under slug.
func (r *Registry) Page(slug string) (*MenuPage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[slug]
	return p, ok
}

// MenuFor returns the pages u may open.
func (r *Registry) MenuFor(ctx context.Context, users *service.UserService, u *model.User) ([]*MenuPage, error) {
	var out []*MenuPage
	for _, p := range r.Pages() {
		ok, err := users.HasCap(ctx, u, p.Capability)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Setting returns the setting registered under name.
func (r *Registry) Setting(name string) (*Setting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[name]
	return s, ok
}

// Settings returns the names of the settings registered in group, sorted.
func (r *Registry) Settings(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, s := range r.settings {
		if s.Group == group {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Sections returns the sections of page ordered by id.
func (r *Registry) Sections(page string) []*SettingsSection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*SettingsSection
	for _, s := range r.sections {
		if s.Page == page {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Fields returns the fields of one section of page ordered by id.
func (r *Registry) Fields(page, section string) []*SettingsField {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*SettingsField
	for _, f := range r.fields {
		if f.Page == page && f.Section == section {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddError records a settings error.
func (r *Registry) AddError(e SettingsError) {
	if e.Type == "" {
		e.Type = ErrorTypeError
	}
	r.mu.Lock()
	r.errors = append(r.errors, e)
	r.mu.Unlock()
	r.log.Debug("settings error", zap.String("setting", e.Setting), zap.String("code", e.Code))
}

// Errors returns the recorded errors of setting; an empty name returns all.
func (r *Registry) Errors(setting string) []SettingsError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []SettingsError
	for _, e := range r.errors {
		if setting == "" || e.Setting == setting {
			out = append(out, e)
		}
	}
	return out
}

// ClearErrors drops every recorded error.
func (r *Registry) ClearErrors() {
	r.mu.Lock()
	r.errors = nil
	r.mu.Unlock()
}

// hooked is the deferred registration shared by every builder.
type hooked struct {
	mu         sync.Mutex
	unsub      func()
	registered bool
}

func (h *hooked) register(bus *event.Bus, hook event.Hook, add func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsub != nil || h.registered {
		return
	}
	h.unsub = bus.Subscribe(hook, func(context.Context, event.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.registered {
			add()
			h.registered = true
		}
	})
}

func (h *hooked) unregister(remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsub != nil {
		h.unsub()
		h.unsub = nil
	}
	if h.registered {
		remove()
		h.registered = false
	}
}

// Registered reports whether the hook fired and the entry is live.
func (h *hooked) Registered() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registered
}

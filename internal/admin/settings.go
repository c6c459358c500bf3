package admin

import (
	"context"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
)

const (
	hookMenu = event.HookAdminMenu
	hookInit = event.HookAdminInit
)

// Settings error types.
const (
	ErrorTypeError   = "error"
	ErrorTypeWarning = "warning"
	ErrorTypeSuccess = "success"
	ErrorTypeInfo    = "info"
)

// SettingsError is a message attached to a setting after a failed save.
type SettingsError struct {
	Setting string
	Code    string
	Message string
	Type    string
}

func (e SettingsError) Error() string { return e.Setting + ": " + e.Message }

// Sanitizer cleans a submitted value or rejects it.
type Sanitizer func(value any) (any, error)

// Setting binds an option to a settings group.
type Setting struct {
	hooked

	reg *Registry

	Group       string
	Name        string
	Description string
	Default     any
	Sanitize    Sanitizer
	Autoload    bool
}

// NewSetting describes a setting. Nothing is registered until Register.
func NewSetting(reg *Registry, group, name string) *Setting {
	return &Setting{reg: reg, Group: group, Name: name, Autoload: true}
}

// Register adds the setting when admin_init fires.
func (s *Setting) Register() {
	s.register(s.reg.bus, hookInit, func() {
		s.reg.mu.Lock()
		s.reg.settings[s.Name] = s
		s.reg.mu.Unlock()
	})
}

// Unregister removes the setting. The stored option is left alone.
func (s *Setting) Unregister() {
	s.unregister(func() {
		s.reg.mu.Lock()
		delete(s.reg.settings, s.Name)
		s.reg.mu.Unlock()
	})
}

// Value reads the option, falling back to Default.
func (s *Setting) Value(ctx context.Context) (any, error) {
	return s.reg.options.Value(ctx, s.Name, s.Default)
}

// Save sanitizes value and writes it. A rejected value is recorded as a
// SettingsError and the stored value stays as it was.
func (s *Setting) Save(ctx context.Context, value any) error {
	if s.Sanitize != nil {
		clean, err := s.Sanitize(value)
		if err != nil {
			se := SettingsError{Setting: s.Name, Code: "invalid_" + s.Name, Message: err.Error(), Type: ErrorTypeError}
			s.reg.AddError(se)
			return &errs.Error{Code: errs.CodeInvalid, Op: "setting.save", Message: se.Error(), Err: se}
		}
		value = clean
	}
	return s.reg.options.Set(ctx, s.Name, value, s.Autoload)
}

// SettingsSection groups fields on a settings page.
type SettingsSection struct {
	hooked

	reg *Registry

	ID    string
	Title string
	Page  string
}

// NewSettingsSection describes a section. Nothing is registered until Register.
func NewSettingsSection(reg *Registry, id, title, page string) *SettingsSection {
	return &SettingsSection{reg: reg, ID: id, Title: title, Page: page}
}

func sectionKey(page, id string) string { return page + "\x00" + id }

// Register adds the section when admin_init fires.
func (s *SettingsSection) Register() {
	s.register(s.reg.bus, hookInit, func() {
		s.reg.mu.Lock()
		s.reg.sections[sectionKey(s.Page, s.ID)] = s
		s.reg.mu.Unlock()
	})
}

// Unregister removes the section.
func (s *SettingsSection) Unregister() {
	s.unregister(func() {
		s.reg.mu.Lock()
		delete(s.reg.sections, sectionKey(s.Page, s.ID))
		s.reg.mu.Unlock()
	})
}

// SettingsField is one input of a section.
type SettingsField struct {
	hooked

	reg *Registry

	ID      string
	Title   string
	Page    string
	Section string
	Setting string
	Args    map[string]any
}

// NewSettingsField describes a field. Nothing is registered until Register.
func NewSettingsField(reg *Registry, id, title, page, section string) *SettingsField {
	if section == "" {
		section = "default"
	}
	return &SettingsField{reg: reg, ID: id, Title: title, Page: page, Section: section}
}

// Register adds the field when admin_init fires.
func (f *SettingsField) Register() {
	f.register(f.reg.bus, hookInit, func() {
		f.reg.mu.Lock()
		f.reg.fields[sectionKey(f.Page, f.ID)] = f
		f.reg.mu.Unlock()
	})
}

// Unregister removes the field.
func (f *SettingsField) Unregister() {
	f.unregister(func() {
		f.reg.mu.Lock()
		delete(f.reg.fields, sectionKey(f.Page, f.ID))
		f.reg.mu.Unlock()
	})
}

package admin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository/memory"
	"github.com/and161185/charm/internal/service"
)

func newRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	st := memory.New()
	log := zaptest.NewLogger(t)
	return NewRegistry(event.NewBus(log), service.NewOptionService(st.Options()), log), st
}

func TestMenuPage_RegistersOnAdminMenu(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	tools := NewMenuPage(reg, "Charm Tools", "", "manage_options", "charm-tools")
	tools.Position = 80
	tools.Register()
	logs := NewMenuPage(reg, "Activity", "Activity log", "list_users", "charm-logs")
	logs.Position = 10
	logs.Register()
	logs.Register()

	require.Empty(t, reg.Pages())
	require.False(t, tools.Registered())

	reg.Init(ctx)
	pages := reg.Pages()
	require.Len(t, pages, 2)
	require.Equal(t, "charm-logs", pages[0].Slug)
	require.Equal(t, "Charm Tools", pages[1].MenuTitle)
	require.True(t, tools.Registered())

	tools.Unregister()
	_, ok := reg.Page("charm-tools")
	require.False(t, ok)

	reg.Init(ctx)
	require.Len(t, reg.Pages(), 1, "unregistered pages do not come back")
}

func TestMenuPage_UnregisterBeforeHookDropsSubscription(t *testing.T) {
	reg, _ := newRegistry(t)

	p := NewMenuPage(reg, "Later", "", "read", "later")
	p.Register()
	p.Unregister()
	reg.Init(context.Background())
	require.Empty(t, reg.Pages())
	require.False(t, reg.bus.Has(event.HookAdminMenu))
}

func TestMenuFor_FiltersByCapability(t *testing.T) {
	reg, st := newRegistry(t)
	ctx := context.Background()
	bus := event.NewBus(zaptest.NewLogger(t))
	meta := service.NewMetaService(st.Meta(), bus)
	posts := service.NewPostService(st.Posts(), meta, bus)
	roles := service.NewRoleService(st.Options())
	_, err := roles.InstallDefaults(ctx)
	require.NoError(t, err)
	users := service.NewUserService(st.Users(), st.Meta(), posts, roles, bus)

	NewMenuPage(reg, "Posts", "", "edit_posts", "edit.php").Register()
	NewMenuPage(reg, "Settings", "", "manage_options", "options-general.php").Register()
	reg.Init(ctx)

	author := &model.User{Login: "writer", Roles: []string{"author"}}
	_, err = users.Create(ctx, author)
	require.NoError(t, err)
	visible, err := reg.MenuFor(ctx, users, author)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, "edit.php", visible[0].Slug)
}

func TestSettings_SectionsAndFields(t *testing.T) {
	reg, _ := newRegistry(t)

	NewSettingsSection(reg, "charm_general", "General", "charm").Register()
	f := NewSettingsField(reg, "charm_retention", "Retention days", "charm", "charm_general")
	f.Setting = "charm_retention"
	f.Register()
	NewSettingsField(reg, "charm_loose", "Loose", "charm", "").Register()
	s := NewSetting(reg, "charm", "charm_retention")
	s.Register()

	require.Empty(t, reg.Sections("charm"))
	reg.Init(context.Background())

	sections := reg.Sections("charm")
	require.Len(t, sections, 1)
	require.Equal(t, "General", sections[0].Title)
	fields := reg.Fields("charm", "charm_general")
	require.Len(t, fields, 1)
	require.Equal(t, "charm_retention", fields[0].Setting)
	require.Len(t, reg.Fields("charm", "default"), 1)
	require.Equal(t, []string{"charm_retention"}, reg.Settings("charm"))

	s.Unregister()
	_, ok := reg.Setting("charm_retention")
	require.False(t, ok)
}

func TestSetting_SanitizeFailureKeepsStoredValue(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	s := NewSetting(reg, "charm", "charm_admin_email")
	s.Default = "root@example.com"
	s.Sanitize = func(v any) (any, error) {
		str, _ := v.(string)
		str = strings.TrimSpace(str)
		if !strings.Contains(str, "@") {
			return nil, errors.New("not an email address")
		}
		return strings.ToLower(str), nil
	}

	v, err := s.Value(ctx)
	require.NoError(t, err)
	require.Equal(t, "root@example.com", v)

	require.NoError(t, s.Save(ctx, " Ops@Example.com "))
	err = s.Save(ctx, "nope")
	require.ErrorIs(t, err, errs.ErrInvalid)
	var se SettingsError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "invalid_charm_admin_email", se.Code)

	v, err = s.Value(ctx)
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", v)

	got := reg.Errors("charm_admin_email")
	require.Len(t, got, 1)
	require.Equal(t, ErrorTypeError, got[0].Type)
	reg.ClearErrors()
	require.Empty(t, reg.Errors(""))
}

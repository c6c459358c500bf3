package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/model"
	"github.com/and161185/charm/internal/repository"
	"github.com/and161185/charm/internal/repository/memory"
)

type services struct {
	store    *memory.Store
	bus      *event.Bus
	meta     *MetaService
	posts    *PostService
	roles    *RoleService
	users    *UserService
	terms    *TermService
	sites    *SiteService
	networks *NetworkService
	options  *OptionService
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newServices(t *testing.T) *services {
	t.Helper()
	st := memory.New()
	bus := event.NewBus(zaptest.NewLogger(t))
	meta := NewMetaService(st.Meta(), bus)
	posts := NewPostService(st.Posts(), meta, bus)
	posts.clock = func() time.Time { return fixedNow }
	roles := NewRoleService(st.Options())
	_, err := roles.InstallDefaults(context.Background())
	require.NoError(t, err)
	users := NewUserService(st.Users(), st.Meta(), posts, roles, bus)
	users.clock = posts.clock
	return &services{
		store:    st,
		bus:      bus,
		meta:     meta,
		posts:    posts,
		roles:    roles,
		users:    users,
		terms:    NewTermService(st.Terms(), bus),
		sites:    NewSiteService(st.Sites()),
		networks: NewNetworkService(st.Networks()),
		options:  NewOptionService(st.Options()),
	}
}

// record collects every event of type E published on bus.
func record[E event.Event](bus *event.Bus) *[]E {
	var got []E
	event.On(bus, func(_ context.Context, e E) { got = append(got, e) })
	return &got
}

// countingPosts counts every gateway write.
type countingPosts struct {
	repository.PostRepository
	writes int
}

func (c *countingPosts) Insert(ctx context.Context, p *model.Post) (int64, error) {
	c.writes++
	return c.PostRepository.Insert(ctx, p)
}

func (c *countingPosts) Update(ctx context.Context, p *model.Post) error {
	c.writes++
	return c.PostRepository.Update(ctx, p)
}

func (c *countingPosts) Delete(ctx context.Context, id int64) error {
	c.writes++
	return c.PostRepository.Delete(ctx, id)
}

// Package memory provides in-process implementations of the repository
// gateways. They honour the same error contract as the postgres package and
// are safe for concurrent use.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/and161185/charm/internal/errs"
	"github.com/and161185/charm/internal/model"
)

type termRow struct {
	ID    int64
	Name  string
	Slug  string
	Group int64
}

type taxRow struct {
	ID          int64
	TermID      int64
	Taxonomy    string
	Description string
	Parent      int64
	Count       int64
}

type relKey struct{ objectID, taxID int64 }

// Store holds every table. Gateways obtained from one Store share its data.
type Store struct {
	mu sync.RWMutex

	seq map[string]int64

	posts    map[int64]model.Post
	users    map[int64]model.User
	terms    map[int64]termRow
	taxonomy map[int64]taxRow
	rels     map[relKey]struct{}
	sites    map[int64]model.Site
	networks map[int64]model.Network
	options  map[string]model.Option
	meta     map[model.ObjectType]map[int64]model.MetaRow
	logs     map[int64]model.Log
	logTable bool
}

// New returns an empty store.
func New() *Store {
	s := &Store{
		seq:      map[string]int64{},
		posts:    map[int64]model.Post{},
		users:    map[int64]model.User{},
		terms:    map[int64]termRow{},
		taxonomy: map[int64]taxRow{},
		rels:     map[relKey]struct{}{},
		sites:    map[int64]model.Site{},
		networks: map[int64]model.Network{},
		options:  map[string]model.Option{},
		meta:     map[model.ObjectType]map[int64]model.MetaRow{},
		logs:     map[int64]model.Log{},
	}
	for _, t := range model.MetaTypes {
		s.meta[t] = map[int64]model.MetaRow{}
	}
	return s
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func page[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func dup(what string) error {
	return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, what)
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Store) deleteMetaOf(t model.ObjectType, objectID int64) {
	for id, m := range s.meta[t] {
		if m.ObjectID == objectID {
			delete(s.meta[t], id)
		}
	}
}

// Posts returns the post gateway.
func (s *Store) Posts() *PostRepo { return &PostRepo{s: s} }

// Users returns the user gateway.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Terms returns the term gateway.
func (s *Store) Terms() *TermRepo { return &TermRepo{s: s} }

// Sites returns the site gateway.
func (s *Store) Sites() *SiteRepo { return &SiteRepo{s: s} }

// Networks returns the network gateway.
func (s *Store) Networks() *NetworkRepo { return &NetworkRepo{s: s} }

// Meta returns the meta gateway.
func (s *Store) Meta() *MetaRepo { return &MetaRepo{s: s} }

// Options returns the option gateway.
func (s *Store) Options() *OptionRepo { return &OptionRepo{s: s} }

// Logs returns the audit log gateway.
func (s *Store) Logs() *LogRepo { return &LogRepo{s: s} }

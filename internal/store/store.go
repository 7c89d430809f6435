// Package store provides the local quote replica and its durable backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/model"
)

var (
	// ErrNoData is returned by a Persister that has never been saved to.
	ErrNoData = errors.New("no saved quotes")
	// ErrInvalidQuote is returned when text or category is empty after trimming.
	ErrInvalidQuote = errors.New("invalid quote: text and category are required")
	// ErrDuplicateRemote is returned when a remote id is already taken.
	ErrDuplicateRemote = errors.New("remote id already present")
	// ErrNotFound is returned when no quote has the requested id.
	ErrNotFound = errors.New("quote not found")
)

// Persister is the durable storage behind a Store.
type Persister interface {
	// LoadAll returns every saved quote in insertion order, or ErrNoData if
	// nothing was ever saved.
	LoadAll(ctx context.Context) ([]model.Quote, error)

	// SaveAll replaces the saved set with quotes.
	SaveAll(ctx context.Context, quotes []model.Quote) error

	// Close releases the backend.
	Close() error
}

// Options configures Open.
type Options struct {
	// Seed is written when the persister has no data. Nil means DefaultSeed.
	Seed []model.Quote
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Store is the in-memory quote replica. Records keep insertion order and are
// indexed by local and remote id. All returned quotes are copies; mutation
// goes through Insert and Replace.
type Store struct {
	mu       sync.RWMutex
	p        Persister
	quotes   []*model.Quote
	byLocal  map[string]*model.Quote
	byRemote map[string]*model.Quote
	now      func() time.Time

	idMu    sync.Mutex
	entropy io.Reader
}

// DefaultSeed returns the quotes a fresh replica starts with.
func DefaultSeed() []model.Quote {
	return []model.Quote{
		{Text: "The best way to predict the future is to invent it.", Category: "Inspiration"},
		{Text: "Life is what happens when you're busy making other plans.", Category: "Life"},
		{Text: "Do or do not. There is no try.", Category: "Motivation"},
	}
}

// New returns an empty Store bound to p without loading anything.
func New(p Persister, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		p:        p,
		byLocal:  make(map[string]*model.Quote),
		byRemote: make(map[string]*model.Quote),
		now:      clock,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Open loads the replica from p. A persister with no data is seeded; a
// persister whose data cannot be read falls back to an empty replica. Open
// only fails when the seed cannot be built.
func Open(ctx context.Context, p Persister, opts Options) (*Store, error) {
	s := New(p, opts.Clock)

	loaded, err := p.LoadAll(ctx)
	switch {
	case errors.Is(err, ErrNoData):
		seed := opts.Seed
		if seed == nil {
			seed = DefaultSeed()
		}
		for _, q := range seed {
			if _, err := s.Insert(q); err != nil {
				return nil, fmt.Errorf("seed: %w", err)
			}
		}
		if err := s.Flush(ctx); err != nil {
			logging.Warn("could not save seed quotes", logging.Err(err))
		}
		logging.Debug("seeded empty replica", logging.Count(len(seed)))
	case err != nil:
		logging.Warn("saved quotes unreadable, starting empty", logging.Err(err))
	default:
		dropped := 0
		for _, q := range loaded {
			if _, err := s.Insert(q); err != nil {
				dropped++
			}
		}
		if dropped > 0 {
			logging.Warn("dropped invalid saved quotes", logging.Count(dropped))
		}
	}
	return s, nil
}

// Close closes the persister.
func (s *Store) Close() error {
	return s.p.Close()
}

// Persister returns the backend the store flushes to.
func (s *Store) Persister() Persister {
	return s.p
}

func (s *Store) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return "local-" + strings.ToLower(ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String())
}

// UpsertByRemoteID resolves a remote identity to a quote. If a quote with
// remoteID exists it is returned with true and f is ignored; the caller
// mutates it through Replace. Otherwise a new, unsaved quote carrying f and a
// fresh local id is returned with false. Nothing is inserted.
func (s *Store) UpsertByRemoteID(remoteID string, f model.Fields) (model.Quote, bool) {
	s.mu.RLock()
	e, ok := s.byRemote[remoteID]
	var existing model.Quote
	if ok {
		existing = e.Clone()
	}
	s.mu.RUnlock()
	if ok {
		return existing, true
	}

	return model.Quote{
		LocalID:   s.newID(),
		RemoteID:  remoteID,
		Text:      f.Text,
		Category:  f.Category,
		UpdatedAt: f.UpdatedAt,
		Origin:    f.Origin,
	}, false
}

// FindByLocalID returns the quote with the given local id.
func (s *Store) FindByLocalID(id string) (model.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.byLocal[id]
	if !ok {
		return model.Quote{}, false
	}
	return q.Clone(), true
}

// FindByRemoteID returns the quote joined to the given remote id.
func (s *Store) FindByRemoteID(id string) (model.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.byRemote[id]
	if !ok {
		return model.Quote{}, false
	}
	return q.Clone(), true
}

// All returns every quote in insertion order.
func (s *Store) All() []model.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Quote, len(s.quotes))
	for i, q := range s.quotes {
		out[i] = q.Clone()
	}
	return out
}

// Len returns the number of quotes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}

// Insert normalizes q and appends it. A missing or colliding local id is
// replaced with a fresh one. It does not flush.
func (s *Store) Insert(q model.Quote) (model.Quote, error) {
	n, ok := model.Normalize(q, s.now())
	if !ok {
		return model.Quote{}, ErrInvalidQuote
	}

	s.mu.RLock()
	_, taken := s.byLocal[n.LocalID]
	s.mu.RUnlock()
	if n.LocalID == "" || taken {
		n.LocalID = s.newID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n.RemoteID != "" {
		if _, dup := s.byRemote[n.RemoteID]; dup {
			return model.Quote{}, fmt.Errorf("%w: %s", ErrDuplicateRemote, n.RemoteID)
		}
	}
	if _, dup := s.byLocal[n.LocalID]; dup {
		n.LocalID = s.newID()
	}

	stored := n.Clone()
	s.quotes = append(s.quotes, &stored)
	s.byLocal[stored.LocalID] = &stored
	if stored.RemoteID != "" {
		s.byRemote[stored.RemoteID] = &stored
	}
	return stored.Clone(), nil
}

// Replace mutates the quote with localID in place. The local id cannot be
// changed. If fn leaves the quote invalid, or moves it onto a remote id that
// another quote holds, the change is discarded. It does not flush.
func (s *Store) Replace(localID string, fn func(q *model.Quote)) (model.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byLocal[localID]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, localID)
	}

	next := cur.Clone()
	fn(&next)
	next.LocalID = cur.LocalID

	n, valid := model.Normalize(next, s.now())
	if !valid {
		return cur.Clone(), ErrInvalidQuote
	}
	if n.RemoteID != cur.RemoteID && n.RemoteID != "" {
		if other, dup := s.byRemote[n.RemoteID]; dup && other != cur {
			return cur.Clone(), fmt.Errorf("%w: %s", ErrDuplicateRemote, n.RemoteID)
		}
	}

	if cur.RemoteID != n.RemoteID {
		delete(s.byRemote, cur.RemoteID)
		if n.RemoteID != "" {
			s.byRemote[n.RemoteID] = cur
		}
	}
	*cur = n
	return cur.Clone(), nil
}

// Flush writes the whole replica through the persister.
func (s *Store) Flush(ctx context.Context) error {
	snapshot := s.All()
	if err := s.p.SaveAll(ctx, snapshot); err != nil {
		return fmt.Errorf("save quotes: %w", err)
	}
	return nil
}

// Add creates a local quote and flushes.
func (s *Store) Add(ctx context.Context, text, category string) (model.Quote, error) {
	q, err := s.Insert(model.Quote{
		Text:      text,
		Category:  category,
		UpdatedAt: s.now(),
		Origin:    model.OriginLocal,
	})
	if err != nil {
		return model.Quote{}, err
	}
	return q, s.Flush(ctx)
}

// Remove deletes the quote with localID and flushes.
func (s *Store) Remove(ctx context.Context, localID string) error {
	s.mu.Lock()
	q, ok := s.byLocal[localID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, localID)
	}
	delete(s.byLocal, localID)
	if q.RemoteID != "" {
		delete(s.byRemote, q.RemoteID)
	}
	for i, e := range s.quotes {
		if e == q {
			s.quotes = append(s.quotes[:i], s.quotes[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	return s.Flush(ctx)
}

// Import appends quotes whose text and category are not already present.
// Invalid entries are dropped. It flushes when anything was added and
// returns the number added.
func (s *Store) Import(ctx context.Context, quotes []model.Quote) (int, error) {
	key := func(q model.Quote) string { return q.Text + "\x1f" + q.Category }

	seen := make(map[string]bool)
	for _, q := range s.All() {
		seen[key(q)] = true
	}

	added := 0
	for _, q := range quotes {
		n, ok := model.Normalize(q, s.now())
		if !ok || seen[key(n)] {
			continue
		}
		if _, err := s.Insert(n); err != nil {
			logging.Debug("skipping imported quote", logging.Quote(n.LocalID), logging.Err(err))
			continue
		}
		seen[key(n)] = true
		added++
	}

	if added == 0 {
		return 0, nil
	}
	return added, s.Flush(ctx)
}

// Categories returns the distinct categories, sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]bool)
	for _, q := range s.quotes {
		set[q.Category] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Random returns a random quote in category. An empty category or "all"
// matches every quote.
func (s *Store) Random(category string) (model.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pool []*model.Quote
	for _, q := range s.quotes {
		if category == "" || category == "all" || q.Category == category {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return model.Quote{}, false
	}
	return pool[rand.Intn(len(pool))].Clone(), true
}

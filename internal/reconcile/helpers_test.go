package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/quotesync/internal/model"
	"github.com/rcliao/quotesync/internal/store"
)

// fakeAdapter serves a fixed remote set. When block is set, Fetch signals
// started and waits for block to close.
type fakeAdapter struct {
	mu       sync.Mutex
	remote   []model.Quote
	fetchErr error
	fetches  int
	pushErr  error
	pushID   string
	pushed   []model.Quote

	block   chan struct{}
	started chan struct{}
}

func (f *fakeAdapter) Fetch(ctx context.Context) ([]model.Quote, error) {
	f.mu.Lock()
	f.fetches++
	block, started := f.block, f.started
	f.mu.Unlock()

	if block != nil {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]model.Quote, len(f.remote))
	copy(out, f.remote)
	return out, nil
}

func (f *fakeAdapter) Push(ctx context.Context, q model.Quote) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.pushed = append(f.pushed, q)
	if q.RemoteID != "" {
		return q.RemoteID, nil
	}
	return f.pushID, nil
}

func (f *fakeAdapter) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeAdapter) pushedQuotes() []model.Quote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Quote(nil), f.pushed...)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p, err := store.NewJSONFilePersister(filepath.Join(t.TempDir(), "quotes.json"))
	if err != nil {
		t.Fatalf("create persister: %v", err)
	}
	s, err := store.Open(context.Background(), p, store.Options{Seed: []model.Quote{}})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func remoteQuote(id, text, category string) model.Quote {
	return model.Quote{
		RemoteID:  id,
		Text:      text,
		Category:  category,
		UpdatedAt: time.Now().Add(-time.Second),
		Origin:    model.OriginRemote,
	}
}

func mustInsert(t *testing.T, s *store.Store, q model.Quote) model.Quote {
	t.Helper()
	got, err := s.Insert(q)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return got
}

var errOffline = errors.New("offline")

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/model"
	"github.com/rcliao/quotesync/internal/remote"
	"github.com/rcliao/quotesync/internal/store"
)

// DefaultPushTimeout bounds a single detached push.
const DefaultPushTimeout = 15 * time.Second

// ErrNoRemote is returned when the engine has no adapter.
var ErrNoRemote = errors.New("no remote configured")

// ApplyReport summarizes one ApplyAll pass.
type ApplyReport struct {
	Server  int       `json:"server"`
	Local   int       `json:"local"`
	Skipped int       `json:"skipped"`
	At      time.Time `json:"at"`
}

// Status returns the line shown after conflicts are applied.
func (r ApplyReport) Status() string {
	return fmt.Sprintf("Conflicts resolved at %s.", r.At.Local().Format("15:04:05"))
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the engine clock.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithPushTimeout sets the timeout of each detached push.
func WithPushTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.pushTimeout = d
		}
	}
}

// Engine coordinates the store, the conflict log and the remote adapter.
// Every store mutation it makes is serialized by one mutex; fetches and
// pushes run outside it.
type Engine struct {
	mu          sync.Mutex
	store       *store.Store
	adapter     remote.Adapter
	log         *ConflictLog
	merger      *Merger
	now         func() time.Time
	pushTimeout time.Duration
	pushes      sync.WaitGroup
}

// NewEngine creates an Engine. adapter may be nil for a store with no
// remote; Sync and Push then fail with ErrNoRemote.
func NewEngine(s *store.Store, adapter remote.Adapter, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       s,
		adapter:     adapter,
		log:         &ConflictLog{},
		now:         time.Now,
		pushTimeout: DefaultPushTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.merger = NewMerger(s, e.log, e.now)
	return e
}

// Store returns the engine's store.
func (e *Engine) Store() *store.Store { return e.store }

// Sync runs one fetch and merge pass. A fetch error leaves the store
// untouched.
func (e *Engine) Sync(ctx context.Context) (int, error) {
	if e.adapter == nil {
		return 0, ErrNoRemote
	}

	incoming, err := e.adapter.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.merger.Merge(ctx, incoming)
}

// Conflicts returns the pending conflicts in detection order.
func (e *Engine) Conflicts() []model.Conflict {
	return e.log.Pending()
}

// HasPending reports whether any conflict awaits review.
func (e *Engine) HasPending() bool {
	return e.log.Len() > 0
}

// PendingCount returns the number of pending conflicts.
func (e *Engine) PendingCount() int {
	return e.log.Len()
}

// SetResolution sets the choice for the pending conflict at index.
func (e *Engine) SetResolution(index int, choice model.Resolution) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.SetResolution(index, choice)
}

// ApplyAll applies every pending conflict in detection order, flushes once
// and clears the log. Conflicts whose quote no longer exists are skipped.
// Quotes kept local are pushed in the background; see Wait.
func (e *Engine) ApplyAll(ctx context.Context) (ApplyReport, error) {
	e.mu.Lock()

	now := e.now()
	report := ApplyReport{At: now}
	var toPush []model.Quote

	for _, c := range e.log.Pending() {
		id := c.Local.LocalID
		if _, ok := e.store.FindByLocalID(id); !ok {
			logging.Debug("skipping stale conflict", logging.Quote(id))
			report.Skipped++
			continue
		}

		var fn func(q *model.Quote)
		switch c.Resolution {
		case model.ResolutionLocal:
			fn = func(q *model.Quote) {
				q.Text = c.Local.Text
				q.Category = c.Local.Category
				q.UpdatedAt = now
				q.Origin = model.OriginLocal
				q.MarkSynced(now)
			}
		default:
			fn = func(q *model.Quote) {
				q.Text = c.Remote.Text
				q.Category = c.Remote.Category
				q.UpdatedAt = c.Remote.UpdatedAt
				q.Origin = model.OriginRemote
				q.MarkSynced(now)
			}
		}

		q, err := e.store.Replace(id, fn)
		if err != nil {
			logging.Debug("skipping conflict", logging.Quote(id), logging.Err(err))
			report.Skipped++
			continue
		}
		if c.Resolution == model.ResolutionLocal {
			report.Local++
			toPush = append(toPush, q)
		} else {
			report.Server++
		}
	}

	err := e.store.Flush(ctx)
	e.log.Clear()
	e.mu.Unlock()

	for _, q := range toPush {
		e.pushDetached(ctx, q)
	}

	logging.Info("conflicts applied",
		"server", report.Server, "local", report.Local, "skipped", report.Skipped)
	if err != nil {
		return report, fmt.Errorf("apply: %w", err)
	}
	return report, nil
}

// pushDetached pushes q without blocking the caller. The push outlives
// ctx's cancellation but not the push timeout.
func (e *Engine) pushDetached(ctx context.Context, q model.Quote) {
	if e.adapter == nil {
		return
	}
	e.pushes.Add(1)
	go func() {
		defer e.pushes.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.pushTimeout)
		defer cancel()
		if err := e.push(pctx, q); err != nil {
			logging.Warn("push failed", logging.Quote(q.LocalID), logging.Err(err))
		}
	}()
}

// push sends q and, on success, stamps LastSyncedAt and records the remote
// id if the quote had none. A failed push leaves the quote untouched.
func (e *Engine) push(ctx context.Context, q model.Quote) error {
	remoteID, err := e.adapter.Push(ctx, q)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	_, err = e.store.Replace(q.LocalID, func(m *model.Quote) {
		if m.RemoteID == "" {
			m.RemoteID = remoteID
		}
		m.MarkSynced(now)
	})
	if errors.Is(err, store.ErrDuplicateRemote) {
		// The remote reused an id another quote holds; keep the quote unlinked.
		_, err = e.store.Replace(q.LocalID, func(m *model.Quote) { m.MarkSynced(now) })
	}
	if errors.Is(err, store.ErrNotFound) {
		logging.Debug("pushed quote was removed locally", logging.Quote(q.LocalID))
		return nil
	}
	if err != nil {
		return err
	}
	logging.Debug("pushed quote", logging.Quote(q.LocalID), logging.Remote(remoteID))
	return e.store.Flush(ctx)
}

// Wait blocks until every detached push has finished.
func (e *Engine) Wait() {
	e.pushes.Wait()
}

// PushUnsynced pushes every local quote that has never been synced and
// returns how many succeeded. Failures are joined into the error.
func (e *Engine) PushUnsynced(ctx context.Context) (int, error) {
	if e.adapter == nil {
		return 0, ErrNoRemote
	}

	var pending []model.Quote
	for _, q := range e.store.All() {
		if q.Origin == model.OriginLocal && q.LastSyncedAt == nil {
			pending = append(pending, q)
		}
	}

	pushed := 0
	var errs []error
	for _, q := range pending {
		if err := e.push(ctx, q); err != nil {
			logging.Warn("push failed", logging.Quote(q.LocalID), logging.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", q.LocalID, err))
			continue
		}
		pushed++
	}
	return pushed, errors.Join(errs...)
}

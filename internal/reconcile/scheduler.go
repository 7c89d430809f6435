package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcliao/quotesync/internal/logging"
)

// DefaultInterval is the auto-sync period.
const DefaultInterval = 30 * time.Second

// ErrSyncInProgress is returned by SyncOnce while another pass is running.
var ErrSyncInProgress = errors.New("sync already in progress")

// State is the scheduler's sync state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
)

// Outcome reports one reconciliation pass.
type Outcome struct {
	Applied        int       `json:"applied"`
	ConflictsAfter int       `json:"conflicts_after"`
	Err            error     `json:"-"`
	At             time.Time `json:"at"`
}

// Status returns the status line for the outcome.
func (o Outcome) Status() string {
	if o.Err != nil {
		return fmt.Sprintf("Sync failed: %v", o.Err)
	}
	s := fmt.Sprintf("Last sync: %s • Applied %d update(s).", o.At.Local().Format("15:04:05"), o.Applied)
	if o.ConflictsAfter > 0 {
		s += " Conflicts detected."
	}
	return s
}

// Scheduler runs reconciliation passes on demand and on a fixed interval.
// At most one pass is in flight; triggers while busy are dropped.
type Scheduler struct {
	engine *Engine
	now    func() time.Time

	mu      sync.Mutex
	state   State
	last    *Outcome
	onEvent []func(Outcome)

	autoMu sync.Mutex
	run    *autoRun
}

// autoRun is one periodic schedule. done is closed when its loop exits.
type autoRun struct {
	cancel context.CancelFunc
	done   chan struct{}
	inHook atomic.Bool
}

// NewScheduler creates an idle Scheduler over engine.
func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{engine: engine, now: engine.now, state: StateIdle}
}

// OnOutcome registers fn to be called after every completed pass.
func (s *Scheduler) OnOutcome(fn func(Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = append(s.onEvent, fn)
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastOutcome returns the most recent outcome, if any.
func (s *Scheduler) LastOutcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// Status returns the status line of the current state.
func (s *Scheduler) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateSyncing:
		return "Syncing with server…"
	case s.last != nil:
		return s.last.Status()
	default:
		return "Ready."
	}
}

// SyncOnce runs one fetch and merge pass. It returns ErrSyncInProgress
// without doing anything if a pass is already running. The returned error
// is the outcome's error.
func (s *Scheduler) SyncOnce(ctx context.Context) (Outcome, error) {
	return s.syncOnce(ctx, nil)
}

func (s *Scheduler) syncOnce(ctx context.Context, run *autoRun) (Outcome, error) {
	s.mu.Lock()
	if s.state == StateSyncing {
		s.mu.Unlock()
		return Outcome{}, ErrSyncInProgress
	}
	s.state = StateSyncing
	s.mu.Unlock()

	applied, err := s.engine.Sync(ctx)
	out := Outcome{
		Applied:        applied,
		ConflictsAfter: s.engine.PendingCount(),
		Err:            err,
		At:             s.now(),
	}
	if err != nil {
		logging.Warn("sync failed", logging.Err(err))
	} else {
		logging.Info("sync finished", logging.Count(applied), "conflicts", out.ConflictsAfter)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.last = &out
	hooks := append([]func(Outcome){}, s.onEvent...)
	s.mu.Unlock()

	if run != nil {
		run.inHook.Store(true)
		defer run.inHook.Store(false)
	}
	for _, fn := range hooks {
		fn(out)
	}
	return out, err
}

// StartAuto starts periodic passes every interval, replacing any running
// schedule. The schedule stops when ctx is done or StopAuto is called.
// Outcome hooks may call StartAuto and StopAuto.
func (s *Scheduler) StartAuto(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	actx, cancel := context.WithCancel(ctx)
	run := &autoRun{cancel: cancel, done: make(chan struct{})}

	s.autoMu.Lock()
	prev := s.run
	s.run = run
	s.autoMu.Unlock()

	stopRun(prev)
	go s.loop(actx, run, interval)
	logging.Debug("auto sync started", "interval", interval)
}

// StopAuto cancels the periodic schedule and waits for its loop to exit,
// unless it is called from one of that loop's outcome hooks. It is safe to
// call when nothing is running.
func (s *Scheduler) StopAuto() {
	s.autoMu.Lock()
	run := s.run
	s.run = nil
	s.autoMu.Unlock()

	stopRun(run)
}

func stopRun(run *autoRun) {
	if run == nil {
		return
	}
	run.cancel()
	if !run.inHook.Load() {
		<-run.done
	}
	logging.Debug("auto sync stopped")
}

// AutoRunning reports whether a periodic schedule is active.
func (s *Scheduler) AutoRunning() bool {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	return s.run != nil
}

func (s *Scheduler) loop(ctx context.Context, run *autoRun, interval time.Duration) {
	defer func() {
		s.autoMu.Lock()
		if s.run == run {
			s.run = nil
		}
		s.autoMu.Unlock()
		run.cancel()
		close(run.done)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.syncOnce(ctx, run); errors.Is(err, ErrSyncInProgress) {
				logging.Debug("sync already in progress, skipping tick")
			}
		}
	}
}

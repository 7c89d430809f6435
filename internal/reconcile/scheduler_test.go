package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/quotesync/internal/model"
)

func TestSyncOnceRejectsConcurrentPass(t *testing.T) {
	a := &fakeAdapter{
		remote:  []model.Quote{remoteQuote("jp-1", "one", "Server")},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	sched := NewScheduler(NewEngine(newTestStore(t), a))

	var wg sync.WaitGroup
	var first Outcome
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = sched.SyncOnce(context.Background())
	}()

	<-a.started
	if sched.State() != StateSyncing {
		t.Errorf("expected syncing state, got %s", sched.State())
	}
	if _, err := sched.SyncOnce(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}

	close(a.block)
	wg.Wait()

	if firstErr != nil || first.Applied != 1 {
		t.Errorf("unexpected first outcome: %+v (%v)", first, firstErr)
	}
	if n := a.fetchCount(); n != 1 {
		t.Errorf("expected exactly one fetch, got %d", n)
	}
	if sched.State() != StateIdle {
		t.Errorf("expected idle state, got %s", sched.State())
	}
}

func TestSyncOnceOutcome(t *testing.T) {
	s := newTestStore(t)
	mustInsert(t, s, model.Quote{RemoteID: "jp-1", Text: "A", Category: "X"})
	a := &fakeAdapter{remote: []model.Quote{
		remoteQuote("jp-1", "B", "X"),
		remoteQuote("jp-2", "new", "Server"),
	}}
	sched := NewScheduler(NewEngine(s, a))

	var hooked []Outcome
	sched.OnOutcome(func(o Outcome) { hooked = append(hooked, o) })

	if sched.Status() != "Ready." {
		t.Errorf("unexpected initial status %q", sched.Status())
	}

	out, err := sched.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if out.Applied != 2 || out.ConflictsAfter != 1 {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if !strings.Contains(out.Status(), "Applied 2 update(s). Conflicts detected.") {
		t.Errorf("unexpected status %q", out.Status())
	}
	if last, ok := sched.LastOutcome(); !ok || last.Applied != 2 {
		t.Errorf("expected last outcome recorded, got %+v", last)
	}
	if len(hooked) != 1 {
		t.Errorf("expected hook called once, got %d", len(hooked))
	}
}

func TestSyncOnceFailure(t *testing.T) {
	sched := NewScheduler(NewEngine(newTestStore(t), &fakeAdapter{fetchErr: errOffline}))

	out, err := sched.SyncOnce(context.Background())
	if !errors.Is(err, errOffline) || !errors.Is(out.Err, errOffline) {
		t.Fatalf("expected fetch error in outcome, got %v / %v", err, out.Err)
	}
	if !strings.HasPrefix(out.Status(), "Sync failed: ") {
		t.Errorf("unexpected status %q", out.Status())
	}
	if sched.State() != StateIdle {
		t.Errorf("expected idle after failure, got %s", sched.State())
	}
}

func TestOutcomeStatusWithoutConflicts(t *testing.T) {
	o := Outcome{Applied: 0, At: time.Now()}
	if strings.Contains(o.Status(), "Conflicts") {
		t.Errorf("unexpected conflict notice in %q", o.Status())
	}
}

func TestStartStopAuto(t *testing.T) {
	a := &fakeAdapter{}
	sched := NewScheduler(NewEngine(newTestStore(t), a))

	sched.StopAuto()
	if sched.AutoRunning() {
		t.Fatal("expected no schedule before start")
	}

	sched.StartAuto(context.Background(), 5*time.Millisecond)
	sched.StartAuto(context.Background(), 5*time.Millisecond)
	if !sched.AutoRunning() {
		t.Fatal("expected schedule running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.fetchCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if a.fetchCount() < 2 {
		t.Fatalf("expected periodic fetches, got %d", a.fetchCount())
	}

	sched.StopAuto()
	sched.StopAuto()
	if sched.AutoRunning() {
		t.Error("expected schedule stopped")
	}

	n := a.fetchCount()
	time.Sleep(30 * time.Millisecond)
	if a.fetchCount() != n {
		t.Errorf("fetches continued after stop: %d -> %d", n, a.fetchCount())
	}
}

func TestStopAutoFromOutcomeHook(t *testing.T) {
	a := &fakeAdapter{}
	sched := NewScheduler(NewEngine(newTestStore(t), a))

	stopped := make(chan struct{})
	var once sync.Once
	sched.OnOutcome(func(Outcome) {
		sched.StopAuto()
		once.Do(func() { close(stopped) })
	})
	sched.StartAuto(context.Background(), 5*time.Millisecond)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAuto called from an outcome hook did not return")
	}
	if sched.AutoRunning() {
		t.Error("expected schedule stopped by hook")
	}

	n := a.fetchCount()
	time.Sleep(30 * time.Millisecond)
	if a.fetchCount() != n {
		t.Errorf("fetches continued after hook stop: %d -> %d", n, a.fetchCount())
	}
}

func TestStartAutoFromOutcomeHook(t *testing.T) {
	a := &fakeAdapter{}
	sched := NewScheduler(NewEngine(newTestStore(t), a))

	restarted := make(chan struct{})
	var once sync.Once
	sched.OnOutcome(func(Outcome) {
		once.Do(func() {
			sched.StartAuto(context.Background(), 5*time.Millisecond)
			close(restarted)
		})
	})
	sched.StartAuto(context.Background(), 5*time.Millisecond)

	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatal("StartAuto called from an outcome hook did not return")
	}
	if !sched.AutoRunning() {
		t.Error("expected replacement schedule running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.fetchCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if a.fetchCount() < 3 {
		t.Errorf("expected replacement schedule to keep syncing, got %d fetches", a.fetchCount())
	}
	sched.StopAuto()
}

func TestAutoRunningClearedByParentCancel(t *testing.T) {
	sched := NewScheduler(NewEngine(newTestStore(t), &fakeAdapter{}))

	ctx, cancel := context.WithCancel(context.Background())
	sched.StartAuto(ctx, time.Hour)
	if !sched.AutoRunning() {
		t.Fatal("expected schedule running")
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for sched.AutoRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sched.AutoRunning() {
		t.Fatal("expected schedule to stop after parent context was cancelled")
	}
	sched.StopAuto()
}

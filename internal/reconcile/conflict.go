package reconcile

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rcliao/quotesync/internal/model"
)

var (
	// ErrConflictIndex is returned for an index outside the pending list.
	ErrConflictIndex = errors.New("conflict index out of range")
	// ErrInvalidResolution is returned for a choice other than server or local.
	ErrInvalidResolution = errors.New("invalid resolution: must be server or local")
)

// ConflictLog holds captured conflicts in detection order until they are
// applied. It is never persisted.
type ConflictLog struct {
	mu        sync.Mutex
	conflicts []model.Conflict
}

// Append records c. An empty resolution defaults to server.
func (l *ConflictLog) Append(c model.Conflict) {
	if c.Resolution == "" {
		c.Resolution = model.ResolutionServer
	}
	c.Local = c.Local.Clone()
	c.Remote = c.Remote.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.conflicts = append(l.conflicts, c)
}

// Pending returns copies of the pending conflicts in detection order.
func (l *ConflictLog) Pending() []model.Conflict {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Conflict, len(l.conflicts))
	for i, c := range l.conflicts {
		c.Local = c.Local.Clone()
		c.Remote = c.Remote.Clone()
		out[i] = c
	}
	return out
}

// Len returns the number of pending conflicts.
func (l *ConflictLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conflicts)
}

// SetResolution changes the choice for the conflict at index. It has no
// other effect until the log is applied.
func (l *ConflictLog) SetResolution(index int, choice model.Resolution) error {
	if !model.ValidResolutions[choice] {
		return fmt.Errorf("%w: %q", ErrInvalidResolution, choice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.conflicts) {
		return fmt.Errorf("%w: %d (pending %d)", ErrConflictIndex, index, len(l.conflicts))
	}
	l.conflicts[index].Resolution = choice
	return nil
}

// Clear drops every pending conflict.
func (l *ConflictLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conflicts = nil
}

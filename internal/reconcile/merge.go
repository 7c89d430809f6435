// Package reconcile merges remote quotes into the local replica, tracks the
// conflicts that produces, and schedules reconciliation passes.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/model"
	"github.com/rcliao/quotesync/internal/store"
)

// Merger folds fetched remote quotes into a Store. Remote wins by default;
// content disagreements are recorded in the log before the remote version
// is applied.
type Merger struct {
	store *store.Store
	log   *ConflictLog
	now   func() time.Time
}

// NewMerger creates a Merger. A nil clock means time.Now.
func NewMerger(s *store.Store, log *ConflictLog, clock func() time.Time) *Merger {
	if clock == nil {
		clock = time.Now
	}
	return &Merger{store: s, log: log, now: clock}
}

// Merge applies incoming to the store and returns how many quotes were
// inserted or overwritten. Identical content only refreshes LastSyncedAt.
// When a remote id appears more than once in incoming, the last entry wins.
// The store is flushed when anything was applied; a flush error is returned
// but the in-memory result stands.
func (m *Merger) Merge(ctx context.Context, incoming []model.Quote) (int, error) {
	defer logging.Timer("merge")()

	now := m.now()
	applied := 0

	for _, r := range normalizeIncoming(incoming, now) {
		e, found := m.store.FindByRemoteID(r.RemoteID)
		if !found {
			r.MarkSynced(now)
			if _, err := m.store.Insert(r); err != nil {
				logging.Debug("dropping remote quote", logging.Remote(r.RemoteID), logging.Err(err))
				continue
			}
			applied++
			continue
		}

		if e.SameContent(r) {
			if _, err := m.store.Replace(e.LocalID, func(q *model.Quote) { q.MarkSynced(now) }); err != nil {
				logging.Debug("could not stamp synced quote", logging.Quote(e.LocalID), logging.Err(err))
			}
			continue
		}

		m.log.Append(model.Conflict{
			Local:      e,
			Remote:     r,
			Resolution: model.ResolutionServer,
			DetectedAt: now,
		})
		_, err := m.store.Replace(e.LocalID, func(q *model.Quote) {
			q.Text = r.Text
			q.Category = r.Category
			q.UpdatedAt = r.UpdatedAt
			q.Origin = model.OriginRemote
			q.MarkSynced(now)
		})
		if err != nil {
			logging.Warn("could not apply remote version", logging.Quote(e.LocalID), logging.Err(err))
			continue
		}
		logging.Debug("conflict captured", logging.Quote(e.LocalID), logging.Remote(r.RemoteID))
		applied++
	}

	if applied > 0 {
		if err := m.store.Flush(ctx); err != nil {
			return applied, fmt.Errorf("merge: %w", err)
		}
	}
	return applied, nil
}

// normalizeIncoming drops invalid entries and collapses repeated remote ids
// into their last occurrence, kept at the first occurrence's position.
func normalizeIncoming(incoming []model.Quote, now time.Time) []model.Quote {
	out := make([]model.Quote, 0, len(incoming))
	pos := make(map[string]int, len(incoming))
	for _, in := range incoming {
		r, ok := model.Normalize(in, now)
		if !ok || r.RemoteID == "" {
			logging.Debug("dropping invalid remote quote", logging.Remote(in.RemoteID))
			continue
		}
		r.Origin = model.OriginRemote
		if i, dup := pos[r.RemoteID]; dup {
			logging.Debug("duplicate remote id in fetch, keeping last", logging.Remote(r.RemoteID))
			out[i] = r
			continue
		}
		pos[r.RemoteID] = len(out)
		out = append(out, r)
	}
	return out
}

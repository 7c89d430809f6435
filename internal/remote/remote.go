// Package remote provides adapters for the remote source of record.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rcliao/quotesync/internal/model"
)

// ErrStatus is matched by every StatusError.
var ErrStatus = errors.New("unexpected remote status")

// Adapter fetches and pushes quotes to a remote replica.
type Adapter interface {
	// Fetch returns the current remote quotes, each resolved to a local id.
	// On error the caller must not mutate anything.
	Fetch(ctx context.Context) ([]model.Quote, error)

	// Push writes q to the remote and returns the remote id it is stored
	// under.
	Push(ctx context.Context, q model.Quote) (string, error)
}

// Resolver maps a remote identity to a stable local quote.
type Resolver interface {
	UpsertByRemoteID(remoteID string, f model.Fields) (model.Quote, bool)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the remote answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Option configures an adapter.
type Option func(*options)

type options struct {
	clock  func() time.Time
	client Doer
}

func defaultOptions() options {
	return options{clock: time.Now}
}

// WithClock sets the clock that stamps UpdatedAt on fetched quotes. The
// remote carries no modification times of its own.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithHTTPClient sets the HTTP client used by HTTPAdapter.
func WithHTTPClient(c Doer) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// resolve builds the local view of a fetched quote. A known remote id keeps
// its local id; everything else comes from the remote.
func resolve(r Resolver, remoteID string, f model.Fields) model.Quote {
	q, found := r.UpsertByRemoteID(remoteID, f)
	if found {
		q.Text = f.Text
		q.Category = f.Category
		q.UpdatedAt = f.UpdatedAt
		q.Origin = f.Origin
		q.LastSyncedAt = nil
	}
	return q
}

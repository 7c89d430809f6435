// Package model defines the core quote data types.
package model

import (
	"strings"
	"time"
)

// Origin names the side that last wrote a quote's content.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Resolution is the chosen outcome for a conflict.
type Resolution string

const (
	ResolutionServer Resolution = "server"
	ResolutionLocal  Resolution = "local"
)

// ValidOrigins are the allowed origin values.
var ValidOrigins = map[Origin]bool{
	OriginLocal:  true,
	OriginRemote: true,
}

// ValidResolutions are the allowed resolution choices.
var ValidResolutions = map[Resolution]bool{
	ResolutionServer: true,
	ResolutionLocal:  true,
}

// Quote is a reconciled unit of content tracked by both replicas.
type Quote struct {
	LocalID      string     `json:"localId"`
	RemoteID     string     `json:"remoteId,omitempty"`
	Text         string     `json:"text"`
	Category     string     `json:"category"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Origin       Origin     `json:"origin"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// Fields holds the mutable content of a quote.
type Fields struct {
	Text      string
	Category  string
	UpdatedAt time.Time
	Origin    Origin
}

// Fields returns the content fields of q.
func (q Quote) Fields() Fields {
	return Fields{Text: q.Text, Category: q.Category, UpdatedAt: q.UpdatedAt, Origin: q.Origin}
}

// SameContent reports whether q and o carry identical text and category.
func (q Quote) SameContent(o Quote) bool {
	return q.Text == o.Text && q.Category == o.Category
}

// Clone returns a deep copy of q.
func (q Quote) Clone() Quote {
	if q.LastSyncedAt != nil {
		t := *q.LastSyncedAt
		q.LastSyncedAt = &t
	}
	return q
}

// MarkSynced stamps LastSyncedAt.
func (q *Quote) MarkSynced(at time.Time) {
	t := at.UTC()
	q.LastSyncedAt = &t
}

// Normalize trims text and category and fills defaults. It returns false
// when the quote must be rejected. now is used for a missing or future
// UpdatedAt. LocalID is left to the caller.
func Normalize(q Quote, now time.Time) (Quote, bool) {
	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.TrimSpace(q.Category)
	if q.Text == "" || q.Category == "" {
		return q, false
	}
	q.RemoteID = strings.TrimSpace(q.RemoteID)

	if q.UpdatedAt.IsZero() || q.UpdatedAt.After(now) {
		q.UpdatedAt = now
	}
	q.UpdatedAt = q.UpdatedAt.UTC()

	// "server" is the origin name used by older exports.
	if q.Origin == "server" {
		q.Origin = OriginRemote
	}
	if !ValidOrigins[q.Origin] {
		if q.RemoteID != "" {
			q.Origin = OriginRemote
		} else {
			q.Origin = OriginLocal
		}
	}
	return q.Clone(), true
}

// Conflict is a captured disagreement between the local and remote versions
// of the same quote.
type Conflict struct {
	Local      Quote      `json:"local"`
	Remote     Quote      `json:"remote"`
	Resolution Resolution `json:"resolution"`
	DetectedAt time.Time  `json:"detectedAt"`
}

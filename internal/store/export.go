package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rcliao/quotesync/internal/model"
)

// ErrNotArray is returned by Decode when the payload is not a JSON array.
var ErrNotArray = errors.New("invalid quote file: expected an array")

// wireQuote is the lenient decode shape of an exported quote. The id and
// serverId keys are accepted for files written before the remoteId rename.
type wireQuote struct {
	LocalID      string `json:"localId"`
	ID           string `json:"id"`
	RemoteID     string `json:"remoteId"`
	ServerID     string `json:"serverId"`
	Text         string `json:"text"`
	Category     string `json:"category"`
	UpdatedAt    string `json:"updatedAt"`
	Origin       string `json:"origin"`
	LastSyncedAt string `json:"lastSyncedAt"`
}

func (w wireQuote) quote() model.Quote {
	q := model.Quote{
		LocalID:  firstNonEmpty(w.LocalID, w.ID),
		RemoteID: firstNonEmpty(w.RemoteID, w.ServerID),
		Text:     w.Text,
		Category: w.Category,
		Origin:   model.Origin(w.Origin),
	}
	q.UpdatedAt, _ = time.Parse(time.RFC3339Nano, w.UpdatedAt)
	if t, err := time.Parse(time.RFC3339Nano, w.LastSyncedAt); err == nil {
		q.LastSyncedAt = &t
	}
	return q
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Export writes quotes as an indented JSON array.
func Export(w io.Writer, quotes []model.Quote) error {
	if quotes == nil {
		quotes = []model.Quote{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(quotes)
}

// Decode reads a JSON array of quotes. Entries that are not objects, have
// mistyped fields, or fail normalization are dropped. Local ids are kept as
// given; the Store replaces missing or colliding ones on insert.
func Decode(r io.Reader, now time.Time) ([]model.Quote, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, ErrNotArray
	}

	quotes := make([]model.Quote, 0, len(items))
	for _, item := range items {
		var w wireQuote
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		q, ok := model.Normalize(w.quote(), now)
		if !ok {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

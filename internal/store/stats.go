package store

import (
	"os"
	"sort"

	"github.com/rcliao/quotesync/internal/model"
)

// Stats holds replica statistics.
type Stats struct {
	Path        string          `json:"path,omitempty"`
	SizeBytes   int64           `json:"size_bytes,omitempty"`
	Total       int             `json:"total"`
	Local       int             `json:"local"`
	Remote      int             `json:"remote"`
	Linked      int             `json:"linked"`
	NeverSynced int             `json:"never_synced"`
	Categories  []CategoryStats `json:"categories"`
}

// CategoryStats holds per-category counts.
type CategoryStats struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Stats returns replica statistics. Path and size are filled when the
// persister is file-backed.
func (s *Store) Stats() *Stats {
	st := &Stats{}

	if fp, ok := s.p.(interface{ Path() string }); ok {
		st.Path = fp.Path()
		if info, err := os.Stat(st.Path); err == nil {
			st.SizeBytes = info.Size()
		}
	}

	counts := make(map[string]int)
	for _, q := range s.All() {
		st.Total++
		switch q.Origin {
		case model.OriginLocal:
			st.Local++
		case model.OriginRemote:
			st.Remote++
		}
		if q.RemoteID != "" {
			st.Linked++
		}
		if q.LastSyncedAt == nil {
			st.NeverSynced++
		}
		counts[q.Category]++
	}

	for c, n := range counts {
		st.Categories = append(st.Categories, CategoryStats{Category: c, Count: n})
	}
	sort.Slice(st.Categories, func(i, j int) bool {
		if st.Categories[i].Count != st.Categories[j].Count {
			return st.Categories[i].Count > st.Categories[j].Count
		}
		return st.Categories[i].Category < st.Categories[j].Category
	})
	return st
}

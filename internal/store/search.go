package store

import (
	"strings"

	"github.com/rcliao/quotesync/internal/model"
)

// SearchParams holds parameters for searching quotes.
type SearchParams struct {
	Query    string
	Category string
	Limit    int
}

// Search finds quotes whose text or category contains the query,
// case-insensitively, in insertion order.
func (s *Store) Search(p SearchParams) []model.Quote {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	needle := strings.ToLower(strings.TrimSpace(p.Query))

	var results []model.Quote
	for _, q := range s.All() {
		if p.Category != "" && q.Category != p.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(q.Text), needle) &&
			!strings.Contains(strings.ToLower(q.Category), needle) {
			continue
		}
		results = append(results, q)
		if len(results) >= limit {
			break
		}
	}
	return results
}

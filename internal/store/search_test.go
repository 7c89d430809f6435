package store

import (
	"context"
	"testing"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Add(ctx, "Stay hungry, stay foolish.", "Inspiration")
	s.Add(ctx, "Simplicity is prerequisite for reliability.", "Engineering")
	s.Add(ctx, "Talk is cheap. Show me the code.", "Engineering")

	tests := []struct {
		name     string
		params   SearchParams
		expected int
	}{
		{"text match", SearchParams{Query: "stay"}, 1},
		{"case insensitive", SearchParams{Query: "SIMPLICITY"}, 1},
		{"category match", SearchParams{Query: "engineering"}, 2},
		{"category filter", SearchParams{Query: "is", Category: "Engineering"}, 2},
		{"no match", SearchParams{Query: "zebra"}, 0},
		{"empty query lists all", SearchParams{}, 3},
		{"limit", SearchParams{Limit: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Search(tt.params)
			if len(got) != tt.expected {
				t.Errorf("expected %d results, got %d", tt.expected, len(got))
			}
		})
	}
}

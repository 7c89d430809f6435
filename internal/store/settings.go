package store

import (
	"context"
	"strings"

	"github.com/rcliao/quotesync/internal/logging"
)

// AllCategories is the category filter that matches every quote.
const AllCategories = "all"

const selectedCategoryKey = "selected_category"

// SettingsPersister is implemented by persisters that can keep small
// key/value settings next to the quotes.
type SettingsPersister interface {
	// GetSetting returns "" when key was never set.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SelectedCategory returns the last saved category filter, or AllCategories
// when none was saved or the backend cannot keep settings.
func (s *Store) SelectedCategory(ctx context.Context) string {
	sp, ok := s.p.(SettingsPersister)
	if !ok {
		return AllCategories
	}
	v, err := sp.GetSetting(ctx, selectedCategoryKey)
	if err != nil {
		logging.Warn("could not read selected category", logging.Err(err))
		return AllCategories
	}
	if v == "" {
		return AllCategories
	}
	return v
}

// SetSelectedCategory saves category as the filter for later sessions. An
// empty category saves AllCategories.
func (s *Store) SetSelectedCategory(ctx context.Context, category string) error {
	sp, ok := s.p.(SettingsPersister)
	if !ok {
		return nil
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = AllCategories
	}
	return sp.SetSetting(ctx, selectedCategoryKey, category)
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/store"
	"github.com/rcliao/quotesync/internal/ui"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a random quote",
		Run:   runShow,
	}

	cmd.Flags().StringP("category", "c", "", "Pick from this category (default: last used, or all)")

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	category := categoryFilter(cmd, s)

	q, ok := s.Random(category)
	if !ok {
		fmt.Println("No quotes in this category yet.")
		return
	}

	if textOutput() {
		fmt.Println(ui.Quote(q))
		return
	}
	b, _ := json.MarshalIndent(q, "", "  ")
	fmt.Println(string(b))
}

// categoryFilter returns the --category flag and saves it for later runs.
// Without the flag it returns the saved filter.
func categoryFilter(cmd *cobra.Command, s *store.Store) string {
	if !cmd.Flags().Changed("category") {
		return s.SelectedCategory(cmd.Context())
	}
	category, _ := cmd.Flags().GetString("category")
	if err := s.SetSelectedCategory(cmd.Context(), category); err != nil {
		logging.Warn("could not save category filter", logging.Err(err))
	}
	if category == "" {
		return store.AllCategories
	}
	return category
}

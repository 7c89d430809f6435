package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/store"
	"github.com/rcliao/quotesync/internal/ui"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search quotes by keyword",
		Long:  "Search quote text and categories for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("category", "c", "", "Filter by category")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results := s.Search(store.SearchParams{
		Query:    query,
		Category: category,
		Limit:    limit,
	})

	if textOutput() {
		for _, q := range results {
			fmt.Println(ui.Quote(q))
		}
		return
	}
	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/model"
	"github.com/rcliao/quotesync/internal/store"
	"github.com/rcliao/quotesync/internal/ui"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes",
		Run:   runList,
	}

	cmd.Flags().StringP("category", "c", "", "Filter by category (default: last used, or all)")
	cmd.Flags().Bool("ids-only", false, "Only output local ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	category := categoryFilter(cmd, s)

	quotes := []model.Quote{}
	for _, q := range s.All() {
		if category == store.AllCategories || q.Category == category {
			quotes = append(quotes, q)
		}
	}

	switch {
	case idsOnly:
		for _, q := range quotes {
			fmt.Println(q.LocalID)
		}
	case textOutput():
		for _, q := range quotes {
			fmt.Printf("%s %s %s\n", ui.Dim(q.LocalID), ui.Quote(q), ui.Origin(q.Origin))
		}
	default:
		b, _ := json.MarshalIndent(quotes, "", "  ")
		fmt.Println(string(b))
	}
}

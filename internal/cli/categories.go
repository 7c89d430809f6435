package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories with quote counts",
		Run:   runCategories,
	}

	RootCmd.AddCommand(cmd)
}

func runCategories(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	counts := make(map[string]int)
	for _, c := range s.Stats().Categories {
		counts[c.Category] = c.Count
	}

	type row struct {
		Category string `json:"category"`
		Count    int    `json:"count"`
	}
	rows := []row{}
	for _, c := range s.Categories() {
		rows = append(rows, row{Category: c, Count: counts[c]})
	}

	if textOutput() {
		for _, r := range rows {
			fmt.Printf("%s (%d)\n", r.Category, r.Count)
		}
		return
	}
	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(b))
}

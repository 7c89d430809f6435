package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/ui"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a quote",
		Long:  "Add a local quote. Text can be a positional arg or piped via stdin.",
		Run:   runAdd,
	}

	cmd.Flags().StringP("category", "c", "", "Category (required)")
	cmd.MarkFlagRequired("category")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = string(b)
		}
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	q, err := s.Add(cmd.Context(), text, category)
	if err != nil {
		exitErr("add", err)
	}

	if textOutput() {
		fmt.Println(ui.StatusSuccess("Added " + ui.Quote(q)))
		return
	}
	b, _ := json.Marshal(q)
	fmt.Println(string(b))
}

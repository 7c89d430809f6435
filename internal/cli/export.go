package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quotes as JSON",
		Long: "Export every quote as a JSON array. Writes to stdout unless --out is given; " +
			"a directory gets a dated quotes-YYYY-MM-DD.json file.",
		Run: runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Output file or directory")

	RootCmd.AddCommand(cmd)
}

func exportPath(out string, now time.Time) string {
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, fmt.Sprintf("quotes-%s.json", now.Format("2006-01-02")))
	}
	return out
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var w io.Writer = os.Stdout
	if out != "" {
		path := exportPath(out, time.Now())
		f, err := os.Create(path)
		if err != nil {
			exitErr("create export file", err)
		}
		defer f.Close()
		w = f
		defer fmt.Fprintf(os.Stderr, "exported %d quotes to %s\n", s.Len(), path)
	}

	if err := store.Export(w, s.All()); err != nil {
		exitErr("export", err)
	}
}

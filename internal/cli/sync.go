package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/model"
	"github.com/rcliao/quotesync/internal/reconcile"
	"github.com/rcliao/quotesync/internal/ui"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile with the remote once",
		Long: "Fetch the remote quotes and merge them into the local replica. Remote changes win;\n" +
			"each disagreement is reported as a conflict and can be kept local with --keep or --interactive.",
		Run: runSync,
	}

	cmd.Flags().BoolP("interactive", "i", false, "Choose a side for each conflict")
	cmd.Flags().String("keep", "", "Apply one choice to every conflict: server or local")

	RootCmd.AddCommand(cmd)
}

type syncResult struct {
	Applied   int                    `json:"applied"`
	Status    string                 `json:"status"`
	Conflicts []model.Conflict       `json:"conflicts"`
	Resolved  *reconcile.ApplyReport `json:"resolved,omitempty"`
}

func runSync(cmd *cobra.Command, args []string) {
	interactive, _ := cmd.Flags().GetBool("interactive")
	keep, _ := cmd.Flags().GetString("keep")
	if keep != "" && !model.ValidResolutions[model.Resolution(keep)] {
		exitErr("sync", reconcile.ErrInvalidResolution)
	}

	ctx := cmd.Context()
	e, s, err := openEngine(ctx)
	if err != nil {
		exitErr("sync", err)
	}
	defer s.Close()

	out, err := reconcile.NewScheduler(e).SyncOnce(ctx)
	if err != nil {
		if textOutput() {
			fmt.Println(ui.StatusError(out.Status()))
		}
		exitErr("sync", err)
	}

	res := syncResult{Applied: out.Applied, Status: out.Status(), Conflicts: e.Conflicts()}
	if textOutput() {
		printOutcome(out)
	}

	if e.HasPending() {
		if err := chooseResolutions(e, keep, interactive); err != nil {
			exitErr("resolve conflicts", err)
		}
		report, err := applyConflicts(ctx, e)
		if err != nil {
			exitErr("apply conflicts", err)
		}
		res.Resolved = &report
	}

	if !textOutput() {
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(b))
	}
}

func chooseResolutions(e *reconcile.Engine, keep string, interactive bool) error {
	switch {
	case keep != "":
		for i := range e.Conflicts() {
			if err := e.SetResolution(i, model.Resolution(keep)); err != nil {
				return err
			}
		}
	case interactive:
		return NewConflictPrompt(os.Stdin, os.Stdout).Resolve(e)
	}
	return nil
}

// applyConflicts applies the pending choices and waits for pushes of
// quotes kept local.
func applyConflicts(ctx context.Context, e *reconcile.Engine) (reconcile.ApplyReport, error) {
	report, err := e.ApplyAll(ctx)
	e.Wait()
	if err != nil {
		return report, err
	}
	if textOutput() {
		fmt.Println(ui.StatusSuccess(fmt.Sprintf("%s Server: %d, local: %d, skipped: %d",
			report.Status(), report.Server, report.Local, report.Skipped)))
	}
	return report, nil
}

func printOutcome(out reconcile.Outcome) {
	switch {
	case out.Err != nil:
		fmt.Println(ui.StatusError(out.Status()))
	case out.ConflictsAfter > 0:
		fmt.Println(ui.StatusWarning(out.Status()))
	default:
		fmt.Println(ui.StatusSuccess(out.Status()))
	}
}

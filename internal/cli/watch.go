package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/reconcile"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile with the remote periodically",
		Long: "Run a sync pass now and then on every interval until interrupted.\n" +
			"Conflicts keep the server version.",
		Run: runWatch,
	}

	cmd.Flags().Duration("interval", 0, "Sync interval (default: sync.interval from config, 30s)")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.Sync.Interval
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, s, err := openEngine(ctx)
	if err != nil {
		exitErr("watch", err)
	}
	defer s.Close()

	sched := reconcile.NewScheduler(e)
	sched.OnOutcome(func(out reconcile.Outcome) {
		printWatchOutcome(out)
		if e.HasPending() {
			if _, err := applyConflicts(ctx, e); err != nil {
				logging.Warn("apply conflicts failed", logging.Err(err))
			}
		}
	})

	sched.SyncOnce(ctx)
	sched.StartAuto(ctx, interval)
	logging.Info("watching remote", "interval", interval)

	<-ctx.Done()
	sched.StopAuto()
	e.Wait()
}

func printWatchOutcome(out reconcile.Outcome) {
	if textOutput() {
		printOutcome(out)
		return
	}
	entry := struct {
		reconcile.Outcome
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}{Outcome: out, Status: out.Status()}
	if out.Err != nil {
		entry.Error = out.Err.Error()
	}
	b, _ := json.Marshal(entry)
	fmt.Println(string(b))
}


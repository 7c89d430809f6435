package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push local quotes that were never synced",
		Run:   runPush,
	}

	RootCmd.AddCommand(cmd)
}

func runPush(cmd *cobra.Command, args []string) {
	e, s, err := openEngine(cmd.Context())
	if err != nil {
		exitErr("push", err)
	}
	defer s.Close()

	pushed, err := e.PushUnsynced(cmd.Context())
	fmt.Printf(`{"ok":%t,"pushed":%d}`+"\n", err == nil, pushed)
	if err != nil {
		exitErr("push", err)
	}
}

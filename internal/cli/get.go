package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/quotesync/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <localId>",
		Short: "Retrieve a quote",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("remote", false, "Look up by remote id instead")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	byRemote, _ := cmd.Flags().GetBool("remote")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	find := s.FindByLocalID
	if byRemote {
		find = s.FindByRemoteID
	}
	q, ok := find(args[0])
	if !ok {
		exitErr("get", fmt.Errorf("%w: %s", store.ErrNotFound, args[0]))
	}

	b, _ := json.MarshalIndent(q, "", "  ")
	fmt.Println(string(b))
}

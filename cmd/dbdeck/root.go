package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/nkovachev/dbdeck/internal/sharing"
	"github.com/spf13/cobra"
)

// newRootCmd builds the full command tree. It takes its dependencies as
// arguments so tests can run commands against a fake API.
func newRootCmd(client *gateway.Client, workflow *sharing.Workflow) *cobra.Command {
	root := &cobra.Command{
		Use:           "dbdeck",
		Short:         "dbdeck is a client for the database management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(client),
		newRegisterCmd(client),
		newLogoutCmd(client),
		newProfileCmd(client),
		newDBCmd(client),
		newKeysCmd(client),
		newEndpointsCmd(client),
		newLogsCmd(client),
		newShareCmd(client, workflow),
	)
	return root
}

// printJSON writes v to the command's stdout, indented for humans.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", arg, err)
	}
	return id, nil
}

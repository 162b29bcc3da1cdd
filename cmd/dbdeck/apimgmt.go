package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/spf13/cobra"
)

func newKeysCmd(client *gateway.Client) *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	add := &cobra.Command{
		Use:   "add <database-id> <name>",
		Short: "Generate a key for a database; the raw key prints once",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(args[0])
			if err != nil {
				return err
			}
			key, err := client.CreateAPIKey(cmd.Context(), gateway.APIKeyRequest{
				DatabaseID: dbID,
				Name:       args[1],
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, key)
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := client.APIKeys(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			key, err := client.ToggleAPIKey(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, key)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := client.DeleteAPIKey(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}

	keys.AddCommand(add, ls, toggle, rm)
	return keys
}

func newEndpointsCmd(client *gateway.Client) *cobra.Command {
	endpoints := &cobra.Command{
		Use:   "endpoints",
		Short: "Manage generated API endpoints",
	}

	var addReq gateway.EndpointRequest
	var addDB string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register an endpoint for a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(addDB)
			if err != nil {
				return err
			}
			addReq.DatabaseID = dbID
			ep, err := client.CreateEndpoint(cmd.Context(), addReq)
			if err != nil {
				return err
			}
			return printJSON(cmd, ep)
		},
	}
	add.Flags().StringVar(&addDB, "database", "", "database connection id")
	add.Flags().StringVar(&addReq.Collection, "collection", "", "collection or table name")
	add.Flags().StringVar(&addReq.Path, "path", "", "endpoint path")
	add.Flags().StringVar(&addReq.Method, "method", "GET", "HTTP method")
	add.MarkFlagRequired("database")
	add.MarkFlagRequired("collection")
	add.MarkFlagRequired("path")

	var lsDB string
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List endpoints, optionally for one database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := uuid.Nil
			if lsDB != "" {
				id, err := parseID(lsDB)
				if err != nil {
					return err
				}
				filter = id
			}
			list, err := client.Endpoints(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}
	ls.Flags().StringVar(&lsDB, "database", "", "only endpoints of this database")

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ep, err := client.ToggleEndpoint(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, ep)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := client.DeleteEndpoint(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}

	endpoints.AddCommand(add, ls, toggle, rm)
	return endpoints
}

func newLogsCmd(client *gateway.Client) *cobra.Command {
	logs := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the request log of generated endpoints",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List logged requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := client.Logs(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete all logged requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.ClearLogs(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}

	logs.AddCommand(ls, clear)
	return logs
}

package main

import (
	"fmt"

	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/spf13/cobra"
)

func connectionFlags(cmd *cobra.Command, req *gateway.ConnectionRequest) {
	cmd.Flags().StringVar(&req.Name, "name", "", "connection name")
	cmd.Flags().StringVar(&req.Type, "type", "", "engine: mysql, postgres or mongodb")
	cmd.Flags().StringVar(&req.Host, "host", "", "database host")
	cmd.Flags().IntVar(&req.Port, "port", 0, "database port")
	cmd.Flags().StringVar(&req.Database, "database", "", "database name")
	cmd.Flags().StringVar(&req.Username, "username", "", "database user")
	cmd.Flags().StringVar(&req.Password, "password", "", "database password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("host")
	cmd.MarkFlagRequired("port")
	cmd.MarkFlagRequired("database")
}

func newDBCmd(client *gateway.Client) *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Manage database connections",
	}

	var testReq gateway.ConnectionRequest
	test := &cobra.Command{
		Use:   "test",
		Short: "Check connection settings without saving them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.TestConnection(cmd.Context(), testReq); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "connection ok")
			return nil
		},
	}
	connectionFlags(test, &testReq)

	var addReq gateway.ConnectionRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Save a new database connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := client.CreateConnection(cmd.Context(), addReq)
			if err != nil {
				return err
			}
			return printJSON(cmd, conn)
		},
	}
	connectionFlags(add, &addReq)

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List saved connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := client.Connections(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	info := &cobra.Command{
		Use:   "info <id>",
		Short: "Show a connection's collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out, err := client.DatabaseInfo(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := client.DeleteConnection(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}

	db.AddCommand(test, add, ls, info, rm)
	return db
}

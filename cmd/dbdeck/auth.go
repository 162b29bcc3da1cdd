package main

import (
	"fmt"

	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/spf13/cobra"
)

func newLoginCmd(client *gateway.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", resp.User.Email)
			return nil
		},
	}
}

func newRegisterCmd(client *gateway.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "register <email> <password>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Register(cmd.Context(), gateway.Credentials{
				Email:    args[0],
				Password: args[1],
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", resp.User.Email)
			return nil
		},
	}
}

func newLogoutCmd(client *gateway.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newProfileCmd(client *gateway.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		},
	}
}

package main

import (
	"fmt"

	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/nkovachev/dbdeck/internal/sharing"
	"github.com/spf13/cobra"
)

func newShareCmd(client *gateway.Client, workflow *sharing.Workflow) *cobra.Command {
	share := &cobra.Command{
		Use:   "share",
		Short: "Share databases with other users",
	}

	var invitePermission string
	invite := &cobra.Command{
		Use:   "invite <database-id> <email>",
		Short: "Invite a user to a database you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(args[0])
			if err != nil {
				return err
			}
			created, err := workflow.Invite(cmd.Context(), dbID, args[1], invitePermission)
			if err != nil {
				return err
			}
			return printJSON(cmd, created)
		},
	}
	invite.Flags().StringVar(&invitePermission, "permission", "read", "permission level: read, write or admin")

	ls := &cobra.Command{
		Use:   "ls <database-id>",
		Short: "List invitations for a database you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := workflow.RefreshInvitations(cmd.Context(), dbID)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	show := &cobra.Command{
		Use:   "show <token>",
		Short: "Look up a pending invitation by its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := client.Invitation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, inv)
		},
	}

	accept := &cobra.Command{
		Use:   "accept <token>",
		Short: "Accept an invitation addressed to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grant, err := workflow.Accept(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, grant)
		},
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List open invitations addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := workflow.RefreshPending(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	databases := &cobra.Command{
		Use:   "databases",
		Short: "List databases shared with you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := workflow.RefreshShared(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	access := &cobra.Command{
		Use:   "access <database-id>",
		Short: "List who holds access to a database you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := workflow.RefreshAccess(cmd.Context(), dbID)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <database-id> <invitation-id>",
		Short: "Retract an invitation; removes the grant if it was accepted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(args[0])
			if err != nil {
				return err
			}
			invID, err := parseID(args[1])
			if err != nil {
				return err
			}
			list, err := workflow.RefreshInvitations(cmd.Context(), dbID)
			if err != nil {
				return err
			}
			if _, err := workflow.RefreshAccess(cmd.Context(), dbID); err != nil {
				return err
			}
			for _, inv := range list {
				if inv.ID == invID {
					if err := workflow.Revoke(cmd.Context(), inv); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "revoked")
					return nil
				}
			}
			return fmt.Errorf("no invitation %s on database %s", invID, dbID)
		},
	}

	revokeAccess := &cobra.Command{
		Use:   "revoke-access <database-id> <user-id>",
		Short: "Remove a user's access to a database you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(args[0])
			if err != nil {
				return err
			}
			userID, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := workflow.RevokeGrant(cmd.Context(), dbID, userID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "access revoked")
			return nil
		},
	}

	leave := &cobra.Command{
		Use:   "leave <database-id>",
		Short: "Give up your access to a shared database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := workflow.Leave(cmd.Context(), dbID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "left")
			return nil
		},
	}

	share.AddCommand(invite, ls, show, accept, pending, databases, access, revoke, revokeAccess, leave)
	return share
}

package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/client"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/api"
)

// NewAdminCmd groups the admin subcommands.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin operations",
	}
	cmd.AddCommand(newAdminTokenCmd(), newAdminQueueCmd())
	return cmd
}

func newAdminTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			subject, _ := cmd.Flags().GetString("subject")
			tok, err := api.NewAuthManager(secret, ttl).Mint(subject)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("secret", envOr("ADMIN_JWT_SECRET", ""), "HS256 signing secret")
	cmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	cmd.Flags().String("subject", "admin", "token subject")
	return cmd
}

func newAdminQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the pending chat job count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, _ := cmd.Flags().GetString("token")
			q, err := newClient(cmd, client.WithAdminToken(tok)).AdminQueue(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(q)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\npending: %d\n", q.Backend, q.Pending)
			return nil
		},
	}
	cmd.Flags().String("token", envOr("CHAT_ADMIN_TOKEN", ""), "admin bearer token")
	return cmd
}

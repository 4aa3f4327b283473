package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/client"
)

const AppName = "chatcli"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "chatcli - terminal client for the sales chat API",
		Long:          "chatcli submits chat turns to the sales assistant API and polls for the replies.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("server", envOr("CHAT_API_URL", "http://localhost:8080"), "chat API base URL")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "how long to wait for a reply")
	cmd.PersistentFlags().Duration("interval", time.Second, "status polling interval")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewAskCmd(),
		NewChatCmd(),
		NewStatusCmd(),
		NewAdminCmd(),
	)
	return cmd
}

// Execute runs the root command; SIGINT/SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCmd(Version).ExecuteContext(ctx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newClient(cmd *cobra.Command, opts ...client.Option) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	return client.New(server, opts...)
}

func newPoller(cmd *cobra.Command, c *client.Client) *client.Poller {
	p := client.NewPoller(c)
	if d, _ := cmd.Flags().GetDuration("timeout"); d > 0 {
		p.Timeout = d
	}
	if d, _ := cmd.Flags().GetDuration("interval"); d > 0 {
		p.Interval = d
	}
	return p
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	return err
}

package command

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/client"
)

// NewChatCmd creates the interactive chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation (/clear resets, /quit exits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			conv := client.NewConversation(c, newPoller(cmd, c))
			info := companyFromFlags(cmd)
			if err := conv.SetCompanyInfo(info); err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()
			printLast(cmd, conv)

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					fmt.Fprintln(out)
					return in.Err()
				}
				line := strings.TrimSpace(in.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				case "/clear":
					conv.Clear()
					_ = conv.SetCompanyInfo(info)
					printLast(cmd, conv)
					continue
				}

				fmt.Fprintln(out, "...")
				res, err := conv.Send(cmd.Context(), line)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if res.Kind == client.OutcomeCompleted {
					printLast(cmd, conv)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", conv.Error())
				}
			}
		},
	}
	addCompanyFlags(cmd)
	return cmd
}

func printLast(cmd *cobra.Command, conv *client.Conversation) {
	msgs := conv.Messages()
	if len(msgs) == 0 {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "assistant: %s\n", msgs[len(msgs)-1].Content)
}

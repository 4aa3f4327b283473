package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/client"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

func addCompanyFlags(cmd *cobra.Command) {
	cmd.Flags().String("company", "", "company name (required)")
	cmd.Flags().String("website", "", "company website (required)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("website")
}

func companyFromFlags(cmd *cobra.Command) model.CompanyInfo {
	name, _ := cmd.Flags().GetString("company")
	site, _ := cmd.Flags().GetString("website")
	return model.CompanyInfo{CompanyName: name, WebsiteURL: site}
}

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask one question and wait for the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			conv := client.NewConversation(c, newPoller(cmd, c))
			if err := conv.SetCompanyInfo(companyFromFlags(cmd)); err != nil {
				return writeCommandError(cmd, err)
			}

			out, err := conv.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printOutcome(cmd, out)
		},
	}
	addCompanyFlags(cmd)
	return cmd
}

func printOutcome(cmd *cobra.Command, out client.Outcome) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		payload := map[string]string{"kind": string(out.Kind)}
		if out.Text != "" {
			payload["text"] = out.Text
		}
		if out.Message != "" {
			payload["message"] = out.Message
		}
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
	} else if out.Kind == client.OutcomeCompleted {
		fmt.Fprintln(cmd.OutOrStdout(), out.Text)
	}
	if out.Kind != client.OutcomeCompleted {
		return writeCommandError(cmd, errors.New(out.Message))
	}
	return nil
}

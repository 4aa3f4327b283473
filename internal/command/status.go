package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current record of a chat job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := newClient(cmd).Status(cmd.Context(), args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(job)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\nstatus:  %s\ncompany: %s (%s)\n", job.ID, job.Status,
				job.CompanyContext.CompanyName, job.CompanyContext.WebsiteURL)
			if job.Result != "" {
				fmt.Fprintf(out, "result:  %s\n", job.Result)
			}
			if job.Error != "" {
				fmt.Fprintf(out, "error:   %s\n", job.Error)
			}
			return nil
		},
	}
}

package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"recap/internal/models"
)

var (
	listLimit  int
	listOffset int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List processing jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		jobs, err := appInstance.JobStore.ListJobs(cmd.Context(), listLimit, listOffset)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			color.Yellow("No jobs found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Kind", "Status", "Progress", "File", "Created", "Expires"})
		table.SetBorder(false)
		for _, job := range jobs {
			table.Append([]string{
				job.ID.String(),
				string(job.Kind),
				colorStatus(job.Status),
				job.ProgressMessage,
				job.OriginalFilename,
				job.CreatedAt.Format("2006-01-02 15:04"),
				job.ExpiresAt.Format("2006-01-02 15:04"),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "Number of jobs to display")
	listCmd.Flags().IntVarP(&listOffset, "offset", "o", 0, "Number of jobs to skip")
}

func colorStatus(s models.JobStatus) string {
	switch s {
	case models.JobStatusCompleted:
		return color.GreenString(string(s))
	case models.JobStatusFailed:
		return color.RedString(string(s))
	case models.JobStatusProcessing:
		return color.CyanString(string(s))
	default:
		return string(s)
	}
}

package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired jobs and their artifacts now",
	Long: `Runs one retention sweep immediately. The worker also runs this on a
schedule; the command exists for manual reclamation and testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		reclaimed, err := appInstance.Sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		color.Green("Cleaned up %d expired job(s)", reclaimed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

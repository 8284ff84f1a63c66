package arg

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if BreakWarden is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := call("GetStatus")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "BreakWarden Status:", result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

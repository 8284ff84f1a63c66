package arg

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:       "reset <daily|monthly>",
	Short:     "Run a reset job now",
	Long:      `Send the summary to every group and clear the daily or monthly counters immediately.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"daily", "monthly"},
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := call("TriggerReset", args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

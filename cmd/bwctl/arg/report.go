package arg

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <tenant-id> <requester-id>",
	Short: "Print the current attendance report of a group",
	Long: `Print daily and monthly fines for every user of a group. The requester
must be one of the configured admins.
Group ids are negative, so separate them from flags with "--".
Example:
  bwctl report -- -1001234567890 7124683213`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		result, err := call("GetReport", ids[0], ids[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

package arg

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/ipc"
	"github.com/SoarinFerret/BreakWarden/internal/session"
)

var userCmd = &cobra.Command{
	Use:   "user <tenant-id> <user-id>",
	Short: "Show detailed status for a user",
	Long: `Display the work session, open activity, accumulated times and fines of one user.
Example:
  bwctl user -- -1001234567890 42`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		jsonResult, err := call("GetUserStatus", ids[0], ids[1])
		if err != nil {
			return err
		}

		var status ipc.UserStatus
		if err := json.Unmarshal([]byte(jsonResult), &status); err != nil {
			return xerrors.Errorf("parse response: %w", err)
		}
		printUserStatus(cmd.OutOrStdout(), status, time.Now())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
}

func printUserStatus(w io.Writer, status ipc.UserStatus, now time.Time) {
	title := fmt.Sprintf("User: %s (%d)", status.Name, status.UserID)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))

	if status.Working && status.WorkStart != nil {
		fmt.Fprintf(w, "Status: Working since %s (%s ago)\n",
			status.WorkStart.Local().Format("15:04:05"),
			session.FormatDuration(now.Sub(*status.WorkStart)))
	} else {
		fmt.Fprintln(w, "Status: Clocked off")
	}
	if status.OpenActivity != "" && status.OpenActivitySince != nil {
		fmt.Fprintf(w, "Activity: %s for %s\n",
			status.OpenActivity,
			session.FormatDuration(now.Sub(*status.OpenActivitySince)))
	}

	fmt.Fprintf(w, "Work time today: %s\n", session.FormatDuration(time.Duration(status.WorkSeconds)*time.Second))
	fmt.Fprintf(w, "Activity time today: %s (%d sessions)\n",
		session.FormatDuration(time.Duration(status.ActivitySeconds)*time.Second), status.Activities)
	fmt.Fprintf(w, "Pure work time: %s\n", session.FormatDuration(time.Duration(status.PureWorkSeconds)*time.Second))
	fmt.Fprintf(w, "Fines: daily $%s, monthly $%s\n", status.DailyFines, status.MonthlyFines)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("invalid id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

package arg

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/ipc"
)

var sessionBus bool

var rootCmd = &cobra.Command{
	Use:   "bwctl",
	Short: "bwctl is the command line tool for BreakWarden",
	Long: `bwctl talks to the BreakWarden daemon over D-Bus.
It can show service status, print attendance reports, inspect a user and
run the daily or monthly reset on demand.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&sessionBus, "session-bus", false, "use the session bus instead of the system bus (daemon configured with [ipc] bus = \"session\")")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// call invokes method on the daemon and stores its single string reply.
func call(method string, args ...interface{}) (string, error) {
	var conn *dbus.Conn
	var err error
	if sessionBus {
		conn, err = dbus.ConnectSessionBus()
	} else {
		conn, err = dbus.ConnectSystemBus()
	}
	if err != nil {
		return "", xerrors.Errorf("connect to bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(ipc.ServiceName, dbus.ObjectPath(ipc.ObjectPath))

	var result string
	if err := obj.Call(ipc.InterfaceName+"."+method, 0, args...).Store(&result); err != nil {
		return "", xerrors.Errorf("call %s: %w", method, err)
	}
	return result, nil
}

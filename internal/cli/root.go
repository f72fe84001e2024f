package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Global flags
var (
	cfgFile   string
	verbose   bool
	noColor   bool
	isTTYFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
)

var rootCmd = &cobra.Command{
	Use:   "zonedash",
	Short: "Live dashboard and command console for zone sensor nodes",
	Long: `zonedash polls the real-time store for the latest reading of each sensor
node, keeps a short rolling history per node, and sends commands (LED color,
night mode, fan control) to the devices through the command relay.

Run without a subcommand on a terminal to open the dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
		logger.SetVerbose(verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTTYFunc() {
			return cmd.Help()
		}
		return dashboardCommand(cmd.Context(), dashboardOptions{})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./.zonedash.yaml, then ~/.config/zonedash/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs (same as ZONEDASH_DEBUG=1)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

// printError writes err to stderr. Structured errors carry their own layout.
func printError(err error) {
	var zdErr *zderrors.Error
	if errors.As(err, &zdErr) {
		fmt.Fprint(os.Stderr, zdErr.Error())
		return
	}
	if isUnknownCommandError(err) {
		fmt.Fprintf(os.Stderr, "%s %v\n\n  Run 'zonedash --help' to see the available commands.\n", ui.SymbolFail, err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", ui.SymbolFail, err)
}

// isUnknownCommandError reports whether err came from cobra's argument parsing.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

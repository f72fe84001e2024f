package cli

import (
	"strings"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	dashNodeFlag     string
	dashIntervalFlag string
	dashManualFlag   bool
	dashLogFileFlag  string
	serveListenFlag  string
	lastJSONFlag     bool
	historySamples   int
	historyEvery     string
	historyJSONFlag  bool
	initForce        bool
	initNonInteract  bool
	configShowFormat string
)

// dashboardCmd opens the full-screen dashboard
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Open the live node dashboard",
	Long: `Open a full-screen dashboard for one node at a time: current readings,
rolling graphs and command keys.

Keyboard shortcuts:
  ←/→, tab    Switch node
  r           Refresh now
  a           Toggle auto refresh
  c           Set LED color
  n           Toggle night mode
  f           Ask the node to send a reading now
  t           Set fan threshold
  o / x       Force fan on / off
  d           Raw frame viewer
  ?           Help
  q           Quit

Examples:
  zonedash dashboard
  zonedash dashboard --node node1 --interval 3s
  zonedash dashboard --log-file /tmp/zonedash.log -v`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(cmd.Context(), dashboardOptions{
			Node:     dashNodeFlag,
			Interval: dashIntervalFlag,
			Manual:   dashManualFlag,
			LogFile:  dashLogFileFlag,
		})
	},
}

// serveCmd starts the HTTP API and live session server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API, live websocket sessions and metrics",
	Long: `Start an HTTP server for browser dashboards and automation.

Endpoints:
  GET  /api/nodes                  configured nodes and the default
  GET  /api/nodes/{node}/last      latest snapshot of a node
  POST /api/nodes/{node}/commands  send a command payload
  GET  /ws?node=<node>             live session (frames, commands)
  GET  /metrics                    Prometheus metrics
  GET  /healthz                    liveness and store breaker state

Examples:
  zonedash serve
  zonedash serve --listen 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd.Context(), serveListenFlag)
	},
}

// lastCmd prints the latest snapshot of a node
var lastCmd = &cobra.Command{
	Use:   "last [node]",
	Short: "Print the latest reading of a node",
	Long: `Fetch the most recent snapshot of a node from the store and print it.

Examples:
  zonedash last
  zonedash last node1
  zonedash last node1 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lastCommand(cmd.Context(), cmd.OutOrStdout(), firstArg(args), lastJSONFlag)
	},
}

// historyCmd collects several refresh cycles and prints the aggregated series
var historyCmd = &cobra.Command{
	Use:   "history [node]",
	Short: "Collect readings for a while and print the series",
	Long: `Run the refresh cycle for a number of samples and print the aggregated
history as a table. Repeated snapshots (same device timestamp) are stored once.

Examples:
  zonedash history --samples 10 --every 2s
  zonedash history node1 --samples 5 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyCommand(cmd.Context(), cmd.OutOrStdout(), historyOptions{
			Node:    firstArg(args),
			Samples: historySamples,
			Every:   historyEvery,
			JSON:    historyJSONFlag,
		})
	},
}

// sendCmd dispatches one command to a node
var sendCmd = &cobra.Command{
	Use:   "send <node> <command> [args...]",
	Short: "Send a command to a node",
	Long: `Send a command to a node through the configured relay.

Commands:
  ` + strings.Join(commandUsages(), "\n  ") + `

Examples:
  zonedash send node2 set_rgb 255 80 0
  zonedash send node2 night_mode on
  zonedash send node1 fan_set_threshold 28 1.5`,
	Args: cobra.MinimumNArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 1 {
			return relay.CommandNames(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], args[2:])
	},
}

// initCmd creates a new .zonedash.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .zonedash.yaml configuration",
	Long: `Create a .zonedash.yaml in the current directory.

Prompts for the store URL, the command relay and the node names. Values
already present in the environment (FIREBASE_DB_URL, NODERED_CMD_URL,
ZONEDASH_NODES) are used as defaults.

Examples:
  zonedash init
  zonedash init --force
  FIREBASE_DB_URL=https://x.firebasedatabase.app zonedash init --non-interactive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Init(cmd.OutOrStdout(), InitOptions{
			Overwrite:      initForce,
			NonInteractive: initNonInteract,
		})
	},
}

// configCmd groups config file helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file, .env and
environment variables are applied. The store auth token and MQTT password
are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd.OutOrStdout(), configShowFormat)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the config file",
	Long: `Set a dotted key in the config file, keeping its comments and layout.

Examples:
  zonedash config set relay.url http://nodered.local:1880/cmd
  zonedash config set nodes node1,node2,node3
  zonedash config set refresh_interval 2s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetCommand(cmd.OutOrStdout(), args[0], args[1])
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for zonedash.

Examples:
  # Bash
  zonedash completion bash > /etc/bash_completion.d/zonedash

  # Zsh
  zonedash completion zsh > "${fpath[1]}/_zonedash"

  # Fish
  zonedash completion fish > ~/.config/fish/completions/zonedash.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return zderrors.New(zderrors.ErrConfig,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	// dashboard flags
	dashboardCmd.Flags().StringVar(&dashNodeFlag, "node", "", "node to show first (default: default_node)")
	dashboardCmd.Flags().StringVar(&dashIntervalFlag, "interval", "", "refresh interval (default: refresh_interval)")
	dashboardCmd.Flags().BoolVar(&dashManualFlag, "manual", false, "start with auto refresh off")
	dashboardCmd.Flags().StringVar(&dashLogFileFlag, "log-file", "", "write logs to this file while the dashboard runs")

	// serve flags
	serveCmd.Flags().StringVar(&serveListenFlag, "listen", "", "listen address (default: server.listen)")

	// last flags
	lastCmd.Flags().BoolVar(&lastJSONFlag, "json", false, "print the snapshot as JSON")

	// history flags
	historyCmd.Flags().IntVar(&historySamples, "samples", 5, "number of refresh cycles to run")
	historyCmd.Flags().StringVar(&historyEvery, "every", "", "time between samples (default: refresh_interval)")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "print the series as JSON")

	// init flags
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	initCmd.Flags().BoolVar(&initNonInteract, "non-interactive", false, "skip prompts and use environment values")

	// config flags
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "yaml", "output format: yaml or json")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)

	// Register all commands
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func commandUsages() []string {
	names := relay.CommandNames()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = relay.Usage(n)
	}
	return out
}

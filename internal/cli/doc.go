// Package cli implements the zonedash command-line interface.
//
// Each Cobra command loads the config once (config.Resolve), builds the
// shared store client and command dispatcher through app, then hands them to
// the package that does the work:
//
//	zonedash                    - dashboard when stdout is a terminal, help otherwise
//	zonedash dashboard          - Bubble Tea dashboard (internal/monitor)
//	zonedash serve              - JSON API, websocket sessions, metrics (internal/server)
//	zonedash last [node]        - one fetch, printed or as JSON
//	zonedash history [node]     - N refresh cycles of one session, printed as a table
//	zonedash send <node> <cmd>  - one dispatch through the configured relay
//	zonedash init               - interactive .zonedash.yaml setup (huh)
//	zonedash config show|set    - inspect or edit the config file
//
// Commands return structured errors from internal/errors; Execute prints them
// and exits 1. Global flags are --config, --verbose and --no-color.
package cli

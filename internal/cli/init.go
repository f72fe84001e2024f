package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/zonedash/internal/config"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/store"
	"github.com/rileyhilliard/zonedash/internal/ui"
	"gopkg.in/yaml.v3"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Dir            string // Directory to write into; "" is the working directory
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use environment values
}

// initValues are the answers init collects.
type initValues struct {
	StoreURL  string
	AuthToken string
	Transport string
	RelayURL  string
	Broker    string
	Nodes     string
	Default   string
}

// probeStore checks the store answers for node. Replaced in tests.
var probeStore = func(ctx context.Context, cfg *config.Config, node string) error {
	c, err := store.NewClient(store.Config{
		URL:       cfg.Store.URL,
		AuthToken: cfg.Store.AuthToken,
		Timeout:   cfg.Store.Timeout,
	})
	if err != nil {
		return err
	}
	_, err = c.Fetch(ctx, node)
	return err
}

// Init creates a new .zonedash.yaml configuration file.
func Init(w io.Writer, opts InitOptions) error {
	configPath := filepath.Join(opts.Dir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return zderrors.New(zderrors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
				Value(&overwrite),
		))
		if err := form.Run(); err != nil {
			return zderrors.WrapWithCode(err, zderrors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	vals := initDefaults()
	if !opts.NonInteractive {
		if err := promptInit(&vals); err != nil {
			return err
		}
	}

	cfg, err := buildInitConfig(vals)
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	spinner := ui.NewSpinner("Checking the store at " + cfg.Store.URL)
	spinner.SetOutput(func(s string) { fmt.Fprint(w, s) })
	spinner.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = probeStore(ctx, cfg, cfg.DefaultNode)
	cancel()

	if err != nil {
		spinner.Fail(zderrors.Summary(err))
		if opts.NonInteractive {
			return zderrors.WrapWithCode(err, zderrors.ErrFetch,
				"The store did not answer",
				"Check the URL and auth token, then run init again")
		}

		var saveAnyway bool
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Save config anyway? (You can fix the store settings later)").
				Value(&saveAnyway),
		))
		if formErr := form.Run(); formErr != nil || !saveAnyway {
			return zderrors.WrapWithCode(err, zderrors.ErrFetch,
				"The store did not answer",
				"Check the URL and auth token, then run init again")
		}
	} else {
		spinner.Success("")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return zderrors.WrapWithCode(err, zderrors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	header := `# zonedash configuration
# Secrets can live in .env instead (FIREBASE_AUTH_TOKEN, ZONEDASH_MQTT_PASSWORD).

`
	if err := os.WriteFile(configPath, []byte(header+string(data)), 0600); err != nil {
		return zderrors.WrapWithCode(err, zderrors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Fprintf(w, "\n%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  zonedash last        - Print the latest reading")
	fmt.Fprintln(w, "  zonedash dashboard   - Open the live dashboard")
	fmt.Fprintln(w, "  zonedash serve       - Serve the API and live sessions")
	return nil
}

// initDefaults seeds answers from the environment.
func initDefaults() initValues {
	d := config.DefaultConfig()
	vals := initValues{
		StoreURL:  firstEnv("ZONEDASH_STORE_URL", "FIREBASE_DB_URL"),
		AuthToken: firstEnv("ZONEDASH_STORE_AUTH_TOKEN", "FIREBASE_AUTH_TOKEN"),
		Transport: firstEnv("ZONEDASH_RELAY_TRANSPORT"),
		RelayURL:  firstEnv("ZONEDASH_RELAY_URL", "NODERED_CMD_URL"),
		Broker:    firstEnv("ZONEDASH_MQTT_BROKER"),
		Nodes:     firstEnv("ZONEDASH_NODES"),
		Default:   firstEnv("ZONEDASH_DEFAULT_NODE"),
	}
	if vals.Transport == "" {
		vals.Transport = d.Relay.Transport
	}
	if vals.Broker == "" {
		vals.Broker = d.Relay.MQTT.Broker
	}
	if vals.Nodes == "" {
		vals.Nodes = strings.Join(d.Nodes, ",")
	}
	return vals
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func promptInit(vals *initValues) error {
	required := func(what string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", what)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Store URL").
				Description("Root of the real-time database the nodes write to").
				Placeholder("https://my-project-default-rtdb.europe-west1.firebasedatabase.app").
				Value(&vals.StoreURL).
				Validate(required("store URL")),
			huh.NewInput().
				Title("Auth token (optional)").
				Description("Database secret or ID token; leave empty for open rules").
				EchoMode(huh.EchoModePassword).
				Value(&vals.AuthToken),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Command transport").
				Options(
					huh.NewOption("HTTP relay (Node-RED endpoint)", config.TransportHTTP),
					huh.NewOption("MQTT broker (publish directly)", config.TransportMQTT),
				).
				Value(&vals.Transport),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Relay URL").
				Placeholder("http://nodered.local:1880/cmd").
				Value(&vals.RelayURL).
				Validate(required("relay URL")),
		).WithHideFunc(func() bool { return vals.Transport != config.TransportHTTP }),
		huh.NewGroup(
			huh.NewInput().
				Title("MQTT broker").
				Placeholder("tcp://localhost:1883").
				Value(&vals.Broker).
				Validate(required("broker")),
		).WithHideFunc(func() bool { return vals.Transport != config.TransportMQTT }),
		huh.NewGroup(
			huh.NewInput().
				Title("Nodes").
				Description("Comma-separated node names, in display order").
				Value(&vals.Nodes).
				Validate(required("at least one node")),
			huh.NewInput().
				Title("Default node (optional)").
				Description("Shown first; defaults to the first node").
				Value(&vals.Default),
		),
	)

	if err := form.Run(); err != nil {
		return zderrors.WrapWithCode(err, zderrors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}
	return nil
}

// buildInitConfig turns answers into a validated config.
func buildInitConfig(vals initValues) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Store.URL = strings.TrimSpace(vals.StoreURL)
	cfg.Store.AuthToken = strings.TrimSpace(vals.AuthToken)
	cfg.Relay.Transport = strings.TrimSpace(vals.Transport)
	cfg.Relay.URL = strings.TrimSpace(vals.RelayURL)
	if b := strings.TrimSpace(vals.Broker); b != "" {
		cfg.Relay.MQTT.Broker = b
	}

	var nodes []string
	for _, n := range strings.Split(vals.Nodes, ",") {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	cfg.Nodes = nodes
	cfg.DefaultNode = strings.TrimSpace(vals.Default)
	if cfg.DefaultNode == "" && len(nodes) > 0 {
		cfg.DefaultNode = nodes[0]
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

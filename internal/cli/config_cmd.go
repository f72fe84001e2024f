package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rileyhilliard/zonedash/internal/config"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/ui"
	"gopkg.in/yaml.v3"
)

const maskedSecret = "********"

func configShowCommand(w io.Writer, format string) error {
	cfg, path, err := config.Resolve(cfgFile)
	if err != nil {
		return err
	}
	return writeConfig(w, cfg, path, format)
}

func writeConfig(w io.Writer, cfg *config.Config, path, format string) error {
	masked := *cfg
	if masked.Store.AuthToken != "" {
		masked.Store.AuthToken = maskedSecret
	}
	if masked.Relay.MQTT.Password != "" {
		masked.Relay.MQTT.Password = maskedSecret
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(masked)
	case "yaml", "":
		data, err := yaml.Marshal(&masked)
		if err != nil {
			return zderrors.WrapWithCode(err, zderrors.ErrConfig, "Failed to render config", "")
		}
		fmt.Fprintf(w, "# source: %s\n", describePath(path))
		_, err = w.Write(data)
		return err
	default:
		return zderrors.New(zderrors.ErrConfig,
			fmt.Sprintf("Unknown format %q", format),
			"Use --format yaml or --format json")
	}
}

func configSetCommand(w io.Writer, key, value string) error {
	path, err := config.Find(cfgFile)
	if err != nil {
		return err
	}
	if path == "" {
		return zderrors.New(zderrors.ErrConfig,
			"No config file to edit",
			"Run 'zonedash init' first, or pass --config")
	}

	if err := config.SetValue(path, key, value); err != nil {
		return zderrors.WrapWithCode(err, zderrors.ErrConfig,
			fmt.Sprintf("Couldn't set %s", key),
			"Check the key name and that the file is valid YAML")
	}
	fmt.Fprintf(w, "%s Set %s = %s in %s\n", ui.SymbolSuccess, key, value, path)

	// The file is written either way; surface problems before the next run does.
	cfg, err := config.Load(path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		ui.PrintWarning("The config no longer validates: " + zderrors.Summary(err))
	}
	return nil
}

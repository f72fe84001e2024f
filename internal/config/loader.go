package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".zonedash.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/zonedash"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// DotenvFile is read from the working directory and from the config file's directory.
	DotenvFile = ".env"
)

// envBindings maps config keys to environment variables, highest precedence first.
// The unprefixed names are the ones the field deployment already exports.
var envBindings = []struct {
	key   string
	names []string
}{
	{"store.url", []string{"ZONEDASH_STORE_URL", "FIREBASE_DB_URL"}},
	{"store.auth_token", []string{"ZONEDASH_STORE_AUTH_TOKEN", "FIREBASE_AUTH_TOKEN"}},
	{"store.timeout", []string{"ZONEDASH_STORE_TIMEOUT"}},
	{"store.breaker.failures", []string{"ZONEDASH_STORE_BREAKER_FAILURES"}},
	{"store.breaker.open_for", []string{"ZONEDASH_STORE_BREAKER_OPEN_FOR"}},
	{"relay.transport", []string{"ZONEDASH_RELAY_TRANSPORT"}},
	{"relay.url", []string{"ZONEDASH_RELAY_URL", "NODERED_CMD_URL"}},
	{"relay.timeout", []string{"ZONEDASH_RELAY_TIMEOUT"}},
	{"relay.mqtt.broker", []string{"ZONEDASH_MQTT_BROKER"}},
	{"relay.mqtt.client_id", []string{"ZONEDASH_MQTT_CLIENT_ID"}},
	{"relay.mqtt.username", []string{"ZONEDASH_MQTT_USERNAME"}},
	{"relay.mqtt.password", []string{"ZONEDASH_MQTT_PASSWORD"}},
	{"relay.mqtt.topic", []string{"ZONEDASH_MQTT_TOPIC"}},
	{"refresh_interval", []string{"ZONEDASH_REFRESH_INTERVAL"}},
	{"history_points", []string{"ZONEDASH_HISTORY_POINTS", "HISTORY_POINTS"}},
	{"nodes", []string{"ZONEDASH_NODES"}},
	{"default_node", []string{"ZONEDASH_DEFAULT_NODE"}},
	{"server.listen", []string{"ZONEDASH_SERVER_LISTEN"}},
	{"server.command_rate", []string{"ZONEDASH_SERVER_COMMAND_RATE"}},
	{"server.command_burst", []string{"ZONEDASH_SERVER_COMMAND_BURST"}},
}

// legacyRefreshEnv holds the refresh period in (fractional) seconds.
const legacyRefreshEnv = "AUTO_REFRESH_SEC"

// Load reads config from path, layered over defaults and under the
// environment. An empty path loads defaults plus environment only.
// Precedence, lowest first: defaults, YAML file, .env files, environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, b := range envBindings {
		_ = v.BindEnv(append([]string{b.key}, b.names...)...)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'zonedash init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	dotenv, err := readDotenv(dotenvPaths(path))
	if err != nil {
		return nil, err
	}
	for _, b := range envBindings {
		if _, set := lookupEnv(b.names, nil); set {
			continue
		}
		if val, ok := lookupEnv(b.names, dotenv); ok {
			v.Set(b.key, val)
		}
	}

	return parseConfig(v, path, dotenv)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .zonedash.yaml in current directory
// 3. .zonedash.yaml in parent directories (stops at git root or home)
// 4. ~/.config/zonedash/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && parent == home {
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if isGitRoot(dir) {
			break
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// Resolve finds, loads and validates the config. The returned path is empty
// when no config file was found and only defaults and environment apply.
func Resolve(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}

	if err := Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string, dotenv map[string]string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Nodes = nil

	if err := v.Unmarshal(cfg); err != nil {
		where := "the environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}

	// AUTO_REFRESH_SEC applies only when no explicit duration is set in the environment.
	if _, set := lookupEnv([]string{"ZONEDASH_REFRESH_INTERVAL"}, dotenv); !set {
		if raw, ok := lookupEnv([]string{legacyRefreshEnv}, dotenv); ok {
			secs, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					legacyRefreshEnv+" must be a number of seconds, got "+strconv.Quote(raw),
					"Use a value like 1.5")
			}
			cfg.RefreshInterval = time.Duration(secs * float64(time.Second))
		}
	}

	cfg.Nodes = normalizeNodes(cfg.Nodes)
	cfg.DefaultNode = strings.TrimSpace(cfg.DefaultNode)
	cfg.Store.URL = strings.TrimSpace(cfg.Store.URL)
	cfg.Relay.URL = strings.TrimSpace(cfg.Relay.URL)
	cfg.Relay.Transport = strings.ToLower(strings.TrimSpace(cfg.Relay.Transport))

	return cfg, nil
}

// setDefaults registers every key so environment bindings and unmarshalling see it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.timeout", d.Store.Timeout.String())
	v.SetDefault("store.breaker.failures", d.Store.Breaker.Failures)
	v.SetDefault("store.breaker.open_for", d.Store.Breaker.OpenFor.String())
	v.SetDefault("relay.transport", d.Relay.Transport)
	v.SetDefault("relay.url", "")
	v.SetDefault("relay.timeout", d.Relay.Timeout.String())
	v.SetDefault("relay.mqtt.broker", d.Relay.MQTT.Broker)
	v.SetDefault("relay.mqtt.client_id", d.Relay.MQTT.ClientID)
	v.SetDefault("relay.mqtt.username", "")
	v.SetDefault("relay.mqtt.password", "")
	v.SetDefault("relay.mqtt.topic", d.Relay.MQTT.Topic)
	v.SetDefault("refresh_interval", d.RefreshInterval.String())
	v.SetDefault("history_points", d.HistoryPoints)
	v.SetDefault("nodes", d.Nodes)
	v.SetDefault("default_node", d.DefaultNode)
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.command_rate", d.Server.CommandRate)
	v.SetDefault("server.command_burst", d.Server.CommandBurst)
	v.SetDefault("dashboard.thresholds.temperature.warning", d.Dashboard.Thresholds.Temperature.Warning)
	v.SetDefault("dashboard.thresholds.temperature.critical", d.Dashboard.Thresholds.Temperature.Critical)
	v.SetDefault("dashboard.thresholds.humidity.warning", d.Dashboard.Thresholds.Humidity.Warning)
	v.SetDefault("dashboard.thresholds.humidity.critical", d.Dashboard.Thresholds.Humidity.Critical)
}

// dotenvPaths returns the .env files to read, nearest to the config file last.
func dotenvPaths(configPath string) []string {
	paths := []string{DotenvFile}
	dir := configDir(configPath)
	if p := filepath.Join(dir, DotenvFile); dir != "" && !sameFile(p, DotenvFile) {
		paths = append(paths, p)
	}
	return paths
}

// readDotenv merges the existing files among paths. Later files win.
func readDotenv(paths []string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		vals, err := godotenv.Read(p)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to parse "+p,
				"Check the file uses KEY=value lines")
		}
		for k, val := range vals {
			merged[k] = val
		}
	}
	return merged, nil
}

// lookupEnv returns the first of names set in the process environment, or in
// fallback when fallback is non-nil.
func lookupEnv(names []string, fallback map[string]string) (string, bool) {
	for _, n := range names {
		if val, ok := os.LookupEnv(n); ok {
			return val, true
		}
		if val, ok := fallback[n]; ok {
			return val, true
		}
	}
	return "", false
}

func normalizeNodes(nodes []string) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// configDir returns the directory containing the config file.
func configDir(configPath string) string {
	if configPath == "" {
		cwd, _ := os.Getwd()
		return cwd
	}
	return filepath.Dir(configPath)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/zonedash/internal/errors"
)

const (
	// MinRefreshInterval keeps the refresh cycle from hammering the store.
	MinRefreshInterval = 250 * time.Millisecond
	// MinHistoryPoints is the smallest history that can still draw a line.
	MinHistoryPoints = 2
)

// reservedNodeChars cannot appear in a node name: the store uses them in its path grammar.
const reservedNodeChars = "/.#$[]"

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but zonedash only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade zonedash to read this config.")
	}

	if err := validateStore(cfg.Store); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check the 'store' section in your .zonedash.yaml or FIREBASE_DB_URL.")
	}

	if err := validateRelay(cfg.Relay); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check the 'relay' section in your .zonedash.yaml or NODERED_CMD_URL.")
	}

	if err := validateNodes(cfg.Nodes, cfg.DefaultNode); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check 'nodes' and 'default_node' in your .zonedash.yaml.")
	}

	if cfg.RefreshInterval < MinRefreshInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("refresh_interval %v is too short", cfg.RefreshInterval),
			fmt.Sprintf("Use at least %v.", MinRefreshInterval))
	}

	if cfg.HistoryPoints < MinHistoryPoints {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("history_points must be at least %d (got %d)", MinHistoryPoints, cfg.HistoryPoints),
			"The default is 120.")
	}

	if err := validateServer(cfg.Server); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check the 'server' section in your .zonedash.yaml.")
	}

	if err := validateThresholds("temperature", cfg.Dashboard.Thresholds.Temperature); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check the 'dashboard' section in your .zonedash.yaml.")
	}
	if err := validateThresholds("humidity", cfg.Dashboard.Thresholds.Humidity); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check the 'dashboard' section in your .zonedash.yaml.")
	}

	return nil
}

func validateStore(s StoreConfig) error {
	if s.URL == "" {
		return fmt.Errorf("store.url is not set")
	}
	if err := validateHTTPURL("store.url", s.URL); err != nil {
		return err
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive (got %v)", s.Timeout)
	}
	if s.Breaker.Failures < 1 {
		return fmt.Errorf("store.breaker.failures must be at least 1 (got %d)", s.Breaker.Failures)
	}
	if s.Breaker.OpenFor <= 0 {
		return fmt.Errorf("store.breaker.open_for must be positive (got %v)", s.Breaker.OpenFor)
	}
	return nil
}

func validateRelay(r RelayConfig) error {
	if r.Timeout <= 0 {
		return fmt.Errorf("relay.timeout must be positive (got %v)", r.Timeout)
	}

	switch r.Transport {
	case TransportHTTP:
		if r.URL == "" {
			return fmt.Errorf("relay.url is required when relay.transport is http")
		}
		return validateHTTPURL("relay.url", r.URL)
	case TransportMQTT:
		if r.MQTT.Broker == "" {
			return fmt.Errorf("relay.mqtt.broker is required when relay.transport is mqtt")
		}
		if _, err := url.Parse(r.MQTT.Broker); err != nil {
			return fmt.Errorf("relay.mqtt.broker '%s' is not a valid URL", r.MQTT.Broker)
		}
		if strings.TrimSpace(r.MQTT.Topic) == "" {
			return fmt.Errorf("relay.mqtt.topic can't be empty")
		}
		return nil
	default:
		return fmt.Errorf("relay.transport '%s' isn't supported - use http or mqtt", r.Transport)
	}
}

func validateNodes(nodes []string, def string) error {
	if len(nodes) == 0 {
		return fmt.Errorf("nodes is empty - list at least one node")
	}

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n == "" {
			return fmt.Errorf("nodes has an empty entry")
		}
		if strings.ContainsAny(n, reservedNodeChars) {
			return fmt.Errorf("node '%s' contains one of %q, which the store reserves", n, reservedNodeChars)
		}
		if seen[n] {
			return fmt.Errorf("node '%s' is listed twice", n)
		}
		seen[n] = true
	}

	if def != "" && !seen[def] {
		return fmt.Errorf("default_node '%s' isn't one of the configured nodes (%s)", def, strings.Join(nodes, ", "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Listen == "" {
		return fmt.Errorf("server.listen can't be empty")
	}
	if s.CommandRate <= 0 {
		return fmt.Errorf("server.command_rate must be positive (got %v)", s.CommandRate)
	}
	if s.CommandBurst < 1 {
		return fmt.Errorf("server.command_burst must be at least 1 (got %d)", s.CommandBurst)
	}
	return nil
}

// validateThresholds checks a threshold configuration for a single metric type.
func validateThresholds(name string, thresh ThresholdValues) error {
	if thresh.Warning < 0 {
		return fmt.Errorf("dashboard.thresholds.%s.warning can't be negative (got %v)", name, thresh.Warning)
	}
	if thresh.Critical < 0 {
		return fmt.Errorf("dashboard.thresholds.%s.critical can't be negative (got %v)", name, thresh.Critical)
	}
	if thresh.Warning > 0 && thresh.Critical > 0 && thresh.Warning >= thresh.Critical {
		return fmt.Errorf("dashboard.thresholds.%s.warning (%v) is higher than critical (%v) - should be the other way around", name, thresh.Warning, thresh.Critical)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s '%s' is not a valid URL", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s '%s' must use http or https", field, raw)
	}
	return nil
}

// EffectiveDefaultNode returns the configured default node, or the first node.
func (c *Config) EffectiveDefaultNode() string {
	if c.DefaultNode != "" {
		return c.DefaultNode
	}
	if len(c.Nodes) > 0 {
		return c.Nodes[0]
	}
	return ""
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/zonedash/internal/config"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/monitor"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/store"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
)

// app is the loaded configuration plus the constructors every command shares.
type app struct {
	cfg  *config.Config
	path string
}

// loadApp resolves, loads and validates the config named by --config.
func loadApp() (*app, error) {
	cfg, path, err := config.Resolve(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Default().Debug("config: %s", describePath(path))
	return &app{cfg: cfg, path: path}, nil
}

func describePath(path string) string {
	if path == "" {
		return "defaults and environment only"
	}
	return path
}

func (a *app) nodes() telemetry.Nodes {
	return telemetry.Nodes(a.cfg.Nodes)
}

// node returns name when it is configured, or the default node for "".
func (a *app) node(name string) (string, error) {
	if name == "" {
		return a.cfg.EffectiveDefaultNode(), nil
	}
	if !a.nodes().Contains(name) {
		return "", zderrors.New(zderrors.ErrConfig,
			fmt.Sprintf("Unknown node %q", name),
			fmt.Sprintf("Configured nodes: %v. Add it to 'nodes' in your config.", a.cfg.Nodes))
	}
	return name, nil
}

func (a *app) fetcher() (*store.Client, error) {
	s := a.cfg.Store
	return store.NewClient(store.Config{
		URL:             s.URL,
		AuthToken:       s.AuthToken,
		Timeout:         s.Timeout,
		BreakerFailures: s.Breaker.Failures,
		BreakerOpenFor:  s.Breaker.OpenFor,
	}, store.WithLogger(logger.NewEnvLogger("[store]")))
}

// dispatcher builds the configured command transport. The returned close
// function is always safe to call.
func (a *app) dispatcher(ctx context.Context) (relay.Dispatcher, func(), error) {
	r := a.cfg.Relay
	log := logger.NewEnvLogger("[relay]")

	if r.Transport == config.TransportMQTT {
		d, err := relay.ConnectMQTT(ctx, relay.MQTTConfig{
			Broker:   r.MQTT.Broker,
			ClientID: r.MQTT.ClientID,
			Username: r.MQTT.Username,
			Password: r.MQTT.Password,
			Topic:    r.MQTT.Topic,
			Timeout:  r.Timeout,
		}, log)
		if err != nil {
			return nil, func() {}, err
		}
		return d, d.Close, nil
	}
	return relay.NewHTTPDispatcher(r.URL, r.Timeout, log), func() {}, nil
}

// thresholds maps the dashboard config onto per-metric color levels.
func (a *app) thresholds() map[telemetry.Metric]monitor.Thresholds {
	th := a.cfg.Dashboard.Thresholds
	return map[telemetry.Metric]monitor.Thresholds{
		telemetry.Temperature: {Warning: th.Temperature.Warning, Critical: th.Temperature.Critical},
		telemetry.Humidity:    {Warning: th.Humidity.Warning, Critical: th.Humidity.Critical},
	}
}

// parseInterval parses a refresh interval flag, enforcing the config minimum.
func parseInterval(flag string, fallback time.Duration) (time.Duration, error) {
	if flag == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, zderrors.WrapWithCode(err, zderrors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 1s, 1500ms or 5s.")
	}
	if d < config.MinRefreshInterval {
		return 0, zderrors.New(zderrors.ErrConfig,
			fmt.Sprintf("Interval %v is too short", d),
			fmt.Sprintf("Use at least %v so the store isn't hammered.", config.MinRefreshInterval))
	}
	return d, nil
}

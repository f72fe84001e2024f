package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .zonedash.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Relay RelayConfig `yaml:"relay" mapstructure:"relay"`

	// RefreshInterval is the period of the fetch-and-aggregate cycle.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// HistoryPoints is the per-node history capacity.
	HistoryPoints int `yaml:"history_points" mapstructure:"history_points"`

	// Nodes is the closed set of node identifiers, in display order.
	Nodes []string `yaml:"nodes" mapstructure:"nodes"`

	// DefaultNode is selected when a session starts.
	DefaultNode string `yaml:"default_node" mapstructure:"default_node"`

	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
}

// StoreConfig locates the real-time database that holds node snapshots.
type StoreConfig struct {
	// URL is the database root, e.g. https://<project>-default-rtdb.<region>.firebasedatabase.app
	URL string `yaml:"url" mapstructure:"url"`

	// AuthToken is a database secret or ID token, sent as the auth query parameter.
	AuthToken string `yaml:"auth_token" mapstructure:"auth_token"`

	// Timeout bounds each fetch.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// BreakerConfig controls when fetches stop hitting a failing store.
type BreakerConfig struct {
	// Failures is the number of consecutive failed fetches that opens the breaker.
	Failures int `yaml:"failures" mapstructure:"failures"`

	// OpenFor is how long the breaker stays open before a trial fetch.
	OpenFor time.Duration `yaml:"open_for" mapstructure:"open_for"`
}

// Relay transports.
const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

// RelayConfig controls how commands reach the devices.
type RelayConfig struct {
	// Transport is "http" (post to the relay endpoint) or "mqtt" (publish to the broker).
	Transport string `yaml:"transport" mapstructure:"transport"`

	// URL is the HTTP relay endpoint.
	URL string `yaml:"url" mapstructure:"url"`

	// Timeout bounds each dispatch.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	MQTT MQTTConfig `yaml:"mqtt" mapstructure:"mqtt"`
}

// MQTTConfig is used when Transport is "mqtt".
type MQTTConfig struct {
	Broker   string `yaml:"broker" mapstructure:"broker"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`

	// Topic is the command topic; {node} is replaced by the node name.
	Topic string `yaml:"topic" mapstructure:"topic"`
}

// ServerConfig controls `zonedash serve`.
type ServerConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`

	// CommandRate is the sustained number of commands per second accepted per client.
	CommandRate float64 `yaml:"command_rate" mapstructure:"command_rate"`

	// CommandBurst is the number of commands a client may send at once.
	CommandBurst int `yaml:"command_burst" mapstructure:"command_burst"`
}

// DashboardConfig tunes the terminal dashboard.
type DashboardConfig struct {
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
}

// ThresholdsConfig holds warning/critical levels used to color metric cards.
type ThresholdsConfig struct {
	Temperature ThresholdValues `yaml:"temperature" mapstructure:"temperature"`
	Humidity    ThresholdValues `yaml:"humidity" mapstructure:"humidity"`
}

// ThresholdValues are the levels for one metric. Zero disables a level.
type ThresholdValues struct {
	Warning  float64 `yaml:"warning" mapstructure:"warning"`
	Critical float64 `yaml:"critical" mapstructure:"critical"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Store: StoreConfig{
			Timeout: 4 * time.Second,
			Breaker: BreakerConfig{
				Failures: 5,
				OpenFor:  10 * time.Second,
			},
		},
		Relay: RelayConfig{
			Transport: TransportHTTP,
			Timeout:   3 * time.Second,
			MQTT: MQTTConfig{
				Broker:   "tcp://localhost:1883",
				ClientID: "zonedash",
				Topic:    "iot/{node}/cmd",
			},
		},
		RefreshInterval: 1500 * time.Millisecond,
		HistoryPoints:   120,
		Nodes:           []string{"node1", "node2"},
		DefaultNode:     "node2",
		Server: ServerConfig{
			Listen:       ":8080",
			CommandRate:  2,
			CommandBurst: 4,
		},
		Dashboard: DashboardConfig{
			Thresholds: ThresholdsConfig{
				Temperature: ThresholdValues{Warning: 27, Critical: 35},
				Humidity:    ThresholdValues{Warning: 70, Critical: 85},
			},
		},
	}
}

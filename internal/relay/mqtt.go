package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/logger"
)

const (
	// DefaultTopic is the per-node command topic the HTTP relay republishes to.
	DefaultTopic = "iot/{node}/cmd"

	connectAttempts = 5
	commandQoS      = 1
)

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic may contain {node}, replaced by the target node name.
	Topic   string
	Timeout time.Duration
}

// publisher is the part of mqtt.Client the dispatcher uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// MQTTDispatcher publishes commands directly to the broker.
type MQTTDispatcher struct {
	client  publisher
	topic   string
	timeout time.Duration
	log     logger.Logger
}

var _ Dispatcher = (*MQTTDispatcher)(nil)

// ConnectMQTT connects to the broker, retrying with exponential backoff, and
// returns a dispatcher that reuses the connection for every command.
func ConnectMQTT(ctx context.Context, cfg MQTTConfig, log logger.Logger) (*MQTTDispatcher, error) {
	if log == nil {
		log = logger.Noop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("broker connection lost: %v", err)
	})

	var client mqtt.Client
	err := retryConnect(ctx, connectAttempts, func() error {
		client = mqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(cfg.Timeout) {
			return fmt.Errorf("connect to %s timed out after %s", cfg.Broker, cfg.Timeout)
		}
		if err := token.Error(); err != nil {
			log.Debug("connect to %s failed: %v", cfg.Broker, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, zderrors.WrapWithCode(err, zderrors.ErrBroker,
			fmt.Sprintf("Cannot connect to MQTT broker %s", cfg.Broker),
			"Check relay.mqtt.broker and credentials, or use relay.transport: http")
	}

	log.Info("connected to broker %s", cfg.Broker)
	return newMQTTDispatcher(client, cfg, log), nil
}

func newMQTTDispatcher(client publisher, cfg MQTTConfig, log logger.Logger) *MQTTDispatcher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MQTTDispatcher{client: client, topic: topic, timeout: timeout, log: log}
}

// retryConnect calls dial up to attempts times with exponential backoff,
// giving up early when ctx is done.
func retryConnect(ctx context.Context, attempts int, dial func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(dial, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx))
}

// TopicFor returns the command topic for node.
func (d *MQTTDispatcher) TopicFor(node string) string {
	return strings.ReplaceAll(d.topic, "{node}", node)
}

// Send implements Dispatcher.
func (d *MQTTDispatcher) Send(ctx context.Context, node string, payload Payload) Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		return fail(err.Error())
	}
	if !d.client.IsConnectionOpen() {
		return fail("broker not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	topic := d.TopicFor(node)
	token := d.client.Publish(topic, commandQoS, false, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fail(fmt.Sprintf("publish to %s: %v", topic, ctx.Err()))
	}
	if err := token.Error(); err != nil {
		d.log.Warn("publish %s to %s failed: %v", payload.Name(), topic, err)
		return fail(err.Error())
	}

	d.log.Debug("published %s to %s", payload.Name(), topic)
	return ok("OK (published)")
}

// Close disconnects from the broker.
func (d *MQTTDispatcher) Close() {
	d.client.Disconnect(250)
}

// Package relay sends operator commands to field devices.
//
// Commands travel either through the HTTP relay (which republishes them on the
// device message bus) or straight to the MQTT broker. Both paths report a
// definite Outcome and never return an error to the caller.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rileyhilliard/zonedash/internal/logger"
)

// DefaultTimeout bounds a single dispatch.
const DefaultTimeout = 3 * time.Second

const bodySnippetLen = 200

// Outcome is the result of one dispatch attempt.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Unconfigured is the outcome of a command sent with no relay set up.
var Unconfigured = Outcome{Success: false, Message: "no command relay configured"}

func ok(msg string) Outcome   { return Outcome{Success: true, Message: msg} }
func fail(msg string) Outcome { return Outcome{Success: false, Message: msg} }

// Dispatcher delivers a command payload for a node.
// Implementations make a single attempt and convert every failure into an Outcome.
type Dispatcher interface {
	Send(ctx context.Context, node string, payload Payload) Outcome
}

// Request is the body posted to the HTTP relay.
type Request struct {
	Node    string  `json:"node"`
	Payload Payload `json:"payload"`
}

// HTTPDispatcher posts commands to the relay endpoint.
type HTTPDispatcher struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	log      logger.Logger
}

var _ Dispatcher = (*HTTPDispatcher)(nil)

// NewHTTPDispatcher creates a dispatcher for endpoint. A zero timeout uses DefaultTimeout.
// The HTTP client is created once and reused for every command.
func NewHTTPDispatcher(endpoint string, timeout time.Duration, log logger.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Noop()
	}
	return &HTTPDispatcher{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Endpoint returns the relay URL.
func (d *HTTPDispatcher) Endpoint() string {
	return d.endpoint
}

// Send implements Dispatcher.
func (d *HTTPDispatcher) Send(ctx context.Context, node string, payload Payload) Outcome {
	body, err := json.Marshal(Request{Node: node, Payload: payload})
	if err != nil {
		return fail(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("send %s to %s failed: %v", payload.Name(), node, err)
		return fail(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		d.log.Debug("send %s to %s: %d in %s", payload.Name(), node, resp.StatusCode, time.Since(start))
		return ok(fmt.Sprintf("OK (%d)", resp.StatusCode))
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4*bodySnippetLen))
	d.log.Warn("send %s to %s rejected: HTTP %d", payload.Name(), node, resp.StatusCode)
	return fail(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(snippet), bodySnippetLen)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimRight(string(r), "\r\n")
}

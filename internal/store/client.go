// Package store reads node snapshots from the remote real-time database.
//
// The store is a Firebase Realtime Database addressed through its REST API:
// the latest snapshot of a node lives at /iot/<node>/last and is fetched as
// GET <url>/iot/<node>/last.json. The client is constructed once per process
// and shared by every viewing session.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"github.com/sony/gobreaker"
)

const (
	// DefaultTimeout bounds a single fetch so a hung store cannot stall the refresh cycle.
	DefaultTimeout = 4 * time.Second

	// maxBodyBytes caps how much of a store response is read.
	maxBodyBytes = 1 << 20

	// bodySnippetLen is how much of an error body is kept in error messages.
	bodySnippetLen = 200
)

// Fetcher retrieves the most recent snapshot of a node.
//
// A nil snapshot with a nil error means the node has never reported.
// Any transport failure, store rejection or malformed document is returned as
// an error carrying code FETCH, never folded into the "no data" case.
type Fetcher interface {
	Fetch(ctx context.Context, node string) (*telemetry.Snapshot, error)
}

// Config controls how the client talks to the store.
type Config struct {
	// URL is the database root, e.g. https://project-default-rtdb.europe-west1.firebasedatabase.app
	URL string
	// AuthToken is sent as the "auth" query parameter (database secret or ID token).
	AuthToken string
	// Timeout bounds each fetch. Zero uses DefaultTimeout.
	Timeout time.Duration
	// BreakerFailures is the number of consecutive failures before fetches are short-circuited.
	BreakerFailures int
	// BreakerOpenFor is how long the breaker stays open before a trial fetch.
	BreakerOpenFor time.Duration
}

// Client is the REST implementation of Fetcher.
type Client struct {
	base    string
	auth    string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
}

var _ Fetcher = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, zderrors.New(zderrors.ErrConfig,
			fmt.Sprintf("Invalid store URL: %q", cfg.URL),
			"Set store.url (or FIREBASE_DB_URL) to the database root, e.g. https://<project>.firebasedatabase.app")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		base:    base,
		auth:    cfg.AuthToken,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = newBreaker(cfg.BreakerFailures, cfg.BreakerOpenFor, c.log)
	return c, nil
}

func newBreaker(failures int, openFor time.Duration, log logger.Logger) *gobreaker.CircuitBreaker {
	if failures < 1 {
		failures = 5
	}
	if openFor <= 0 {
		openFor = 10 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			var gone callerGone
			return err == nil || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("%s breaker %s -> %s", name, from, to)
		},
	})
}

// URLFor returns the REST URL of a node's latest snapshot.
func (c *Client) URLFor(node string) string {
	u := c.base + "/iot/" + url.PathEscape(node) + "/last.json"
	if c.auth != "" {
		u += "?auth=" + url.QueryEscape(c.auth)
	}
	return u
}

// callerGone marks a failed request whose caller had already given up.
// The store is not at fault, so the breaker does not count it.
type callerGone struct{ err error }

func (e callerGone) Error() string { return e.err.Error() }
func (e callerGone) Unwrap() error { return e.err }

// Fetch implements Fetcher.
//
// Only the per-request timeout counts as a store failure. A cancel or
// deadline on the caller's ctx leaves the shared breaker untouched.
func (c *Client) Fetch(ctx context.Context, node string) (*telemetry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, zderrors.WrapWithCode(err, zderrors.ErrFetch, "Fetch of "+node+" abandoned", "")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		snap, err := c.get(reqCtx, node)
		if err != nil && ctx.Err() != nil {
			return nil, callerGone{err: err}
		}
		return snap, err
	})
	if err != nil {
		var gone callerGone
		if errors.As(err, &gone) {
			c.log.Debug("fetch %s abandoned by caller after %s", node, time.Since(start))
			return nil, gone.err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, zderrors.WrapWithCode(err, zderrors.ErrFetch,
				"Store skipped after repeated failures",
				"Fetching resumes automatically once the store answers again")
		}
		c.log.Debug("fetch %s failed after %s: %v", node, time.Since(start), zderrors.Summary(err))
		return nil, err
	}

	snap, _ := res.(*telemetry.Snapshot)
	c.log.Debug("fetch %s ok in %s (data=%t)", node, time.Since(start), snap != nil)
	return snap, nil
}

// get performs one request.
func (c *Client) get(ctx context.Context, node string) (*telemetry.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URLFor(node), nil)
	if err != nil {
		return nil, zderrors.WrapWithCode(err, zderrors.ErrFetch,
			"Cannot build store request for "+node, "")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, zderrors.WrapWithCode(err, zderrors.ErrFetch,
			"Store unreachable",
			"Check network access to the store URL")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, zderrors.WrapWithCode(err, zderrors.ErrFetch,
			"Store response interrupted", "")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, zderrors.New(zderrors.ErrFetch,
			fmt.Sprintf("Store returned HTTP %d: %s", resp.StatusCode, Snippet(string(body))),
			rejectionHint(resp.StatusCode))
	}

	snap, err := telemetry.Decode(body)
	if err != nil {
		return nil, zderrors.WrapWithCode(err, zderrors.ErrFetch,
			"Store returned malformed data for "+node, "")
	}
	return snap, nil
}

func rejectionHint(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "Check store.auth_token and the database rules"
	case http.StatusNotFound:
		return "Check store.url points at the database root"
	default:
		return ""
	}
}

// Snippet returns at most the first 200 characters of s.
func Snippet(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > bodySnippetLen {
		return string(r[:bodySnippetLen])
	}
	return string(r)
}

// BreakerState reports the fetch circuit state ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

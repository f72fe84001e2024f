package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodesUnique(t *testing.T) {
	codes := []string{ErrConfig, ErrFetch, ErrRelay, ErrBroker, ErrServer}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	err := New(ErrConfig, "No nodes configured", "Set ZONEDASH_NODES=node1,node2")

	require.NotNil(t, err)
	assert.Equal(t, ErrConfig, err.Code)
	assert.Nil(t, err.Cause)

	out := err.Error()
	assert.True(t, strings.HasPrefix(out, "✗ No nodes configured\n"))
	assert.Contains(t, out, "Set ZONEDASH_NODES=node1,node2")
}

func TestWrapDefaultsToFetch(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "Store unreachable")

	assert.Equal(t, ErrFetch, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("timeout")
	err := WrapWithCode(cause, ErrBroker, "MQTT connect failed", "Check the broker address")

	assert.Equal(t, ErrBroker, err.Code)
	assert.Equal(t, "Check the broker address", err.Suggestion)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "Store returned HTTP 500", New(ErrFetch, "Store returned HTTP 500", "").Short())
	assert.Equal(t, "Store unreachable: dial tcp: refused",
		Wrap(errors.New("dial tcp: refused"), "Store unreachable").Short())
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"nil error", nil, ErrFetch, false},
		{"plain error", errors.New("boom"), ErrFetch, false},
		{"matching code", New(ErrRelay, "x", ""), ErrRelay, true},
		{"different code", New(ErrRelay, "x", ""), ErrFetch, false},
		{"wrapped structured error", fmt.Errorf("outer: %w", New(ErrConfig, "x", "")), ErrConfig, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCode(tt.err, tt.code))
		})
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "", Summary(nil))
	assert.Equal(t, "plain", Summary(errors.New("plain")))
	assert.Equal(t, "Store unreachable: eof",
		Summary(fmt.Errorf("ctx: %w", Wrap(errors.New("eof"), "Store unreachable"))))
}

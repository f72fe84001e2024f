package cli

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"github.com/stretchr/testify/require"
)

const testConfig = `version: 1
store:
  url: https://zones-default-rtdb.example.app
  auth_token: s3cret
relay:
  url: http://127.0.0.1:1880/cmd
nodes: [node1, node2]
default_node: node2
history_points: 30
`

// useConfig writes content to a temp .zonedash.yaml, points --config at it
// and runs the test from an empty directory.
func useConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, ".zonedash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
	return path
}

type stubFetcher struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (*telemetry.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return telemetry.Decode([]byte(f.body))
}

type stubDispatcher struct {
	outcome relay.Outcome
	node    string
	payload relay.Payload
}

func (d *stubDispatcher) Send(_ context.Context, node string, p relay.Payload) relay.Outcome {
	d.node = node
	d.payload = p
	return d.outcome
}

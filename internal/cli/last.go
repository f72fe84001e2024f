package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/zonedash/internal/session"
	"github.com/rileyhilliard/zonedash/internal/store"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"github.com/rileyhilliard/zonedash/internal/ui"
)

// lastResult is the --json payload of `zonedash last`.
type lastResult struct {
	Node     string              `json:"node"`
	State    session.State       `json:"state"`
	Snapshot *telemetry.Snapshot `json:"snapshot,omitempty"`
}

func lastCommand(ctx context.Context, w io.Writer, nodeArg string, asJSON bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	node, err := a.node(nodeArg)
	if err != nil {
		return err
	}
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	return printLast(ctx, w, fetcher, node, asJSON, time.Now())
}

// printLast fetches node once and prints it. Fetch failures are returned
// after the JSON envelope (if any) is written.
func printLast(ctx context.Context, w io.Writer, fetcher store.Fetcher, node string, asJSON bool, now time.Time) error {
	snap, err := fetcher.Fetch(ctx, node)

	res := lastResult{Node: node, Snapshot: snap, State: session.StateLive}
	switch {
	case err != nil:
		res.State = session.StateUnreachable
	case snap == nil:
		res.State = session.StateEmpty
	}

	if asJSON {
		if err != nil {
			if werr := WriteJSONFromError(w, err, res); werr != nil {
				return werr
			}
			return err
		}
		return WriteJSONSuccess(w, res)
	}
	if err != nil {
		return err
	}

	if snap == nil {
		fmt.Fprintf(w, "%s %s has not reported yet\n", ui.MutedStyle().Render(ui.SymbolEmpty), node)
		return nil
	}

	fmt.Fprintf(w, "%s %s  %s\n", ui.SuccessStyle().Render(ui.SymbolLive), ui.InfoStyle().Bold(true).Render(node), updatedText(snap, now))
	fmt.Fprint(w, ui.RenderKeyValues(snapshotRows(snap)))
	return nil
}

// updatedText describes the device timestamp of snap relative to now.
func updatedText(snap *telemetry.Snapshot, now time.Time) string {
	ts, ok := snap.Time()
	if !ok {
		return ui.MutedStyle().Render("no device timestamp")
	}
	age := now.Sub(ts).Round(time.Second)
	if age < 0 {
		age = 0
	}
	return ui.MutedStyle().Render(fmt.Sprintf("updated %s (%s ago)", ts.Local().Format("2006-01-02 15:04:05"), age))
}

func snapshotRows(snap *telemetry.Snapshot) []ui.KeyValue {
	rows := make([]ui.KeyValue, 0, len(telemetry.AllMetrics))
	for _, m := range telemetry.AllMetrics {
		rows = append(rows, ui.KeyValue{Key: m.Label(), Value: telemetry.FormatValue(m, snap.Value(m))})
	}
	return rows
}

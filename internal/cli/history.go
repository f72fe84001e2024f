package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/history"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/session"
	"github.com/rileyhilliard/zonedash/internal/store"
	"github.com/rileyhilliard/zonedash/internal/telemetry"
	"github.com/rileyhilliard/zonedash/internal/ui"
)

type historyOptions struct {
	Node    string
	Samples int
	Every   string
	JSON    bool
}

// historyResult is the --json payload of `zonedash history`.
type historyResult struct {
	Node    string          `json:"node"`
	Samples int             `json:"samples"`
	Points  []history.Point `json:"points"`
}

func historyCommand(ctx context.Context, w io.Writer, opts historyOptions) error {
	if opts.Samples < 1 {
		return zderrors.New(zderrors.ErrConfig,
			fmt.Sprintf("--samples must be at least 1 (got %d)", opts.Samples),
			"Try --samples 10")
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	node, err := a.node(opts.Node)
	if err != nil {
		return err
	}
	every, err := parseInterval(opts.Every, a.cfg.RefreshInterval)
	if err != nil {
		return err
	}
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}

	points := a.cfg.HistoryPoints
	if opts.Samples > points {
		points = opts.Samples
	}
	return collectHistory(ctx, w, fetcher, node, opts.Samples, every, points, opts.JSON)
}

// collectHistory runs samples refresh cycles of one session and prints the
// resulting series.
func collectHistory(ctx context.Context, w io.Writer, fetcher store.Fetcher, node string, samples int, every time.Duration, capacity int, asJSON bool) error {
	sess := session.New(fetcher, nil, session.Options{
		HistoryPoints: capacity,
		Logger:        logger.NewEnvLogger("[session]"),
	})
	poller := session.NewPoller(sess, node, every)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	taken := 0
	poller.Run(runCtx, func(f session.Frame) {
		taken++
		if !asJSON {
			fmt.Fprintf(w, "%s sample %d/%d  %s\n", ui.MutedStyle().Render(ui.SymbolProgress), taken, samples, frameSummary(f))
		}
		if taken >= samples {
			cancel()
		}
	})
	if taken < samples && ctx.Err() != nil {
		return zderrors.WrapWithCode(ctx.Err(), zderrors.ErrFetch,
			fmt.Sprintf("Stopped after %d of %d samples", taken, samples), "")
	}

	pts := sess.History().Points(node)
	if asJSON {
		return WriteJSONSuccess(w, historyResult{Node: node, Samples: taken, Points: pts})
	}

	fmt.Fprintln(w)
	if len(pts) == 0 {
		fmt.Fprintf(w, "%s No readings from %s in %d samples\n", ui.WarningStyle().Render(ui.SymbolWarning), node, taken)
		return nil
	}
	fmt.Fprintln(w, ui.RenderSimpleTable(historyColumns(), historyRows(pts)))
	fmt.Fprintf(w, "%s %d points from %d samples\n", ui.SuccessStyle().Render(ui.SymbolSuccess), len(pts), taken)
	return nil
}

func frameSummary(f session.Frame) string {
	switch f.State {
	case session.StateLive:
		return ui.SuccessStyle().Render("live")
	case session.StateEmpty:
		return ui.MutedStyle().Render("no data")
	default:
		return ui.ErrorStyle().Render(ui.SymbolUnreachable + " unreachable: " + f.Error)
	}
}

func historyColumns() []ui.TableColumn {
	cols := []ui.TableColumn{{Title: "Time", Width: 10}}
	for _, m := range telemetry.AllMetrics {
		cols = append(cols, ui.TableColumn{Title: m.Key(), Width: len(m.Key()) + 2})
	}
	return cols
}

func historyRows(pts []history.Point) [][]string {
	rows := make([][]string, len(pts))
	for i, p := range pts {
		row := []string{p.Time.Local().Format("15:04:05")}
		for _, m := range telemetry.AllMetrics {
			row = append(row, telemetry.FormatValue(m, p.Value(m)))
		}
		rows[i] = row
	}
	return rows
}

package cli

import (
	"context"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/monitor"
	"github.com/rileyhilliard/zonedash/internal/session"
)

type dashboardOptions struct {
	Node     string
	Interval string
	Manual   bool
	LogFile  string
}

// dashboardCommand runs the TUI until the user quits or ctx is canceled.
func dashboardCommand(ctx context.Context, opts dashboardOptions) error {
	if !isTTYFunc() {
		return zderrors.New(zderrors.ErrConfig,
			"The dashboard needs an interactive terminal",
			"Use 'zonedash last' or 'zonedash history' for plain output, or 'zonedash serve' for the API.")
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	node, err := a.node(opts.Node)
	if err != nil {
		return err
	}
	interval, err := parseInterval(opts.Interval, a.cfg.RefreshInterval)
	if err != nil {
		return err
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	dispatcher, closeDispatcher, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	// The alt screen owns stdout; logs go to a file or nowhere.
	if opts.LogFile != "" {
		f, err := tea.LogToFile(opts.LogFile, "zonedash")
		if err != nil {
			return zderrors.WrapWithCode(err, zderrors.ErrConfig,
				"Couldn't open log file "+opts.LogFile,
				"Check the directory exists and is writable")
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	sess := session.New(fetcher, dispatcher, session.Options{
		HistoryPoints: a.cfg.HistoryPoints,
		Logger:        logger.NewEnvLogger("[session]"),
	})
	model := monitor.NewModel(ctx, sess, monitor.Options{
		Nodes:       a.nodes(),
		DefaultNode: node,
		Interval:    interval,
		AutoRefresh: !opts.Manual,
		Thresholds:  a.thresholds(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return zderrors.WrapWithCode(err, zderrors.ErrConfig, "Dashboard stopped unexpectedly", "")
	}
	return nil
}

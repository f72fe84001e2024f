package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rileyhilliard/zonedash/internal/logger"
	"github.com/rileyhilliard/zonedash/internal/metrics"
	"github.com/rileyhilliard/zonedash/internal/server"
	"github.com/rileyhilliard/zonedash/internal/ui"
)

// serveCommand runs the HTTP server until ctx is canceled (Ctrl+C, SIGTERM).
func serveCommand(ctx context.Context, listen string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if listen == "" {
		listen = a.cfg.Server.Listen
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(server.Config{
		Listen:        listen,
		Nodes:         a.nodes(),
		DefaultNode:   a.cfg.EffectiveDefaultNode(),
		Interval:      a.cfg.RefreshInterval,
		HistoryPoints: a.cfg.HistoryPoints,
		CommandRate:   a.cfg.Server.CommandRate,
		CommandBurst:  a.cfg.Server.CommandBurst,
	}, fetcher, dispatcher,
		server.WithMetrics(metrics.New(reg), reg),
		server.WithLogger(logger.NewEnvLogger("[server]")),
	)

	fmt.Printf("%s Serving %d nodes on %s (Ctrl+C to stop)\n", ui.SymbolProgress, len(a.cfg.Nodes), ui.InfoStyle().Render(listen))
	if err := srv.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("%s Stopped\n", ui.SymbolSuccess)
	return nil
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/colldocs/internal/docgen"
	"git.home.luguber.info/inful/colldocs/internal/logfields"
	"git.home.luguber.info/inful/colldocs/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output         string `short:"o" help:"Output directory for generated pages (overrides config)"`
	Strict         bool   `help:"Abort on the first recorded error"`
	IncludePrivate bool   `name:"include-private" help:"Document entities marked private"`
	MetricsAddr    string `name:"metrics-addr" help:"Expose Prometheus metrics on this address for the duration of the build"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if b.Output != "" {
		cfg.OutputPath = b.Output
	}
	if b.Strict {
		cfg.Strict = true
	}
	if b.IncludePrivate {
		cfg.IncludePrivate = true
	}

	builder := docgen.New(cfg)
	stopMetrics := func() {}
	if b.MetricsAddr != "" {
		var recorder *metrics.PrometheusRecorder
		recorder, stopMetrics = serveMetrics(b.MetricsAddr)
		builder.WithRecorder(recorder)
	}
	defer stopMetrics()

	result, err := builder.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Documented %d plugins (%d entities, %d pages) for %s\n",
		result.Report.Plugins, result.Report.Entities, result.Report.Pages, result.Report.Collection)
	if result.Report.Outcome != "success" {
		fmt.Printf("Build finished with %d recorded errors; see %s/build-report.json\n",
			result.Report.ErrorCount(), cfg.OutputPath)
	}
	return nil
}

// serveMetrics starts a metrics endpoint and returns its recorder plus a
// shutdown func.
func serveMetrics(addr string) (*metrics.PrometheusRecorder, func()) {
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()

	return recorder, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

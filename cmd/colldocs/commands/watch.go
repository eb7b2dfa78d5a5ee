package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/colldocs/internal/docgen"
	"git.home.luguber.info/inful/colldocs/internal/gitsource"
	"git.home.luguber.info/inful/colldocs/internal/logfields"
	"git.home.luguber.info/inful/colldocs/internal/watch"
)

// WatchCmd implements the 'watch' command: one initial build, then a
// debounced rebuild on every metadata change until interrupted.
type WatchCmd struct {
	Output      string `short:"o" help:"Output directory for generated pages (overrides config)"`
	MetricsAddr string `name:"metrics-addr" help:"Expose Prometheus metrics on this address"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if w.Output != "" {
		cfg.OutputPath = w.Output
	}
	if gitsource.IsGitSource(cfg.CollectionPath) {
		return fmt.Errorf("watch requires a local collection_path, got git source %s", cfg.CollectionPath)
	}

	builder := docgen.New(cfg)
	stopMetrics := func() {}
	if w.MetricsAddr != "" {
		recorder, stop := serveMetrics(w.MetricsAddr)
		builder.WithRecorder(recorder)
		stopMetrics = stop
	}
	defer stopMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rebuild := func(ctx context.Context) error {
		_, err := builder.Run(ctx)
		return err
	}
	if err := rebuild(ctx); err != nil {
		// The initial build must succeed so the watcher starts from a
		// consistent output tree.
		return err
	}

	watcher, err := watch.New(cfg.CollectionPath, cfg.Watch.Debounce, rebuild)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return err
	}

	slog.Info("Watching for changes, press Ctrl-C to stop", logfields.Path(cfg.CollectionPath))
	<-ctx.Done()
	watcher.Stop()
	slog.Info("Watcher stopped")
	return nil
}

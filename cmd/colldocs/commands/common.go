package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/colldocs/internal/config"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"colldocs.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Extract documentation pages from the configured collection"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild documentation continuously as collection files change"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a cross-reference against the collection's entity index"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(c.Verbose, ""),
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the configured file and re-applies the logging level it
// declares. --verbose always wins.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(root.Verbose, cfg.Logging.Level),
	})))
	return cfg, nil
}

func logLevel(verbose bool, configured string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch configured {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

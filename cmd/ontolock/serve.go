package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ontolock/internal/config"
	"ontolock/internal/errors"
	"ontolock/internal/mcp"
	"ontolock/internal/ontology"
	"ontolock/internal/paths"
	"ontolock/internal/resolver"
	"ontolock/internal/slogutil"
	"ontolock/internal/watcher"
)

var (
	serveHeadless    bool
	serveEnvironment string
	serveWatch       bool
	serveLogToFile   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Gate the ontology and serve it as tools over stdio",
	Long: `Verify the ontology against the lockfile, then serve the functions the
configured principal can reach as tools over stdio (JSON-RPC 2.0, one
message per line).

If the capability surface changed, nothing is served until the change is
approved on the review surface. In headless mode (--headless or
review.mode=headless) a mismatch exits 2 instead.

With --watch, edits to the ontology are hot-reloaded when they keep the
approved surface, and approved lockfile changes go live without a restart.
Logs go to stderr, or to a file with --log-to-file; stdout carries the
protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveHeadless, "headless", false, "Exit on a lock mismatch instead of opening a review")
	serveCmd.Flags().StringVar(&serveEnvironment, "environment", "", "Ontology environment passed to resolvers (overrides config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Hot-reload the ontology and lockfile (overrides config)")
	serveCmd.Flags().BoolVar(&serveLogToFile, "log-to-file", false, "Write logs to logging.file or .ontolock/logs/serve.log")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if serveHeadless {
		p.cfg.Review.Mode = config.ModeHeadless
	}
	if serveEnvironment != "" {
		p.cfg.Ontology.Environment = serveEnvironment
	}
	if serveWatch {
		p.cfg.Watch.Enabled = true
	}

	if serveLogToFile || p.cfg.Logging.File != "" {
		logFile, err := p.redirectLogs()
		if err != nil {
			return err
		}
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	def, err := p.loadDefinition()
	if err != nil {
		return err
	}
	if err := checkEnvironment(def, p.cfg.Ontology.Environment); err != nil {
		return err
	}
	if err := p.runGate(ctx, def, cmd.ErrOrStderr()); err != nil {
		return err
	}

	holder := ontology.NewHolder(def)
	registry := resolver.NewRegistry(
		resolver.NewHTTPStrategy(time.Duration(p.cfg.Resolver.TimeoutMs)*time.Millisecond, p.logger),
	)
	server := mcp.NewServer(mcp.Options{
		Holder:      holder,
		Resolvers:   registry,
		Principal:   p.principal(),
		Environment: p.cfg.Ontology.Environment,
		Logger:      p.logger,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
	})

	if p.cfg.Watch.Enabled {
		w, err := p.startWatcher(ctx, holder, server)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	p.logger.Info("Serving tools over stdio",
		"functions", len(def.Functions()),
		"environment", p.cfg.Ontology.Environment,
	)
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	p.logger.Info("Tool server stopped")
	return nil
}

func (p *project) redirectLogs() (*os.File, error) {
	logPath := paths.Resolve(p.root, p.cfg.Logging.File)
	if logPath == "" {
		logPath = paths.ServeLogPath(p.root)
	}
	if _, err := paths.EnsureDir(filepath.Dir(logPath)); err != nil {
		return nil, err
	}
	level := slogutil.LevelFromString(p.cfg.Logging.Level)
	if verboseFlag > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	}
	logger, f, err := slogutil.NewFileLogger(logPath, p.cfg.Logging.Format, level)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	p.logger = logger
	return f, nil
}

func checkEnvironment(def *ontology.Definition, name string) error {
	if name == "" {
		return nil
	}
	if _, ok := def.Environment(name); !ok {
		return errors.Errorf(errors.InvalidDefinition, "environment %q is not declared (have %v)", name, def.EnvironmentNames())
	}
	return nil
}

// startWatcher hot-reloads the ontology. The lockfile is watched too, so a
// change approved elsewhere goes live on the next reload.
func (p *project) startWatcher(ctx context.Context, holder *ontology.Holder, server *mcp.Server) (*watcher.Watcher, error) {
	reloader := watcher.NewReloader(holder, p.lock(), p.loadDefinition,
		func(prev, next *ontology.Definition) { server.NotifyToolsChanged() },
		p.logger,
	)

	watchPaths := []string{p.ontologyPath(), p.lockfilePath()}
	if env := p.environmentsPath(); env != "" {
		watchPaths = append(watchPaths, env)
	}
	w := watcher.New(watcher.Config{
		Paths:        watchPaths,
		Debounce:     time.Duration(p.cfg.Watch.DebounceMs) * time.Millisecond,
		PollInterval: time.Duration(p.cfg.Watch.PollIntervalMs) * time.Millisecond,
	}, p.logger, reloader.Handler(ctx))
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

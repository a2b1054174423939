package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"ontolock/internal/config"
	"ontolock/internal/history"
	"ontolock/internal/lockfile"
	"ontolock/internal/ontology"
	"ontolock/internal/paths"
	"ontolock/internal/slogutil"
)

// project bundles what every command needs: the resolved root, its
// configuration and a logger.
type project struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

func loadProject() (*project, error) {
	root, err := filepath.Abs(projectFlag)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if ontologyFlag != "" {
		cfg.Ontology.Path = ontologyFlag
	}
	if lockfileFlag != "" {
		cfg.Lockfile.Path = lockfileFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &project{root: root, cfg: cfg, logger: newLogger(os.Stderr, cfg)}, nil
}

// newLogger writes to w. Verbosity flags win over the configured level.
// stdout is never used: it carries the tool protocol under serve.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verboseFlag > 0 || quietFlag {
		level = slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	}
	return slogutil.New(w, cfg.Logging.Format, level)
}

func (p *project) ontologyPath() string {
	return paths.Resolve(p.root, p.cfg.Ontology.Path)
}

func (p *project) environmentsPath() string {
	return paths.Resolve(p.root, p.cfg.Ontology.EnvironmentsPath)
}

func (p *project) lockfilePath() string {
	return paths.Resolve(p.root, p.cfg.Lockfile.Path)
}

func (p *project) loadDefinition() (*ontology.Definition, error) {
	def, err := ontology.LoadFile(p.ontologyPath(), ontology.LoadOptions{
		EnvironmentsPath: p.environmentsPath(),
		Logger:           p.logger,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range def.Warnings() {
		p.logger.Warn("Ontology warning", "warning", w.Error())
	}
	return def, nil
}

func (p *project) lock() *lockfile.Engine {
	return lockfile.New(p.lockfilePath(), p.logger)
}

// openHistory returns nil when history is disabled.
func (p *project) openHistory() (*history.Store, error) {
	if !p.cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(paths.Resolve(p.root, p.cfg.History.Path), p.logger)
}

func (p *project) principal() ontology.Principal {
	pc := p.cfg.Principal
	principal := ontology.Principal{Groups: append([]string(nil), pc.Groups...)}
	if pc.User != "" {
		principal.User = pc.User
	}
	if pc.Organization != "" {
		principal.Organization = pc.Organization
	}
	return principal
}

// reviewer names the human running a local command.
func reviewer() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}

func printJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

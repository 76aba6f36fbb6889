package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/patrickprogramme/captionsync/internal/app"
	"github.com/patrickprogramme/captionsync/internal/config"
	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/ui"
)

type commandContext struct {
	flags *app.CLIFlags
}

func newCommandContext(flags *app.CLIFlags) *commandContext {
	return &commandContext{flags: flags}
}

// configPath : --config, sinon captionsync.yaml à côté de l'exécutable.
func (c *commandContext) configPath() string {
	if p := strings.TrimSpace(c.flags.ConfigPath); p != "" && p != config.DefaultPath {
		return p
	}
	exePath, err := os.Executable()
	if err != nil {
		return config.DefaultPath
	}
	return filepath.Join(filepath.Dir(exePath), config.DefaultPath)
}

// withApp charge la config, construit le logger et l'app, exécute fn puis
// ferme le fichier de log éventuel.
func (c *commandContext) withApp(fn func(*app.App) error) error {
	cfg, err := config.Load(c.configPath())
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	level := cfg.Logging.Level
	if c.flags.LogLevel != "" {
		level = c.flags.LogLevel
	}
	logger, closer, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = closer.Close() }()

	if err := reportConfig(cfg, logger); err != nil {
		return err
	}

	return fn(app.New(cfg, ui.NewTerminal(), c.flags, logger))
}

// reportConfig journalise les événements de chargement et la validation.
func reportConfig(cfg *config.Config, logger *slog.Logger) error {
	if cfg.Created() {
		logger.Info("default configuration created", slog.String("path", cfg.Path()))
	}
	if up := cfg.Upgraded(); up != nil {
		logger.Info("configuration upgraded",
			slog.Int("from", up.From),
			slog.Int("to", up.To),
			slog.String("backup", up.BackupPath),
		)
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logger.Warn("config: " + w)
	}
	if err != nil {
		return fmt.Errorf("configuration invalide (%s): %w", cfg.Path(), err)
	}
	return nil
}

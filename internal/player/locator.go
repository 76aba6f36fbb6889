// Package player attend que la page expose la vidéo et les métadonnées du
// lecteur (liste des pistes de sous-titres).
package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/page"
)

const (
	DefaultInterval    = 300 * time.Millisecond
	DefaultMaxAttempts = 100
)

// ErrTimeout : vidéo ou métadonnées introuvables après MaxAttempts essais.
// Non fatal : l'appelant passe en mode fallback.
var ErrTimeout = errors.New("timeout: video/player not found")

// Options règle le polling. Les zéros valent défauts.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	Probes      []Probe
	Logger      *slog.Logger
}

// Result : métadonnées brutes du lecteur et snapshot qui les a fournies.
type Result struct {
	PlayerData json.RawMessage
	Snapshot   page.Snapshot
	Attempts   int
}

// Locate interroge doc toutes les Interval jusqu'à trouver une vidéo ET des
// métadonnées. Une erreur de snapshot compte comme un essai vide.
func Locate(ctx context.Context, doc page.Document, opts Options) (Result, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if len(opts.Probes) == 0 {
		opts.Probes = DefaultProbes
	}
	logger := logging.Component(opts.Logger, "player")

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}

		snap, err := doc.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			logger.Debug("snapshot failed", slog.Int("attempt", attempt), slog.Any("error", err))
		} else if data, ok := runProbes(opts.Probes, snap); ok && snap.HasVideo {
			logger.Debug("player located", slog.Int("attempt", attempt))
			return Result{PlayerData: data, Snapshot: snap, Attempts: attempt}, nil
		}

		if attempt >= opts.MaxAttempts {
			return Result{}, fmt.Errorf("after %d attempts: %w", attempt, ErrTimeout)
		}
	}
}

// Extract applique les sondes par défaut à un snapshot unique, sans attente.
// Sert aux commandes ponctuelles (tracks, export) sur une page déjà chargée.
func Extract(snap page.Snapshot) (json.RawMessage, bool) {
	return runProbes(DefaultProbes, snap)
}

// runProbes retourne le résultat de la première sonde qui trouve quelque chose.
func runProbes(probes []Probe, snap page.Snapshot) (json.RawMessage, bool) {
	for _, p := range probes {
		if data, ok := p(snap); ok {
			return data, true
		}
	}
	return nil, false
}

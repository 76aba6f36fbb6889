// Package syncer affiche le bon texte au bon moment : suivi de la position
// de lecture (mode structuré) ou recopie des captions natives (fallback).
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/page"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

const DefaultInterval = 100 * time.Millisecond

// Engine garantit qu'un seul poll d'affichage tourne à la fois.
type Engine struct {
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	runID  uint64
}

// New crée un moteur ; interval <= 0 -> DefaultInterval.
func New(interval time.Duration, logger *slog.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{interval: interval, logger: logging.Component(logger, "syncer")}
}

// State retourne l'état courant.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Transition positionne une phase d'acquisition (Locating, Resolving,
// Fetching). Un poll en cours est arrêté d'abord.
func (e *Engine) Transition(s State) {
	if s.Syncing() {
		// les états de sync ne s'atteignent que via Start*
		return
	}
	e.Stop()
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// StartStructured suit video.CurrentTime et affiche le cue actif.
func (e *Engine) StartStructured(ctx context.Context, video page.Video, cues []model.Cue, surface page.Surface) {
	e.start(ctx, SyncingStructured, func(ctx context.Context) (string, error) {
		t, err := video.CurrentTime(ctx)
		if err != nil {
			return "", err
		}
		return ResolveText(cues, t), nil
	}, surface, slog.Int("cues", len(cues)))
}

// StartFallback recopie le texte des captions natives de la page.
func (e *Engine) StartFallback(ctx context.Context, src page.CaptionMirror, surface page.Surface) {
	e.start(ctx, SyncingFallback, src.NativeCaption, surface)
}

// Stop arrête le poll en cours et attend sa fin ; idempotent. Retour à Idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.state = Idle
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait bloque jusqu'à la fin du poll courant (s'il y en a un).
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

type textSource func(ctx context.Context) (string, error)

func (e *Engine) start(ctx context.Context, mode State, next textSource, surface page.Surface, attrs ...any) {
	e.Stop()

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	e.mu.Lock()
	e.runID++
	id := e.runID
	e.state = mode
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	e.logger.Info("sync started", append([]any{slog.String("mode", mode.String())}, attrs...)...)
	go e.poll(pollCtx, id, next, surface, done)
}

// poll : un tick toutes les interval ; écrit seulement si le texte change.
func (e *Engine) poll(ctx context.Context, id uint64, next textSource, surface page.Surface, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	p := poller{next: next, surface: surface}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := p.step(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, page.ErrDetached) {
			e.logger.Info("sync target detached, stopping")
			e.detach(id)
			return
		}
		e.logger.Debug("sync tick failed", slog.Any("error", err))
	}
}

// detach remet l'état à Idle si le poll id est toujours le poll courant.
func (e *Engine) detach(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runID != id || e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
	e.done = nil
	e.state = Idle
}

// poller porte l'état d'un poll : le dernier texte affiché. La zone est
// vidée avant chaque démarrage, d'où last = "" au départ.
type poller struct {
	next    textSource
	surface page.Surface
	last    string
}

func (p *poller) step(ctx context.Context) error {
	text, err := p.next(ctx)
	if err != nil {
		return err
	}
	if text == p.last {
		return nil
	}
	if err := p.surface.SetText(ctx, text); err != nil {
		return err
	}
	p.last = text
	return nil
}

// Package navigation suit les changements d'URL d'une application
// monopage : démontage de l'affichage, rechargement complet quand la vidéo
// change (forceRefresh), ou re-synchronisation après un délai de stabilisation.
package navigation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/yt"
)

const DefaultSettle = 1500 * time.Millisecond

// Handler reçoit les décisions du Watcher.
// Teardown et Reload sont appelés de façon synchrone depuis Observe ;
// Resync est appelé depuis le timer de stabilisation.
type Handler interface {
	Teardown()
	Reload(ctx context.Context) error
	Resync()
}

// Outcome : ce que Observe a décidé.
type Outcome int

const (
	Unchanged Outcome = iota
	Reloaded
	Resyncing
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Reloaded:
		return "reloaded"
	case Resyncing:
		return "resyncing"
	default:
		return "unknown"
	}
}

type Options struct {
	Settle       time.Duration
	ForceRefresh bool
	Logger       *slog.Logger
}

// Watcher mémorise la dernière URL et l'identifiant vidéo courant.
type Watcher struct {
	handler Handler
	settle  time.Duration
	logger  *slog.Logger

	mu           sync.Mutex
	lastURL      string
	videoID      string
	forceRefresh bool
	timer        *time.Timer
	seq          uint64
	stopped      bool
}

func New(h Handler, opts Options) *Watcher {
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		handler:      h,
		settle:       settle,
		logger:       logging.Component(opts.Logger, "navigation"),
		forceRefresh: opts.ForceRefresh,
	}
}

// Seed initialise l'URL de départ sans rien déclencher.
func (w *Watcher) Seed(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastURL = url
	w.videoID = yt.VideoIDFromURL(url)
	w.stopped = false
}

func (w *Watcher) SetForceRefresh(v bool) {
	w.mu.Lock()
	w.forceRefresh = v
	w.mu.Unlock()
}

func (w *Watcher) ForceRefresh() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.forceRefresh
}

// VideoID retourne l'identifiant de la vidéo courante ("" si inconnu).
func (w *Watcher) VideoID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.videoID
}

// Observe traite une mutation ou navigation de la page. Les appels doivent
// être sérialisés par l'appelant.
func (w *Watcher) Observe(ctx context.Context, url string) Outcome {
	w.mu.Lock()
	if url == w.lastURL {
		w.mu.Unlock()
		return Unchanged
	}
	oldID := w.videoID
	newID := yt.VideoIDFromURL(url)
	w.lastURL = url
	w.videoID = newID
	force := w.forceRefresh
	w.cancelLocked()
	w.mu.Unlock()

	log := w.logger.With(slog.String(logging.FieldURL, url))
	log.Debug("navigation detected", slog.String("old_video_id", oldID), slog.String("new_video_id", newID))

	w.handler.Teardown()

	if force && oldID != "" && newID != "" && oldID != newID {
		log.Info("video changed, reloading page", slog.String(logging.FieldVideoID, newID))
		if err := w.handler.Reload(ctx); err != nil {
			// rechargement impossible : on retombe sur une resynchro
			log.Warn("page reload failed", slog.Any("error", err))
			w.schedule()
			return Resyncing
		}
		return Reloaded
	}

	w.schedule()
	return Resyncing
}

// Stop annule la resynchro en attente. Observe/Seed réarment le Watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
	w.stopped = true
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
	w.stopped = false
	w.seq++
	seq := w.seq
	w.timer = time.AfterFunc(w.settle, func() { w.fire(seq) })
}

func (w *Watcher) fire(seq uint64) {
	w.mu.Lock()
	// une navigation plus récente (ou Stop) a pris la main
	current := seq == w.seq && !w.stopped
	if current {
		w.timer = nil
	}
	w.mu.Unlock()
	if current {
		w.handler.Resync()
	}
}

func (w *Watcher) cancelLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.seq++
}

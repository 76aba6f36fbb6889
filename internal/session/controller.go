// Package session relie tout : préférences, navigation, acquisition des
// sous-titres et moteur de synchronisation, pour une page hôte donnée.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patrickprogramme/captionsync/internal/fetch"
	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/internal/navigation"
	"github.com/patrickprogramme/captionsync/internal/page"
	"github.com/patrickprogramme/captionsync/internal/player"
	"github.com/patrickprogramme/captionsync/internal/prefs"
	"github.com/patrickprogramme/captionsync/internal/subtitles"
	"github.com/patrickprogramme/captionsync/internal/syncer"
	"github.com/patrickprogramme/captionsync/internal/yt"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

const DefaultStartupDelay = 2000 * time.Millisecond

// délai max des opérations DOM hors pipeline (teardown, timers)
const hostOpTimeout = 5 * time.Second

// Options : délais et réglages des composants. Les zéros valent défauts.
type Options struct {
	StartupDelay time.Duration
	SettleDelay  time.Duration
	SyncInterval time.Duration
	Locate       player.Options
	Fetch        fetch.Options
	Logger       *slog.Logger
}

// Controller est le contexte explicite d'une session. Toutes les entrées
// (événements, timers, notifications) passent par mu.
type Controller struct {
	host  page.Host
	store prefs.Store
	opts  Options

	id     string
	logger *slog.Logger

	engine  *syncer.Engine
	watcher *navigation.Watcher

	mu          sync.Mutex
	ctx         context.Context
	prefs       prefs.Preferences
	generation  uint64
	acquire     context.CancelFunc
	startTimer  *time.Timer
	timerSeq    uint64
	unsubscribe func()
	closed      bool
}

// New prépare une session ; rien ne démarre avant Start.
func New(host page.Host, store prefs.Store, opts Options) *Controller {
	if opts.StartupDelay <= 0 {
		opts.StartupDelay = DefaultStartupDelay
	}
	id := uuid.NewString()
	logger := logging.WithSession(opts.Logger, id)
	opts.Locate.Logger = logger

	c := &Controller{
		host:   host,
		store:  store,
		opts:   opts,
		id:     id,
		logger: logging.Component(logger, "session"),
		engine: syncer.New(opts.SyncInterval, logger),
		prefs:  prefs.Defaults(),
		ctx:    context.Background(),
	}
	c.watcher = navigation.New(navHandler{c}, navigation.Options{
		Settle:       opts.SettleDelay,
		ForceRefresh: c.prefs.ForceRefresh,
		Logger:       logger,
	})
	return c
}

// SessionID retourne l'identifiant porté par chaque ligne de log.
func (c *Controller) SessionID() string { return c.id }

// State retourne l'état du moteur de synchronisation.
func (c *Controller) State() syncer.State { return c.engine.State() }

// Generation retourne le numéro de la dernière acquisition lancée.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Preferences retourne une copie des préférences en vigueur.
func (c *Controller) Preferences() prefs.Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// Start charge les préférences, s'abonne aux changements, initialise la
// navigation et planifie le premier pipeline après StartupDelay.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("session closed")
	}
	c.ctx = ctx

	p, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn("load preferences failed, using defaults", slog.Any("error", err))
		p = prefs.Defaults()
	}
	c.prefs = p
	c.watcher.SetForceRefresh(p.ForceRefresh)
	c.logger.Info("preferences loaded",
		slog.Bool(prefs.KeyEnabled, p.Enabled),
		slog.String(prefs.KeyLanguage, p.Language),
		slog.Bool(prefs.KeyHideButton, p.HideButton),
		slog.Bool(prefs.KeyForceRefresh, p.ForceRefresh),
	)

	c.unsubscribe = c.store.Subscribe(c.HandlePreferenceChange)

	url, err := c.host.URL(ctx)
	if err != nil {
		c.logger.Warn("read page url failed", slog.Any("error", err))
	}
	c.watcher.Seed(url)

	c.scheduleLocked(c.opts.StartupDelay)
	return nil
}

// Run consomme les événements de l'hôte jusqu'à l'annulation de ctx ou la
// fermeture du canal.
func (c *Controller) Run(ctx context.Context) error {
	events := c.host.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev page.Event) {
	switch ev.Kind {
	case page.EventNavigation:
		c.Observe(ctx, ev.URL)
	case page.EventToggleClicked:
		if err := c.Toggle(ctx); err != nil {
			c.logger.Warn("toggle failed", slog.Any("error", err))
		}
	default:
		c.logger.Debug("ignored host event", slog.String("kind", ev.Kind.String()))
	}
}

// Observe transmet une navigation au Watcher. Après un rechargement complet,
// la page repart de zéro : premier pipeline après StartupDelay.
func (c *Controller) Observe(ctx context.Context, url string) navigation.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return navigation.Unchanged
	}
	out := c.watcher.Observe(ctx, url)
	if out == navigation.Reloaded {
		c.scheduleLocked(c.opts.StartupDelay)
	}
	return out
}

// RunPipeline relance tout : arrêt de la synchro, bouton, zone de
// sous-titres puis acquisition asynchrone si activé.
func (c *Controller) RunPipeline(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.runPipelineLocked(ctx)
}

func (c *Controller) runPipelineLocked(ctx context.Context) error {
	c.stopLocked()
	c.generation++
	gen := c.generation
	p := c.prefs

	// le bouton est toujours recréé (libellé à jour) sauf s'il est masqué
	var err error
	if p.HideButton {
		err = c.host.RemoveToggle(ctx)
	} else {
		err = c.host.EnsureToggle(ctx, p.Enabled)
	}
	if err != nil {
		c.logger.Warn("toggle button update failed", slog.Any("error", err))
	}

	if err := c.host.EnsureOverlay(ctx, p.Enabled); err != nil {
		return err
	}
	if !p.Enabled {
		return c.host.SetOverlayVisible(ctx, false)
	}

	c.logger.Info("starting caption sync", slog.Uint64("generation", gen), slog.String(prefs.KeyLanguage, p.Language))
	c.engine.Transition(syncer.Locating)

	acqCtx, cancel := context.WithCancel(ctx)
	c.acquire = cancel
	go c.runAcquisition(acqCtx, gen, p.Language)
	return nil
}

// runAcquisition : Locate -> Resolve -> Fetch -> Decode, puis démarrage de la
// synchro. Tout résultat d'une génération périmée est jeté.
func (c *Controller) runAcquisition(ctx context.Context, gen uint64, language string) {
	log := c.logger.With(slog.Uint64("generation", gen))

	res, err := player.Locate(ctx, c.host, c.opts.Locate)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, player.ErrTimeout) {
			log.Info("player data not found, using native captions", slog.Any("error", err))
		} else {
			log.Warn("locate player failed, using native captions", slog.Any("error", err))
		}
		c.startFallback(ctx, gen)
		return
	}
	log.Debug("video and player data found", slog.Int("attempts", res.Attempts))

	if !c.transition(gen, syncer.Resolving) {
		return
	}
	meta, err := yt.ParsePlayerResponse(res.PlayerData)
	if err != nil {
		log.Info("player data unusable, using native captions", slog.Any("error", err))
		c.startFallback(ctx, gen)
		return
	}
	log = log.With(slog.String(logging.FieldVideoID, meta.VideoID))

	dl, ok := subtitles.NewCaptionDownload(meta, language)
	if !ok {
		log.Info("no caption track, using native captions", slog.Int("tracks", len(meta.Tracks)))
		c.startFallback(ctx, gen)
		return
	}

	if !c.transition(gen, syncer.Fetching) {
		return
	}
	cues, err := subtitles.FetchCues(ctx, dl.URL, c.opts.Fetch)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn("caption fetch failed", slog.Any("error", err))
	}
	log.Info("captions loaded", slog.String("track", dl.Track.LanguageCode), slog.Int("cues", len(cues)))

	if len(cues) == 0 {
		c.startFallback(ctx, gen)
		return
	}
	c.startStructured(ctx, gen, cues)
}

// current : appelé sous mu, vrai si gen est encore l'acquisition en cours.
func (c *Controller) currentLocked(gen uint64) bool {
	return !c.closed && gen == c.generation
}

func (c *Controller) transition(gen uint64, s syncer.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		return false
	}
	c.engine.Transition(s)
	return true
}

func (c *Controller) startStructured(ctx context.Context, gen uint64, cues []model.Cue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		c.logger.Debug("dropping stale captions", slog.Uint64("generation", gen))
		return
	}
	c.engine.StartStructured(ctx, c.host, cues, c.host)
}

func (c *Controller) startFallback(ctx context.Context, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		return
	}
	c.engine.StartFallback(ctx, c.host, c.host)
}

// Toggle inverse enabled (clic sur le bouton) et persiste la valeur.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.prefs.Enabled = !c.prefs.Enabled
	enabled := c.prefs.Enabled
	c.applyEnabledLocked(ctx)
	c.mu.Unlock()

	c.logger.Info("captions toggled", slog.Bool(prefs.KeyEnabled, enabled))
	// hors verrou : le store notifie les abonnés de façon synchrone
	return c.store.Set(ctx, prefs.Update{Enabled: &enabled})
}

// applyEnabledLocked met à jour bouton et visibilité. Si rien ne tourne
// (session démarrée désactivée), réactiver lance le pipeline.
func (c *Controller) applyEnabledLocked(ctx context.Context) {
	enabled := c.prefs.Enabled
	if !c.prefs.HideButton {
		if err := c.host.EnsureToggle(ctx, enabled); err != nil {
			c.logger.Warn("toggle button update failed", slog.Any("error", err))
		}
	}
	if err := c.host.SetOverlayVisible(ctx, enabled); err != nil {
		c.logger.Warn("overlay visibility update failed", slog.Any("error", err))
	}
	if enabled && c.engine.State() == syncer.Idle && c.generation > 0 {
		if err := c.runPipelineLocked(c.ctx); err != nil {
			c.logger.Warn("restart pipeline failed", slog.Any("error", err))
		}
	}
}

// HandlePreferenceChange applique les changements venus du store (popup,
// API, autre session). Les autres namespaces sont ignorés.
func (c *Controller) HandlePreferenceChange(namespace string, changes prefs.Changes) {
	if namespace != prefs.Namespace {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, hostOpTimeout)
	defer cancel()

	needsRestart := false

	if v, ok := boolChange(changes, prefs.KeyEnabled); ok && v != c.prefs.Enabled {
		c.prefs.Enabled = v
		c.applyEnabledLocked(ctx)
	}
	if v, ok := stringChange(changes, prefs.KeyLanguage); ok && v != c.prefs.Language {
		c.prefs.Language = v
		needsRestart = true
	}
	if v, ok := boolChange(changes, prefs.KeyHideButton); ok && v != c.prefs.HideButton {
		c.prefs.HideButton = v
		var err error
		if v {
			err = c.host.RemoveToggle(ctx)
		} else {
			err = c.host.EnsureToggle(ctx, c.prefs.Enabled)
		}
		if err != nil {
			c.logger.Warn("toggle button update failed", slog.Any("error", err))
		}
	}
	if v, ok := boolChange(changes, prefs.KeyForceRefresh); ok {
		c.prefs.ForceRefresh = v
		c.watcher.SetForceRefresh(v)
	}

	c.logger.Debug("preferences changed", slog.Int("keys", len(changes)))

	// nouvelle langue : nouvelles pistes
	if needsRestart && c.prefs.Enabled {
		if err := c.runPipelineLocked(c.ctx); err != nil {
			c.logger.Warn("restart pipeline failed", slog.Any("error", err))
		}
	}
}

func boolChange(changes prefs.Changes, key string) (bool, bool) {
	ch, ok := changes[key]
	if !ok {
		return false, false
	}
	v, ok := ch.New.(bool)
	return v, ok
}

func stringChange(changes prefs.Changes, key string) (string, bool) {
	ch, ok := changes[key]
	if !ok {
		return "", false
	}
	v, ok := ch.New.(string)
	return v, ok
}

// Close arrête moteur, navigation, timers et abonnement. Idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancelTimerLocked()
	c.stopLocked()
	c.watcher.Stop()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.logger.Info("session closed")
	return nil
}

// stopLocked arrête la synchro et annule l'acquisition en cours.
func (c *Controller) stopLocked() {
	if c.acquire != nil {
		c.acquire()
		c.acquire = nil
	}
	c.engine.Stop()
}

// teardownLocked : démontage sur navigation. Zone vidée, résultats en vol
// invalidés.
func (c *Controller) teardownLocked() {
	c.cancelTimerLocked()
	c.stopLocked()
	c.generation++

	ctx, cancel := context.WithTimeout(c.ctx, hostOpTimeout)
	defer cancel()
	if err := c.host.SetText(ctx, ""); err != nil && !errors.Is(err, page.ErrDetached) {
		c.logger.Debug("clear overlay failed", slog.Any("error", err))
	}
}

func (c *Controller) scheduleLocked(d time.Duration) {
	c.cancelTimerLocked()
	seq := c.timerSeq
	c.startTimer = time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || seq != c.timerSeq {
			return
		}
		c.startTimer = nil
		if err := c.runPipelineLocked(c.ctx); err != nil {
			c.logger.Warn("caption pipeline failed", slog.Any("error", err))
		}
	})
}

func (c *Controller) cancelTimerLocked() {
	if c.startTimer != nil {
		c.startTimer.Stop()
		c.startTimer = nil
	}
	c.timerSeq++
}

// resync : fin du délai de stabilisation après une navigation.
func (c *Controller) resync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.runPipelineLocked(c.ctx); err != nil {
		c.logger.Warn("caption pipeline failed", slog.Any("error", err))
	}
}

// navHandler adapte le Controller à navigation.Handler. Teardown et Reload
// sont appelés depuis Observe, donc sous c.mu.
type navHandler struct{ c *Controller }

func (h navHandler) Teardown() { h.c.teardownLocked() }

func (h navHandler) Reload(ctx context.Context) error { return h.c.host.Reload(ctx) }

func (h navHandler) Resync() { h.c.resync() }

package page

import (
	"context"
	"fmt"
	"sync"
)

// Loader récupère le HTML d'une URL (HTTP en prod, map en test).
type Loader func(ctx context.Context, url string) ([]byte, error)

// Display est la sortie de l'hôte statique (le terminal).
type Display interface {
	ShowCaption(text string)
	ShowStatus(text string)
}

// StaticOptions : paramètres de NewStaticHost. Clock nil -> lecture depuis 0.
type StaticOptions struct {
	Loader  Loader
	Display Display
	Clock   *PlaybackClock
}

// StaticHost : page HTML figée + horloge de lecture + affichage terminal.
// Il n'y a pas de moteur JS : le lecteur est toujours considéré présent.
type StaticHost struct {
	load    Loader
	display Display
	clock   *PlaybackClock

	mu      sync.Mutex
	url     string
	doc     []byte
	snap    Snapshot
	overlay bool
	visible bool
	toggle  bool
	text    string

	events chan Event
}

var _ Host = (*StaticHost)(nil)

// NewStaticHost charge pageURL via opts.Loader.
func NewStaticHost(ctx context.Context, pageURL string, opts StaticOptions) (*StaticHost, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("static host: nil loader")
	}
	if opts.Clock == nil {
		opts.Clock = NewPlaybackClock(0)
	}
	if opts.Display == nil {
		opts.Display = nopDisplay{}
	}
	h := &StaticHost{
		load:    opts.Loader,
		display: opts.Display,
		clock:   opts.Clock,
		events:  make(chan Event, 32),
	}
	if err := h.loadPage(ctx, pageURL); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *StaticHost) loadPage(ctx context.Context, pageURL string) error {
	doc, err := h.load(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("static host: load %s: %w", pageURL, err)
	}
	snap, err := SnapshotFromHTML(pageURL, doc)
	if err != nil {
		return fmt.Errorf("static host: %w", err)
	}
	snap.HasVideo = true

	h.mu.Lock()
	h.url = pageURL
	h.doc = doc
	h.snap = snap
	h.mu.Unlock()
	return nil
}

// Clock expose l'horloge (pause/seek depuis le terminal).
func (h *StaticHost) Clock() *PlaybackClock { return h.clock }

func (h *StaticHost) Snapshot(context.Context) (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap, nil
}

func (h *StaticHost) URL(context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url, nil
}

// CurrentTime : ErrDetached si la zone de sous-titres n'existe plus.
func (h *StaticHost) CurrentTime(context.Context) (float64, error) {
	h.mu.Lock()
	overlay := h.overlay
	h.mu.Unlock()
	if !overlay {
		return 0, ErrDetached
	}
	return h.clock.Position(), nil
}

func (h *StaticHost) NativeCaption(context.Context) (string, error) {
	h.mu.Lock()
	doc := h.doc
	h.mu.Unlock()
	return NativeCaptionFromHTML(doc), nil
}

func (h *StaticHost) SetText(_ context.Context, text string) error {
	h.mu.Lock()
	if !h.overlay {
		h.mu.Unlock()
		return ErrDetached
	}
	h.text = text
	visible := h.visible
	h.mu.Unlock()

	if visible {
		h.display.ShowCaption(text)
	}
	return nil
}

// Text retourne le texte actuellement porté par la zone de sous-titres.
func (h *StaticHost) Text() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.text
}

// EnsureOverlay crée la zone si absente ; visible ne s'applique qu'à la création.
func (h *StaticHost) EnsureOverlay(_ context.Context, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.overlay {
		return nil
	}
	h.overlay = true
	h.visible = visible
	h.text = ""
	return nil
}

// Visible indique si la zone existe et est affichée.
func (h *StaticHost) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlay && h.visible
}

func (h *StaticHost) SetOverlayVisible(_ context.Context, visible bool) error {
	h.mu.Lock()
	if !h.overlay {
		h.mu.Unlock()
		return nil
	}
	h.visible = visible
	text := h.text
	h.mu.Unlock()

	if visible {
		h.display.ShowCaption(text)
	} else {
		h.display.ShowCaption("")
	}
	return nil
}

func (h *StaticHost) EnsureToggle(_ context.Context, enabled bool) error {
	h.mu.Lock()
	h.toggle = true
	h.mu.Unlock()
	h.display.ShowStatus(ToggleLabel(enabled))
	return nil
}

// HasToggle indique si le bouton est présent.
func (h *StaticHost) HasToggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.toggle
}

func (h *StaticHost) RemoveToggle(context.Context) error {
	h.mu.Lock()
	had := h.toggle
	h.toggle = false
	h.mu.Unlock()
	if had {
		h.display.ShowStatus("")
	}
	return nil
}

// Reload recharge l'URL courante : nouveau document, éléments injectés perdus,
// lecture reprise à 0.
func (h *StaticHost) Reload(ctx context.Context) error {
	h.mu.Lock()
	u := h.url
	h.mu.Unlock()

	if err := h.loadPage(ctx, u); err != nil {
		return err
	}
	h.mu.Lock()
	h.overlay = false
	h.visible = false
	h.toggle = false
	h.text = ""
	h.mu.Unlock()
	h.clock.Seek(0)
	h.display.ShowCaption("")
	return nil
}

// Navigate simule une navigation SPA : le document change, les éléments
// injectés restent, un EventNavigation est émis.
func (h *StaticHost) Navigate(ctx context.Context, pageURL string) error {
	if err := h.loadPage(ctx, pageURL); err != nil {
		return err
	}
	h.clock.Seek(0)
	return h.emit(ctx, Event{Kind: EventNavigation, URL: pageURL})
}

// ClickToggle simule un clic sur le bouton (touche Entrée dans le terminal).
func (h *StaticHost) ClickToggle(ctx context.Context) error {
	if !h.HasToggle() {
		return nil
	}
	return h.emit(ctx, Event{Kind: EventToggleClicked})
}

func (h *StaticHost) emit(ctx context.Context, ev Event) error {
	select {
	case h.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *StaticHost) Events() <-chan Event { return h.events }

type nopDisplay struct{}

func (nopDisplay) ShowCaption(string) {}
func (nopDisplay) ShowStatus(string)  {}

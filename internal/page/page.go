// Package page abstrait la page hôte (le site vidéo) : lecture de l'état du
// lecteur, position de lecture, captions natives, et éléments qu'on y ajoute
// (zone de sous-titres, bouton ON/OFF).
package page

import (
	"context"
	"encoding/json"
	"errors"
)

// Identifiants des éléments injectés, créés de façon idempotente.
const (
	OverlayID = "custom-caption-box"
	ToggleID  = "better-captions-toggle"

	// sélecteur des captions natives du lecteur (mode fallback)
	NativeCaptionSelector = ".ytp-caption-segment"
)

// Globals lus sur window, dans l'ordre de priorité.
const (
	GlobalInitialPlayerResponse = "ytInitialPlayerResponse"
	GlobalPlayerResponse        = "__PLAYER_RESPONSE__"
)

// ErrDetached : la vidéo ou la zone de sous-titres n'est plus dans la page.
var ErrDetached = errors.New("page element detached")

// Snapshot est une lecture ponctuelle de l'état de la page.
type Snapshot struct {
	URL      string
	HasVideo bool
	// Globals : valeurs JSON de window[name] (absent ou null = pas de clé)
	Globals map[string]json.RawMessage
	// ConfigArgs : ytplayer.config.args.player_response (chaîne JSON), "" si absent
	ConfigArgs string
	// Scripts : contenu texte des <script> de la page
	Scripts []string
}

// Document fournit des snapshots de la page.
type Document interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Video donne la position de lecture en secondes.
// ErrDetached si l'élément vidéo a disparu.
type Video interface {
	CurrentTime(ctx context.Context) (float64, error)
}

// Surface affiche le texte courant. ErrDetached si la zone a disparu.
type Surface interface {
	SetText(ctx context.Context, text string) error
}

// CaptionMirror lit le texte des captions natives ("" si aucune).
type CaptionMirror interface {
	NativeCaption(ctx context.Context) (string, error)
}

// Host regroupe tout ce que la session attend de la page hôte.
type Host interface {
	Document
	Video
	Surface
	CaptionMirror

	URL(ctx context.Context) (string, error)
	EnsureOverlay(ctx context.Context, visible bool) error
	SetOverlayVisible(ctx context.Context, visible bool) error
	// EnsureToggle (re)crée le bouton avec le libellé/couleur de l'état.
	EnsureToggle(ctx context.Context, enabled bool) error
	RemoveToggle(ctx context.Context) error
	Reload(ctx context.Context) error
	Events() <-chan Event
}

// EventKind : type d'événement remonté par l'hôte.
type EventKind int

const (
	EventNavigation EventKind = iota + 1
	EventToggleClicked
)

func (k EventKind) String() string {
	switch k {
	case EventNavigation:
		return "navigation"
	case EventToggleClicked:
		return "toggle_clicked"
	default:
		return "unknown"
	}
}

// Event : navigation (URL renseignée) ou clic sur le bouton.
type Event struct {
	Kind EventKind
	URL  string
}

// ToggleLabel retourne le libellé du bouton.
func ToggleLabel(enabled bool) string {
	if enabled {
		return "Captions: ON"
	}
	return "Captions: OFF"
}

// ToggleColor retourne la couleur de fond du bouton.
func ToggleColor(enabled bool) string {
	if enabled {
		return "#FFD700"
	}
	return "#999"
}

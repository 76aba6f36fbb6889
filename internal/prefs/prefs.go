// Package prefs stocke les préférences utilisateur (activation, langue,
// bouton, rechargement forcé) et notifie les changements par namespace.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Namespace unique des préférences de synchronisation.
const Namespace = "sync"

// Clés stockées (mêmes noms que côté popup).
const (
	KeyEnabled      = "enabled"
	KeyLanguage     = "language"
	KeyHideButton   = "hideButton"
	KeyForceRefresh = "forceRefresh"
)

var ErrInvalid = errors.New("invalid preference")

// Preferences : état complet, toujours rempli (défauts pour les clés absentes).
type Preferences struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Language     string `json:"language" yaml:"language"` // "auto" ou un code langue
	HideButton   bool   `json:"hideButton" yaml:"hide_button"`
	ForceRefresh bool   `json:"forceRefresh" yaml:"force_refresh"`
}

// Defaults retourne les valeurs initiales.
func Defaults() Preferences {
	return Preferences{
		Enabled:      true,
		Language:     "en",
		HideButton:   false,
		ForceRefresh: true,
	}
}

// Update est une mise à jour partielle : seuls les champs non nil changent.
type Update struct {
	Enabled      *bool   `json:"enabled,omitempty"`
	Language     *string `json:"language,omitempty"`
	HideButton   *bool   `json:"hideButton,omitempty"`
	ForceRefresh *bool   `json:"forceRefresh,omitempty"`
}

func (u Update) Empty() bool {
	return u.Enabled == nil && u.Language == nil && u.HideButton == nil && u.ForceRefresh == nil
}

// Validate refuse une langue vide.
func (u Update) Validate() error {
	if u.Language != nil && strings.TrimSpace(*u.Language) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalid, KeyLanguage)
	}
	return nil
}

// Apply retourne p avec les champs de u appliqués.
func (u Update) Apply(p Preferences) Preferences {
	if u.Enabled != nil {
		p.Enabled = *u.Enabled
	}
	if u.Language != nil {
		p.Language = strings.TrimSpace(*u.Language)
	}
	if u.HideButton != nil {
		p.HideButton = *u.HideButton
	}
	if u.ForceRefresh != nil {
		p.ForceRefresh = *u.ForceRefresh
	}
	return p
}

// ParseUpdate lit "clé=valeur" (CLI `prefs set`).
func ParseUpdate(kv string) (Update, error) {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return Update{}, fmt.Errorf("%w: expected key=value, got %q", ErrInvalid, kv)
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	var u Update
	switch key {
	case KeyLanguage:
		u.Language = &value
	case KeyEnabled, KeyHideButton, KeyForceRefresh:
		b, err := parseBool(value)
		if err != nil {
			return Update{}, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		switch key {
		case KeyEnabled:
			u.Enabled = &b
		case KeyHideButton:
			u.HideButton = &b
		default:
			u.ForceRefresh = &b
		}
	default:
		return Update{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return u, u.Validate()
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

// Change : ancienne et nouvelle valeur d'une clé (bool ou string).
type Change struct {
	Old any `json:"oldValue"`
	New any `json:"newValue"`
}

// Changes est indexé par clé ; seules les clés modifiées sont présentes.
type Changes map[string]Change

// Listener reçoit les changements d'un namespace.
type Listener func(namespace string, changes Changes)

// Store : lecture avec défauts, écriture partielle, abonnement.
type Store interface {
	Get(ctx context.Context) (Preferences, error)
	Set(ctx context.Context, u Update) error
	Subscribe(l Listener) (unsubscribe func())
	Close() error
}

// Diff liste les clés qui diffèrent entre old et cur.
func Diff(old, cur Preferences) Changes {
	ch := Changes{}
	if old.Enabled != cur.Enabled {
		ch[KeyEnabled] = Change{Old: old.Enabled, New: cur.Enabled}
	}
	if old.Language != cur.Language {
		ch[KeyLanguage] = Change{Old: old.Language, New: cur.Language}
	}
	if old.HideButton != cur.HideButton {
		ch[KeyHideButton] = Change{Old: old.HideButton, New: cur.HideButton}
	}
	if old.ForceRefresh != cur.ForceRefresh {
		ch[KeyForceRefresh] = Change{Old: old.ForceRefresh, New: cur.ForceRefresh}
	}
	return ch
}

// hub diffuse les changements aux abonnés, hors verrou du store.
type hub struct {
	mu        sync.Mutex
	next      int
	listeners map[int]Listener
}

func (h *hub) Subscribe(l Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners == nil {
		h.listeners = make(map[int]Listener)
	}
	id := h.next
	h.next++
	h.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) notify(changes Changes) {
	if len(changes) == 0 {
		return
	}
	h.mu.Lock()
	ls := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		ls = append(ls, l)
	}
	h.mu.Unlock()

	for _, l := range ls {
		l(Namespace, changes)
	}
}

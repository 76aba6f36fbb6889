package page

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/patrickprogramme/captionsync/internal/devtools"
	"github.com/patrickprogramme/captionsync/internal/logging"
)

// Conn : ce que BrowserHost utilise du client DevTools.
type Conn interface {
	Call(ctx context.Context, method string, params, result any) error
	Events() <-chan devtools.Event
}

// BrowserHost pilote un vrai onglet via le DevTools Protocol.
type BrowserHost struct {
	conn   Conn
	logger *slog.Logger
	events chan Event

	mu          sync.Mutex
	mainFrameID string
}

var _ Host = (*BrowserHost)(nil)

// NewBrowserHost active les domaines Runtime/Page, installe le binding du
// bouton et démarre la traduction des événements CDP.
func NewBrowserHost(ctx context.Context, conn Conn, logger *slog.Logger) (*BrowserHost, error) {
	h := &BrowserHost{
		conn:   conn,
		logger: logging.Component(logger, "page"),
		events: make(chan Event, 32),
	}

	for _, method := range []string{"Runtime.enable", "Page.enable"} {
		if err := conn.Call(ctx, method, nil, nil); err != nil {
			return nil, fmt.Errorf("browser host: %w", err)
		}
	}
	if err := conn.Call(ctx, "Runtime.addBinding", map[string]any{"name": toggleBinding}, nil); err != nil {
		return nil, fmt.Errorf("browser host: add binding: %w", err)
	}

	var tree struct {
		FrameTree struct {
			Frame struct {
				ID string `json:"id"`
			} `json:"frame"`
		} `json:"frameTree"`
	}
	if err := conn.Call(ctx, "Page.getFrameTree", nil, &tree); err != nil {
		return nil, fmt.Errorf("browser host: frame tree: %w", err)
	}
	h.mainFrameID = tree.FrameTree.Frame.ID

	go h.pump()
	return h, nil
}

// pump traduit les événements CDP ; Events() est fermé avec la connexion.
// Sans lecteur, un buffer plein fait perdre l'événement plutôt que bloquer.
func (h *BrowserHost) pump() {
	defer close(h.events)
	for ev := range h.conn.Events() {
		out, ok := h.translate(ev)
		if !ok {
			continue
		}
		select {
		case h.events <- out:
		default:
			h.logger.Debug("page event dropped, buffer full", slog.String("method", ev.Method))
		}
	}
}

func (h *BrowserHost) translate(ev devtools.Event) (Event, bool) {
	switch ev.Method {
	case "Page.frameNavigated":
		var p struct {
			Frame struct {
				ID       string `json:"id"`
				ParentID string `json:"parentId"`
				URL      string `json:"url"`
			} `json:"frame"`
		}
		if err := json.Unmarshal(ev.Params, &p); err != nil || p.Frame.ParentID != "" {
			return Event{}, false
		}
		h.mu.Lock()
		h.mainFrameID = p.Frame.ID
		h.mu.Unlock()
		return Event{Kind: EventNavigation, URL: p.Frame.URL}, true

	case "Page.navigatedWithinDocument":
		var p struct {
			FrameID string `json:"frameId"`
			URL     string `json:"url"`
		}
		if err := json.Unmarshal(ev.Params, &p); err != nil {
			return Event{}, false
		}
		h.mu.Lock()
		main := h.mainFrameID
		h.mu.Unlock()
		if main != "" && p.FrameID != main {
			return Event{}, false
		}
		return Event{Kind: EventNavigation, URL: p.URL}, true

	case "Runtime.bindingCalled":
		var p struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(ev.Params, &p); err != nil || p.Name != toggleBinding {
			return Event{}, false
		}
		return Event{Kind: EventToggleClicked}, true
	}
	return Event{}, false
}

func (h *BrowserHost) Events() <-chan Event { return h.events }

// evalResult : réponse de Runtime.evaluate avec returnByValue.
type evalResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

// eval évalue expr dans la page et décode la valeur dans out (si non nil).
// Une valeur undefined/null laisse out inchangé.
func (h *BrowserHost) eval(ctx context.Context, expr string, out any) error {
	var res evalResult
	err := h.conn.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expr,
		"returnByValue": true,
	}, &res)
	if err != nil {
		return err
	}
	if d := res.ExceptionDetails; d != nil {
		msg := d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			msg = d.Exception.Description
		}
		return fmt.Errorf("evaluate: %s", msg)
	}
	if out == nil || len(res.Result.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Result.Value, out)
}

func (h *BrowserHost) Snapshot(ctx context.Context) (Snapshot, error) {
	var raw struct {
		URL        string                     `json:"url"`
		HasVideo   bool                       `json:"hasVideo"`
		Globals    map[string]json.RawMessage `json:"globals"`
		ConfigArgs string                     `json:"configArgs"`
		Scripts    []string                   `json:"scripts"`
	}
	if err := h.eval(ctx, snapshotScript, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	globals := make(map[string]json.RawMessage, len(raw.Globals))
	for k, v := range raw.Globals {
		if len(v) == 0 || string(v) == "null" {
			continue
		}
		globals[k] = v
	}
	return Snapshot{
		URL:        raw.URL,
		HasVideo:   raw.HasVideo,
		Globals:    globals,
		ConfigArgs: raw.ConfigArgs,
		Scripts:    raw.Scripts,
	}, nil
}

func (h *BrowserHost) URL(ctx context.Context) (string, error) {
	var u string
	if err := h.eval(ctx, "location.href", &u); err != nil {
		return "", fmt.Errorf("url: %w", err)
	}
	return u, nil
}

// CurrentTime : ErrDetached si la vidéo ou la zone de sous-titres a disparu.
func (h *BrowserHost) CurrentTime(ctx context.Context) (float64, error) {
	var t *float64
	if err := h.eval(ctx, currentTimeScript, &t); err != nil {
		return 0, fmt.Errorf("current time: %w", err)
	}
	if t == nil {
		return 0, ErrDetached
	}
	return *t, nil
}

func (h *BrowserHost) NativeCaption(ctx context.Context) (string, error) {
	var s string
	if err := h.eval(ctx, nativeCaptionScript, &s); err != nil {
		return "", fmt.Errorf("native caption: %w", err)
	}
	return s, nil
}

func (h *BrowserHost) SetText(ctx context.Context, text string) error {
	var ok bool
	if err := h.eval(ctx, setTextScript(text), &ok); err != nil {
		return fmt.Errorf("set text: %w", err)
	}
	if !ok {
		return ErrDetached
	}
	return nil
}

func (h *BrowserHost) EnsureOverlay(ctx context.Context, visible bool) error {
	return h.exec(ctx, "ensure overlay", ensureOverlayScript(visible))
}

func (h *BrowserHost) SetOverlayVisible(ctx context.Context, visible bool) error {
	return h.exec(ctx, "overlay visibility", overlayVisibleScript(visible))
}

func (h *BrowserHost) EnsureToggle(ctx context.Context, enabled bool) error {
	return h.exec(ctx, "ensure toggle", ensureToggleScript(enabled))
}

func (h *BrowserHost) RemoveToggle(ctx context.Context) error {
	return h.exec(ctx, "remove toggle", removeToggleScript)
}

func (h *BrowserHost) Reload(ctx context.Context) error {
	if err := h.conn.Call(ctx, "Page.reload", map[string]any{"ignoreCache": false}, nil); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

func (h *BrowserHost) exec(ctx context.Context, what, script string) error {
	if err := h.eval(ctx, script, nil); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

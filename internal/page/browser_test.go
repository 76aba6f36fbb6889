package page

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/patrickprogramme/captionsync/internal/devtools"
)

// fakeConn simule un onglet : evaluate renvoie une valeur choisie selon
// le contenu de l'expression.
type fakeConn struct {
	mu       sync.Mutex
	calls    []string
	exprs    []string
	events   chan devtools.Event
	evaluate func(expr string) any
}

func newFakeConn(eval func(expr string) any) *fakeConn {
	return &fakeConn{events: make(chan devtools.Event, 8), evaluate: eval}
}

func (f *fakeConn) Events() <-chan devtools.Event { return f.events }

func (f *fakeConn) Call(_ context.Context, method string, params, result any) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()

	var payload any
	switch method {
	case "Page.getFrameTree":
		payload = map[string]any{"frameTree": map[string]any{"frame": map[string]any{"id": "main"}}}
	case "Runtime.evaluate":
		expr := params.(map[string]any)["expression"].(string)
		f.mu.Lock()
		f.exprs = append(f.exprs, expr)
		f.mu.Unlock()
		payload = map[string]any{"result": map[string]any{"type": "object", "value": f.evaluate(expr)}}
	default:
		return nil
	}
	if result == nil {
		return nil
	}
	b, _ := json.Marshal(payload)
	return json.Unmarshal(b, result)
}

func TestBrowserHostEvaluations(t *testing.T) {
	detached := false
	conn := newFakeConn(func(expr string) any {
		switch {
		case strings.Contains(expr, "hasVideo"):
			return map[string]any{
				"url":        "https://www.youtube.com/watch?v=a",
				"hasVideo":   true,
				"globals":    map[string]any{"ytInitialPlayerResponse": map[string]any{"videoDetails": map[string]any{}}, "__PLAYER_RESPONSE__": nil},
				"configArgs": "",
				"scripts":    []string{"var ytInitialPlayerResponse = {};"},
			}
		case strings.Contains(expr, "currentTime"):
			if detached {
				return nil
			}
			return 12.5
		case strings.Contains(expr, "innerText = t"):
			return !detached
		case strings.Contains(expr, NativeCaptionSelector):
			return "native"
		case expr == "location.href":
			return "https://www.youtube.com/watch?v=a"
		}
		return true
	})

	ctx := context.Background()
	h, err := NewBrowserHost(ctx, conn, nil)
	if err != nil {
		t.Fatalf("NewBrowserHost: %v", err)
	}
	if got := strings.Join(conn.calls[:4], ","); got != "Runtime.enable,Page.enable,Runtime.addBinding,Page.getFrameTree" {
		t.Errorf("setup calls = %s", got)
	}

	snap, err := h.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.HasVideo || len(snap.Scripts) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, ok := snap.Globals[GlobalInitialPlayerResponse]; !ok {
		t.Error("missing ytInitialPlayerResponse global")
	}
	if _, ok := snap.Globals[GlobalPlayerResponse]; ok {
		t.Error("null global should be dropped")
	}

	if tm, err := h.CurrentTime(ctx); err != nil || tm != 12.5 {
		t.Errorf("CurrentTime = %v, %v", tm, err)
	}
	if s, _ := h.NativeCaption(ctx); s != "native" {
		t.Errorf("NativeCaption = %q", s)
	}
	if u, _ := h.URL(ctx); u != "https://www.youtube.com/watch?v=a" {
		t.Errorf("URL = %q", u)
	}
	if err := h.SetText(ctx, `say "hi"`); err != nil {
		t.Errorf("SetText: %v", err)
	}
	if err := h.EnsureToggle(ctx, true); err != nil {
		t.Errorf("EnsureToggle: %v", err)
	}
	last := conn.exprs[len(conn.exprs)-1]
	if !strings.Contains(last, `"Captions: ON"`) || !strings.Contains(last, `"#FFD700"`) {
		t.Errorf("toggle script missing label/color: %s", last)
	}

	detached = true
	if _, err := h.CurrentTime(ctx); !errors.Is(err, ErrDetached) {
		t.Errorf("CurrentTime detached: err = %v", err)
	}
	if err := h.SetText(ctx, "x"); !errors.Is(err, ErrDetached) {
		t.Errorf("SetText detached: err = %v", err)
	}
}

func TestBrowserHostEvents(t *testing.T) {
	conn := newFakeConn(func(string) any { return true })
	h, err := NewBrowserHost(context.Background(), conn, nil)
	if err != nil {
		t.Fatal(err)
	}

	conn.events <- devtools.Event{Method: "Page.navigatedWithinDocument", Params: json.RawMessage(`{"frameId":"iframe","url":"https://ads.example/"}`)}
	conn.events <- devtools.Event{Method: "Page.navigatedWithinDocument", Params: json.RawMessage(`{"frameId":"main","url":"https://www.youtube.com/watch?v=b"}`)}
	conn.events <- devtools.Event{Method: "Runtime.bindingCalled", Params: json.RawMessage(`{"name":"other","payload":""}`)}
	conn.events <- devtools.Event{Method: "Runtime.bindingCalled", Params: json.RawMessage(`{"name":"` + toggleBinding + `","payload":"click"}`)}
	conn.events <- devtools.Event{Method: "Page.frameNavigated", Params: json.RawMessage(`{"frame":{"id":"main2","url":"https://www.youtube.com/watch?v=c"}}`)}
	close(conn.events)

	var got []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				if len(got) != 3 {
					t.Fatalf("got %d events, want 3: %+v", len(got), got)
				}
				if got[0].Kind != EventNavigation || got[0].URL != "https://www.youtube.com/watch?v=b" {
					t.Errorf("event 0 = %+v", got[0])
				}
				if got[1].Kind != EventToggleClicked {
					t.Errorf("event 1 = %+v", got[1])
				}
				if got[2].Kind != EventNavigation || got[2].URL != "https://www.youtube.com/watch?v=c" {
					t.Errorf("event 2 = %+v", got[2])
				}
				return
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("events channel not closed")
		}
	}
}

func TestBrowserHostEventsDropWhenUnread(t *testing.T) {
	conn := &fakeConn{events: make(chan devtools.Event, 64), evaluate: func(string) any { return true }}
	h, err := NewBrowserHost(context.Background(), conn, nil)
	if err != nil {
		t.Fatal(err)
	}

	click := devtools.Event{Method: "Runtime.bindingCalled", Params: json.RawMessage(`{"name":"` + toggleBinding + `","payload":"click"}`)}
	for i := 0; i < 50; i++ {
		conn.events <- click
	}
	close(conn.events)

	// personne ne lit : pump doit quand même consommer la connexion et fermer
	deadline := time.Now().Add(2 * time.Second)
	for len(conn.events) > 0 || len(h.events) < cap(h.events) {
		if time.Now().After(deadline) {
			t.Fatalf("pump stuck: %d pending, %d buffered", len(conn.events), len(h.events))
		}
		time.Sleep(time.Millisecond)
	}

	got := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-h.Events():
			if !ok {
				if got == 0 || got >= 50 {
					t.Errorf("received %d events; want a full buffer, not all 50", got)
				}
				return
			}
			got++
		case <-timeout:
			t.Fatal("events channel not closed")
		}
	}
}

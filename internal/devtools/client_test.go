package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/patrickprogramme/captionsync/internal/fetch"
)

// fakeBrowser répond à chaque appel par {"echo": method} et émet un événement
// avant la réponse à "Page.reload". "Fail.me" renvoie une erreur CDP,
// "Browser.close" ferme la connexion sans répondre.
func fakeBrowser(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var req struct {
				ID     int64  `json:"id"`
				Method string `json:"method"`
			}
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}

			if req.Method == "Browser.close" {
				_ = conn.Close(websocket.StatusGoingAway, "bye")
				return
			}
			if req.Method == "Page.reload" {
				ev := `{"method":"Page.frameNavigated","params":{"frame":{"url":"https://www.youtube.com/watch?v=b"}}}`
				if err := conn.Write(ctx, websocket.MessageText, []byte(ev)); err != nil {
					return
				}
			}

			var resp map[string]any
			if req.Method == "Fail.me" {
				resp = map[string]any{"id": req.ID, "error": map[string]any{"code": -32000, "message": "nope"}}
			} else {
				resp = map[string]any{"id": req.ID, "result": map[string]any{"echo": req.Method}}
			}
			out, _ := json.Marshal(resp)
			if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
				return
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestClientCallAndEvents(t *testing.T) {
	srv := fakeBrowser(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	var res struct {
		Echo string `json:"echo"`
	}
	if err := c.Call(ctx, "Runtime.enable", nil, &res); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Echo != "Runtime.enable" {
		t.Errorf("echo = %q", res.Echo)
	}

	if err := c.Call(ctx, "Page.reload", map[string]any{"ignoreCache": false}, nil); err != nil {
		t.Fatalf("Call reload: %v", err)
	}
	select {
	case ev := <-c.Events():
		if ev.Method != "Page.frameNavigated" {
			t.Errorf("event method = %q", ev.Method)
		}
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	err = c.Call(ctx, "Fail.me", nil, nil)
	var cdpErr *Error
	if !errors.As(err, &cdpErr) || cdpErr.Code != -32000 {
		t.Errorf("err = %v, want devtools error -32000", err)
	}
}

func TestClientClosedConnection(t *testing.T) {
	srv := fakeBrowser(t)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := c.Call(ctx, "Browser.close", nil, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Browser.close err = %v, want ErrClosed", err)
	}

	select {
	case <-c.Done():
	case <-ctx.Done():
		t.Fatal("client did not notice closed connection")
	}
	if err := c.Call(ctx, "Runtime.enable", nil, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	_ = c.Close()
}

func TestListTargetsAndFindPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":"1","type":"service_worker","url":"https://www.youtube.com/sw.js","webSocketDebuggerUrl":"ws://x/1"},
			{"id":"2","type":"page","url":"https://example.com/","webSocketDebuggerUrl":"ws://x/2"},
			{"id":"3","type":"page","url":"https://www.youtube.com/watch?v=a","webSocketDebuggerUrl":"ws://x/3"}
		]`))
	}))
	defer srv.Close()

	targets, err := ListTargets(context.Background(), srv.URL+"/", fetch.Options{Client: srv.Client()})
	if err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("got %d targets", len(targets))
	}

	if p, ok := FindPage(targets, "youtube.com"); !ok || p.ID != "3" {
		t.Errorf("FindPage(youtube) = %+v, %v", p, ok)
	}
	if p, ok := FindPage(targets, ""); !ok || p.ID != "2" {
		t.Errorf("FindPage(\"\") = %+v, %v", p, ok)
	}
	if _, ok := FindPage(targets, "vimeo"); ok {
		t.Error("unexpected match")
	}
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/patrickprogramme/captionsync/internal/prefs"
)

func newTestServer(t *testing.T) (*httptest.Server, *prefs.Memory) {
	t.Helper()
	store := prefs.NewMemory(prefs.Defaults())
	static := fstest.MapFS{"index.html": {Data: []byte("<html>popup</html>")}}
	ts := httptest.NewServer(New(store, static, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doRequest(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("cache-control = %q", got)
	}
}

func TestGetPreferences(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/preferences", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["enabled"] != true || body["language"] != "en" || body["hideButton"] != false || body["forceRefresh"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestPatchPreferences(t *testing.T) {
	ts, store := newTestServer(t)

	var notified prefs.Changes
	store.Subscribe(func(_ string, ch prefs.Changes) { notified = ch })

	resp, body := doRequest(t, http.MethodPatch, ts.URL+"/api/v1/preferences", `{"language":"fr","enabled":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%v", resp.StatusCode, body)
	}
	if body["language"] != "fr" || body["enabled"] != false {
		t.Errorf("body = %v", body)
	}
	if len(notified) != 2 {
		t.Errorf("notified = %v", notified)
	}
	p, _ := store.Get(context.Background())
	if p.Language != "fr" || p.Enabled {
		t.Errorf("store = %+v", p)
	}
}

func TestPatchPreferencesRejects(t *testing.T) {
	ts, _ := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"not json", `language=fr`},
		{"unknown key", `{"volume": 3}`},
		{"empty", `{}`},
		{"empty language", `{"language": " "}`},
		{"wrong type", `{"enabled": "yes"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, http.MethodPatch, ts.URL+"/api/v1/preferences", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d; want 400", resp.StatusCode)
			}
			if body["error"] == nil {
				t.Errorf("missing error message: %v", body)
			}
		})
	}
}

func TestServesPopupPage(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), "popup") {
		t.Errorf("GET / = %d %q", resp.StatusCode, buf.String())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	store := prefs.NewMemory(prefs.Defaults())
	s := New(store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run after cancel: %v", err)
	}
}

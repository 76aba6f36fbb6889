package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/patrickprogramme/captionsync/internal/navigation"
	"github.com/patrickprogramme/captionsync/internal/page"
	"github.com/patrickprogramme/captionsync/internal/player"
	"github.com/patrickprogramme/captionsync/internal/prefs"
	"github.com/patrickprogramme/captionsync/internal/syncer"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

const (
	urlA = "https://www.youtube.com/watch?v=aaaaaaaaaaa"
	urlB = "https://www.youtube.com/watch?v=bbbbbbbbbbb"
)

// watchPage construit une page de lecture avec une piste pointant sur trackURL.
func watchPage(videoID, trackURL, native string) string {
	return fmt.Sprintf(`<html><body><video></video>
<div class="ytp-caption-window"><span class="ytp-caption-segment">%s</span></div>
<script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":%q,"title":"Demo"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":%q,"languageCode":"en","name":{"simpleText":"English"}}]}}};</script>
</body></html>`, native, videoID, trackURL)
}

func srt(text string) string {
	return "1\n00:00:01,000 --> 00:00:02,000\n" + text + "\n"
}

type fixture struct {
	srv   *httptest.Server
	host  *page.StaticHost
	store *prefs.Memory
	ctl   *Controller

	mu       sync.Mutex
	requests int
}

func newFixture(t *testing.T, p prefs.Preferences, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.srv.Close)

	pages := map[string]string{
		urlA: watchPage("aaaaaaaaaaa", f.srv.URL+"/a", "native A"),
		urlB: watchPage("bbbbbbbbbbb", f.srv.URL+"/b", "native B"),
	}
	clock := page.NewPlaybackClock(1.5)
	clock.TogglePause()

	host, err := page.NewStaticHost(context.Background(), urlA, page.StaticOptions{
		Loader: func(_ context.Context, u string) ([]byte, error) {
			return []byte(pages[u]), nil
		},
		Clock: clock,
	})
	if err != nil {
		t.Fatalf("NewStaticHost: %v", err)
	}
	f.host = host
	f.store = prefs.NewMemory(p)
	f.ctl = New(host, f.store, Options{
		StartupDelay: time.Millisecond,
		SettleDelay:  time.Millisecond,
		SyncInterval: time.Millisecond,
		Locate:       player.Options{Interval: time.Millisecond, MaxAttempts: 20},
	})
	t.Cleanup(func() { _ = f.ctl.Close() })
	return f
}

func serveSRT(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("fmt") != "json3" {
		http.Error(w, "missing fmt", http.StatusBadRequest)
		return
	}
	fmt.Fprint(w, srt("hello "+strings.TrimPrefix(r.URL.Path, "/")))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartStructuredSync(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), serveSRT)
	if err := f.ctl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "structured caption", func() bool { return f.host.Text() == "hello a" })
	if got := f.ctl.State(); got != syncer.SyncingStructured {
		t.Errorf("state = %v; want syncing_structured", got)
	}
	if !f.host.HasToggle() || !f.host.Visible() {
		t.Errorf("toggle=%v visible=%v; want both", f.host.HasToggle(), f.host.Visible())
	}
	if f.ctl.SessionID() == "" {
		t.Error("empty session id")
	}
}

func TestFetchFailureFallsBackToNativeCaptions(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	if err := f.ctl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "fallback caption", func() bool { return f.host.Text() == "native A" })
	if got := f.ctl.State(); got != syncer.SyncingFallback {
		t.Errorf("state = %v; want syncing_fallback", got)
	}
}

func TestDisabledSessionDoesNotAcquire(t *testing.T) {
	p := prefs.Defaults()
	p.Enabled = false
	f := newFixture(t, p, serveSRT)
	if err := f.ctl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "first pipeline", func() bool { return f.ctl.Generation() == 1 })
	time.Sleep(20 * time.Millisecond)
	if f.host.Visible() {
		t.Error("overlay visible while disabled")
	}
	if got := f.ctl.State(); got != syncer.Idle {
		t.Errorf("state = %v; want idle", got)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requests != 0 {
		t.Errorf("captions fetched while disabled")
	}
}

func TestToggleFlipsAndPersists(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), serveSRT)
	ctx := context.Background()
	if err := f.ctl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "structured caption", func() bool { return f.host.Text() == "hello a" })

	if err := f.ctl.Toggle(ctx); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if f.host.Visible() {
		t.Error("overlay still visible after toggle off")
	}
	stored, _ := f.store.Get(ctx)
	if stored.Enabled {
		t.Error("enabled=false not persisted")
	}

	if err := f.ctl.Toggle(ctx); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !f.host.Visible() || !f.ctl.Preferences().Enabled {
		t.Error("toggle on did not restore the overlay")
	}
}

func TestToggleEventFromHost(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), serveSRT)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.ctl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	go func() { _ = f.ctl.Run(ctx) }()
	waitFor(t, "toggle button", f.host.HasToggle)

	if err := f.host.ClickToggle(ctx); err != nil {
		t.Fatalf("ClickToggle: %v", err)
	}
	waitFor(t, "disabled preference", func() bool {
		p, _ := f.store.Get(ctx)
		return !p.Enabled
	})
}

func TestPreferenceChanges(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), serveSRT)
	ctx := context.Background()
	if err := f.ctl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "structured caption", func() bool { return f.host.Text() == "hello a" })
	gen := f.ctl.Generation()

	hide := true
	if err := f.store.Set(ctx, prefs.Update{HideButton: &hide}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if f.host.HasToggle() {
		t.Error("toggle not removed")
	}

	lang := "fr"
	if err := f.store.Set(ctx, prefs.Update{Language: &lang}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := f.ctl.Generation(); got != gen+1 {
		t.Errorf("generation = %d; language change should restart (want %d)", got, gen+1)
	}
	// pas de piste fr : repli sur la première piste
	waitFor(t, "restarted sync", func() bool { return f.ctl.State() == syncer.SyncingStructured })

	force := false
	if err := f.store.Set(ctx, prefs.Update{ForceRefresh: &force}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if f.ctl.watcher.ForceRefresh() {
		t.Error("forceRefresh not forwarded to the watcher")
	}

	// autre namespace ignoré
	f.ctl.HandlePreferenceChange("local", prefs.Changes{prefs.KeyHideButton: {Old: true, New: false}})
	if f.host.HasToggle() {
		t.Error("change from another namespace applied")
	}
}

// trois blocs valides, un bloc sans ligne "-->" au milieu
const threeCuesOneBroken = `1
00:00:01,000 --> 00:00:02,000
one

2
00:00:03,000 --> 00:00:04,000
two

3
not a time line
broken

4
00:00:05,000 --> 00:00:06,000
three
`

func TestEnabledSessionShowsEachCueInItsWindow(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, threeCuesOneBroken)
	})
	clock := f.host.Clock()
	clock.Seek(1.5)
	if err := f.ctl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "first cue", func() bool { return f.host.Text() == "one" })
	if got := f.ctl.State(); got != syncer.SyncingStructured {
		t.Fatalf("state = %v; want syncing_structured", got)
	}

	steps := []struct {
		at   float64
		want string
	}{
		{0.5, ""},
		{1.5, "one"},
		{2.5, ""},
		{3.5, "two"},
		{4.5, ""},
		{5.5, "three"},
		{7, ""},
	}
	for _, s := range steps {
		clock.Seek(s.at)
		waitFor(t, fmt.Sprintf("text %q at %v", s.want, s.at), func() bool { return f.host.Text() == s.want })
	}
}

func TestNavigationToNewVideoReloads(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), serveSRT)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.ctl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "structured caption", func() bool { return f.host.Text() == "hello a" })

	if err := f.host.Navigate(ctx, urlB); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := f.ctl.Observe(ctx, urlB); got != navigation.Reloaded {
		t.Fatalf("Observe = %v; want reloaded", got)
	}
	waitFor(t, "captions of the new video", func() bool { return f.host.Text() == "hello b" })
}

func TestNavigationResyncWithoutForceRefresh(t *testing.T) {
	p := prefs.Defaults()
	p.ForceRefresh = false
	f := newFixture(t, p, serveSRT)
	ctx := context.Background()
	if err := f.ctl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "structured caption", func() bool { return f.host.Text() == "hello a" })

	if err := f.host.Navigate(ctx, urlB); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := f.ctl.Observe(ctx, urlB); got != navigation.Resyncing {
		t.Fatalf("Observe = %v; want resyncing", got)
	}
	waitFor(t, "captions of the new video", func() bool { return f.host.Text() == "hello b" })
}

func TestStaleResultsAreDropped(t *testing.T) {
	p := prefs.Defaults()
	p.Enabled = false
	f := newFixture(t, p, serveSRT)
	ctx := context.Background()
	if err := f.ctl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "first pipeline", func() bool { return f.ctl.Generation() == 1 })

	stale := f.ctl.Generation() - 1
	f.ctl.startStructured(ctx, stale, []model.Cue{{Start: 0, End: 10, Text: "stale"}})
	f.ctl.startFallback(ctx, stale)
	if !f.ctl.transition(f.ctl.Generation(), syncer.Resolving) {
		t.Error("current generation rejected")
	}
	if f.ctl.transition(stale, syncer.Fetching) {
		t.Error("stale generation accepted")
	}
	if got := f.ctl.State(); got != syncer.Resolving {
		t.Errorf("state = %v; stale results must not change it", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), serveSRT)
	if err := f.ctl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.ctl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.ctl.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := f.ctl.Start(context.Background()); err == nil {
		t.Error("Start after Close should fail")
	}
	// le pipeline planifié ne doit plus tourner
	time.Sleep(20 * time.Millisecond)
	if f.ctl.State() != syncer.Idle {
		t.Errorf("state = %v after Close", f.ctl.State())
	}
}

func TestRunPipelineRestartsAcquisition(t *testing.T) {
	f := newFixture(t, prefs.Defaults(), serveSRT)
	ctx := context.Background()
	if err := f.ctl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "structured caption", func() bool { return f.host.Text() == "hello a" })
	before := f.ctl.Generation()

	if err := f.ctl.RunPipeline(ctx); err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	if got := f.ctl.Generation(); got != before+1 {
		t.Errorf("generation = %d; want %d", got, before+1)
	}
	waitFor(t, "second acquisition", func() bool { return f.ctl.State() == syncer.SyncingStructured })
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requests < 2 {
		t.Errorf("requests = %d; want a new caption download", f.requests)
	}
}

package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestDefaults(t *testing.T) {
	d := Defaults()
	if !d.Enabled || d.Language != "en" || d.HideButton || !d.ForceRefresh {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		in      string
		want    Preferences
		wantErr bool
	}{
		{in: "language=fr", want: Preferences{Enabled: true, Language: "fr", ForceRefresh: true}},
		{in: "enabled=off", want: Preferences{Enabled: false, Language: "en", ForceRefresh: true}},
		{in: "hideButton=true", want: Preferences{Enabled: true, Language: "en", HideButton: true, ForceRefresh: true}},
		{in: "forceRefresh=0", want: Preferences{Enabled: true, Language: "en"}},
		{in: "language=", wantErr: true},
		{in: "enabled=maybe", wantErr: true},
		{in: "volume=3", wantErr: true},
		{in: "enabled", wantErr: true},
	}
	for _, tc := range tests {
		u, err := ParseUpdate(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("ParseUpdate(%q) err = %v; want ErrInvalid", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUpdate(%q): %v", tc.in, err)
			continue
		}
		if got := u.Apply(Defaults()); got != tc.want {
			t.Errorf("ParseUpdate(%q).Apply = %+v; want %+v", tc.in, got, tc.want)
		}
	}
}

func TestDiff(t *testing.T) {
	old := Defaults()
	cur := old
	cur.Language = "de"
	cur.Enabled = false

	ch := Diff(old, cur)
	if len(ch) != 2 {
		t.Fatalf("Diff = %v; want 2 keys", ch)
	}
	if ch[KeyLanguage].Old != "en" || ch[KeyLanguage].New != "de" {
		t.Errorf("language change = %+v", ch[KeyLanguage])
	}
	if ch[KeyEnabled].New != false {
		t.Errorf("enabled change = %+v", ch[KeyEnabled])
	}
}

// storeContract vérifie le comportement commun aux deux backends.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("initial Get = %+v; want defaults", got)
	}

	var received []Changes
	unsubscribe := s.Subscribe(func(ns string, ch Changes) {
		if ns != Namespace {
			t.Errorf("namespace = %q", ns)
		}
		received = append(received, ch)
	})

	if err := s.Set(ctx, Update{Language: ptr("fr"), Enabled: ptr(true)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(received) != 1 || len(received[0]) != 1 {
		t.Fatalf("notifications = %v; want one with only language", received)
	}
	if c := received[0][KeyLanguage]; c.Old != "en" || c.New != "fr" {
		t.Errorf("language change = %+v", c)
	}

	// aucune différence -> pas de notification
	if err := s.Set(ctx, Update{Language: ptr("fr")}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(received) != 1 {
		t.Errorf("notified on no-op Set")
	}

	if err := s.Set(ctx, Update{Language: ptr("  ")}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Set empty language err = %v", err)
	}

	unsubscribe()
	if err := s.Set(ctx, Update{HideButton: ptr(true)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(received) != 1 {
		t.Errorf("notified after unsubscribe")
	}

	got, err = s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := Preferences{Enabled: true, Language: "fr", HideButton: true, ForceRefresh: true}
	if got != want {
		t.Errorf("Get = %+v; want %+v", got, want)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemory(Defaults()))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "prefs.db")
	s, err := OpenSQLite(path, Defaults())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	storeContract(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// persistance après réouverture
	s2, err := OpenSQLite(path, Defaults())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Language != "fr" || !got.HideButton {
		t.Errorf("reopened prefs = %+v", got)
	}
}

func TestSQLiteIgnoresCorruptValue(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "prefs.db"), Defaults())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if _, err := s.db.Exec(
		"INSERT INTO preferences (namespace, key, value) VALUES (?, ?, ?)",
		Namespace, KeyEnabled, "not-json",
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Enabled {
		t.Errorf("corrupt value should fall back to default")
	}
}

func TestSQLiteWatchSeesOtherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	session, err := OpenSQLite(path, Defaults())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer session.Close()
	cli, err := OpenSQLite(path, Defaults())
	if err != nil {
		t.Fatalf("OpenSQLite second handle: %v", err)
	}
	defer cli.Close()

	got := make(chan Changes, 8)
	defer session.Subscribe(func(_ string, ch Changes) { got <- ch })()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Watch(ctx, 5*time.Millisecond) }()

	// Watch doit avoir pris son état de référence avant l'écriture
	deadline := time.Now().Add(2 * time.Second)
	for {
		session.mu.Lock()
		ready := session.seen != nil
		session.mu.Unlock()
		if ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watch did not start")
		}
		time.Sleep(time.Millisecond)
	}

	if err := cli.Set(context.Background(), Update{Language: ptr("de")}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	select {
	case ch := <-got:
		c, ok := ch[KeyLanguage]
		if !ok || c.Old != "en" || c.New != "de" || len(ch) != 1 {
			t.Errorf("changes = %+v", ch)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("external change not notified")
	}

	// une écriture locale n'est notifiée qu'une fois
	if err := session.Set(context.Background(), Update{HideButton: ptr(true)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	<-got
	select {
	case ch := <-got:
		t.Errorf("duplicate notification: %+v", ch)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch = %v; want context.Canceled", err)
	}
}

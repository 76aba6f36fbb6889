package yt

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

func tracksOf(codes ...string) []model.CaptionTrack {
	out := make([]model.CaptionTrack, 0, len(codes))
	for _, c := range codes {
		out = append(out, model.CaptionTrack{LanguageCode: c, BaseURL: "https://example.test/api/timedtext?lang=" + c})
	}
	return out
}

func TestSelectTrack(t *testing.T) {
	tests := []struct {
		name   string
		tracks []model.CaptionTrack
		pref   string
		want   string
		wantOK bool
	}{
		{name: "exact match", tracks: tracksOf("en", "fr"), pref: "fr", want: "fr", wantOK: true},
		{name: "prefix match", tracks: tracksOf("en", "pt-BR"), pref: "pt", want: "pt-BR", wantOK: true},
		{name: "exact beats prefix", tracks: tracksOf("fr-CA", "fr"), pref: "fr", want: "fr", wantOK: true},
		{name: "auto picks english variant", tracks: tracksOf("de", "en-US"), pref: "auto", want: "en-US", wantOK: true},
		{name: "en falls back to en-GB", tracks: tracksOf("de", "en-GB"), pref: "en", want: "en-GB", wantOK: true},
		{name: "unmatched non english takes first", tracks: tracksOf("de", "en"), pref: "ja", want: "de", wantOK: true},
		{name: "auto without english takes first", tracks: tracksOf("de", "it"), pref: "auto", want: "de", wantOK: true},
		{name: "canonicalized pref", tracks: tracksOf("en", "en-US"), pref: "en_us", want: "en-US", wantOK: true},
		{name: "legacy hebrew code", tracks: tracksOf("en", "iw", "in", "fil"), pref: "iw", want: "iw", wantOK: true},
		{name: "legacy indonesian code", tracks: tracksOf("en", "iw", "in", "fil"), pref: "in", want: "in", wantOK: true},
		{name: "modern code finds modern track", tracks: tracksOf("en", "he"), pref: "iw", want: "he", wantOK: true},
		{name: "padded pref", tracks: tracksOf("en", "fr"), pref: " fr ", want: "fr", wantOK: true},
		{name: "no tracks", tracks: nil, pref: "en", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SelectTrack(tc.tracks, tc.pref)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v; want %v", ok, tc.wantOK)
			}
			if ok && got.LanguageCode != tc.want {
				t.Errorf("SelectTrack = %q; want %q", got.LanguageCode, tc.want)
			}
		})
	}
}

func TestWithJSON3Format(t *testing.T) {
	got := WithJSON3Format("https://example.test/api/timedtext?v=abc&lang=en")
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if f := u.Query().Get("fmt"); f != "json3" {
		t.Errorf("fmt = %q; want json3 (url %s)", f, got)
	}
	if u.Query().Get("v") != "abc" || u.Query().Get("lang") != "en" {
		t.Errorf("existing params lost: %s", got)
	}

	signed := "https://example.test/api/timedtext?v=abc&sparams=ip,ipbits&signature=A.B&lang=en"
	if got := WithJSON3Format(signed); got != signed+"&fmt=json3" {
		t.Errorf("signed url rewritten: %s", got)
	}
	if got := WithJSON3Format("https://example.test/api/timedtext"); got != "https://example.test/api/timedtext?fmt=json3" {
		t.Errorf("bare url = %s", got)
	}

	keep := "https://example.test/api/timedtext?v=abc&fmt=srv3"
	if got := WithJSON3Format(keep); got != keep {
		t.Errorf("existing fmt rewritten: %s", got)
	}
	if got := WithJSON3Format(""); got != "" {
		t.Errorf("empty url = %q", got)
	}
}

func TestResolveTrackURL(t *testing.T) {
	raw := json.RawMessage(`{
		"videoDetails": {"videoId": "abc", "title": "T", "lengthSeconds": "61"},
		"captions": {"playerCaptionsTracklistRenderer": {"captionTracks": [
			{"baseUrl": "https://example.test/tt?lang=de", "languageCode": "de"},
			{"baseUrl": "https://example.test/tt?lang=en-US", "languageCode": "en-US", "kind": "asr"}
		]}}
	}`)
	got, ok := ResolveTrackURL(raw, "auto")
	if !ok {
		t.Fatal("ResolveTrackURL returned false")
	}
	u, _ := url.Parse(got)
	if u.Query().Get("lang") != "en-US" || u.Query().Get("fmt") != "json3" {
		t.Errorf("ResolveTrackURL = %s", got)
	}

	if _, ok := ResolveTrackURL(json.RawMessage(`{"videoDetails": {}}`), "en"); ok {
		t.Error("expected false without tracks")
	}
	if _, ok := ResolveTrackURL(json.RawMessage(`not json`), "en"); ok {
		t.Error("expected false for invalid json")
	}
}

func TestCanonicalLanguage(t *testing.T) {
	tests := map[string]string{
		"en_us": "en-US",
		"FR":    "fr",
		"auto":  "auto",
		"AUTO":  "auto",
		"":      "",
		"???":   "???",
	}
	for in, want := range tests {
		if got := CanonicalLanguage(in); got != want {
			t.Errorf("CanonicalLanguage(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("fr"); got != "French" {
		t.Errorf("DisplayName(fr) = %q", got)
	}
	if got := DisplayName("???"); got != "???" {
		t.Errorf("DisplayName(???) = %q", got)
	}
}

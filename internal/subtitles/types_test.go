package subtitles

import (
	"strings"
	"testing"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

func TestCaptionDownload_Filename(t *testing.T) {
	cd := CaptionDownload{
		Title: "The simplest: tech stack?",
		Track: model.CaptionTrack{LanguageCode: "en"},
	}
	got := cd.Filename(model.FormatSRT)
	if !strings.HasSuffix(got, " (en).srt") {
		t.Errorf("Filename = %q; want suffix %q", got, " (en).srt")
	}
	if strings.ContainsAny(got, ":?/") {
		t.Errorf("Filename = %q contains forbidden characters", got)
	}

	cd.Track.LanguageCode = ""
	if got := cd.Filename(model.FormatTXT); !strings.HasSuffix(got, "(und).txt") {
		t.Errorf("Filename without lang = %q", got)
	}
}

func TestCaptionDownload_FormatAndCues(t *testing.T) {
	cd := CaptionDownload{Data: []byte(`{"events":[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"hi"}]}]}`)}
	if f := cd.Format(); f != model.FormatJSON3 {
		t.Errorf("Format = %q; want json3", f)
	}
	if cues := cd.Cues(); len(cues) != 1 || cues[0].Text != "hi" {
		t.Errorf("Cues = %#v", cues)
	}
	if _, err := cd.PrettyJSON(); err != nil {
		t.Errorf("PrettyJSON: %v", err)
	}

	empty := CaptionDownload{}
	if f := empty.Format(); f != model.FormatUnknown {
		t.Errorf("empty Format = %q", f)
	}
	if _, err := empty.PrettyJSON(); err == nil {
		t.Error("expected PrettyJSON error on empty data")
	}
}

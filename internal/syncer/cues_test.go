package syncer

import (
	"testing"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

func TestResolveText(t *testing.T) {
	cues := []model.Cue{
		{Start: 0, End: 2, Text: "a"},
		{Start: 2, End: 4, Text: "b"},
		{Start: 10, End: 12, Text: "c"},
	}
	tests := []struct {
		t    float64
		want string
	}{
		{0, "a"},
		{1.5, "a"},
		{2.0, "a"}, // égalité de borne : le premier gagne
		{2.01, "b"},
		{4, "b"},
		{5, ""},
		{11, "c"},
		{-1, ""},
	}
	for _, tc := range tests {
		if got := ResolveText(cues, tc.t); got != tc.want {
			t.Errorf("ResolveText(%v) = %q; want %q", tc.t, got, tc.want)
		}
	}
}

func TestActiveCueUnsorted(t *testing.T) {
	cues := []model.Cue{
		{Start: 10, End: 12, Text: "late"},
		{Start: 0, End: 20, Text: "wide"},
	}
	c, ok := ActiveCue(cues, 11)
	if !ok || c.Text != "late" {
		t.Errorf("ActiveCue(11) = %+v, %v; want late", c, ok)
	}
	if _, ok := ActiveCue(nil, 1); ok {
		t.Error("ActiveCue on empty slice matched")
	}
}

func TestResolveTextWindows(t *testing.T) {
	cues := []model.Cue{
		{Start: 1, End: 2, Text: "one"},
		{Start: 3, End: 4, Text: "two"},
		{Start: 5, End: 6, Text: "three"},
	}
	for tm := 0.0; tm <= 7.0; tm += 0.25 {
		want := ""
		switch {
		case tm >= 1 && tm <= 2:
			want = "one"
		case tm >= 3 && tm <= 4:
			want = "two"
		case tm >= 5 && tm <= 6:
			want = "three"
		}
		if got := ResolveText(cues, tm); got != want {
			t.Errorf("t=%v: got %q; want %q", tm, got, want)
		}
	}
}

package yt

import (
	"encoding/json"
	"strings"
)

// playerResponse représente la partie utile de l'objet "player response"
// embarqué dans la page (ytInitialPlayerResponse & co).
//
// Les pistes peuvent se trouver sous captions.playerCaptionsTracklistRenderer
// ou directement sous playerCaptionsTracklistRenderer selon la source.
type playerResponse struct {
	VideoDetails *videoDetails   `json:"videoDetails"`
	Captions     *captionsHolder `json:"captions"`
	// variante "à plat" vue dans certains objets
	PlayerCaptionsTracklistRenderer *tracklistRenderer `json:"playerCaptionsTracklistRenderer"`
}

type captionsHolder struct {
	PlayerCaptionsTracklistRenderer *tracklistRenderer `json:"playerCaptionsTracklistRenderer"`
}

type tracklistRenderer struct {
	CaptionTracks []rawCaptionTrack `json:"captionTracks"`
}

type rawCaptionTrack struct {
	BaseURL      string   `json:"baseUrl"`
	LanguageCode string   `json:"languageCode"`
	Kind         string   `json:"kind"`
	Name         textRuns `json:"name"`
}

type videoDetails struct {
	VideoID       string          `json:"videoId"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	LengthSeconds json.RawMessage `json:"lengthSeconds"` // "213" (string) côté YouTube
}

// textRuns : {"simpleText": "..."} ou {"runs": [{"text": "..."}]}.
type textRuns struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t textRuns) String() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// tracks retourne la première liste de pistes trouvée (chemin imbriqué prioritaire).
func (p playerResponse) tracks() []rawCaptionTrack {
	if p.Captions != nil && p.Captions.PlayerCaptionsTracklistRenderer != nil &&
		p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks != nil {
		return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	}
	if p.PlayerCaptionsTracklistRenderer != nil {
		return p.PlayerCaptionsTracklistRenderer.CaptionTracks
	}
	return nil
}

package subtitles

import "strings"

// rawJSON3 représente la structure "brute" du format json3 de YouTube.
// Events vaut nil quand la clé est absente ou null ("pas d'events"),
// et une slice vide pour "events": [].
type rawJSON3 struct {
	WireMagic string     `json:"wireMagic,omitempty"`
	Events    []rawEvent `json:"events"`
}

type rawEvent struct {
	TStartMs    *float64 `json:"tStartMs,omitempty"`
	DDurationMs *float64 `json:"dDurationMs,omitempty"`
	AAppend     *int     `json:"aAppend,omitempty"`
	Segs        []rawSeg `json:"segs,omitempty"`
	// On ignore volontairement d'autres champs (wpWinPosId, wWinId, etc.)
}

type rawSeg struct {
	Utf8      string   `json:"utf8"`
	TOffsetMs *float64 `json:"tOffsetMs,omitempty"`
}

// startMs retourne tStartMs, ou 0 si absent.
func (e rawEvent) startMs() float64 {
	if e.TStartMs == nil {
		return 0
	}
	return *e.TStartMs
}

// durationMs retourne dDurationMs, ou 0 si absent.
func (e rawEvent) durationMs() float64 {
	if e.DDurationMs == nil {
		return 0
	}
	return *e.DDurationMs
}

// text concatène les segments tels quels (sans séparateur) puis trim :
// les segs ASR portent déjà leurs espaces.
func (e rawEvent) text() string {
	var b strings.Builder
	for _, s := range e.Segs {
		b.WriteString(s.Utf8)
	}
	return strings.TrimSpace(b.String())
}

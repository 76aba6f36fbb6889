package yt

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

// PrefAuto : pas de langue imposée.
const PrefAuto = "auto"

// langues de repli quand pref vaut "auto" ou "en", dans cet ordre de priorité
var englishFallbacks = []string{"en", "en-US", "en-GB"}

// SelectTrack choisit la piste selon la préférence de langue :
//  1. pref != "auto" : code exact, puis préfixe pref+"-", sur la préférence
//     telle que saisie puis sur sa forme canonique ("en_us" -> "en-US")
//  2. pref "auto" ou "en" : première piste dont le code est en, en-US ou en-GB
//  3. sinon la première piste
//
// La forme brute passe en premier : YouTube étiquette encore l'hébreu "iw"
// et l'indonésien "in", que la canonicalisation réécrit en "he" et "id".
//
// Retourne false s'il n'y a aucune piste.
func SelectTrack(tracks []model.CaptionTrack, pref string) (model.CaptionTrack, bool) {
	if len(tracks) == 0 {
		return model.CaptionTrack{}, false
	}
	raw := strings.TrimSpace(pref)
	canonical := CanonicalLanguage(raw)

	if canonical != PrefAuto && canonical != "" {
		if t, ok := matchLanguage(tracks, raw); ok {
			return t, true
		}
		if canonical != raw {
			if t, ok := matchLanguage(tracks, canonical); ok {
				return t, true
			}
		}
	}

	if canonical == PrefAuto || canonical == "en" || raw == "en" {
		for _, t := range tracks {
			for _, code := range englishFallbacks {
				if t.LanguageCode == code {
					return t, true
				}
			}
		}
	}

	return tracks[0], true
}

// matchLanguage : code exact, puis préfixe code+"-".
func matchLanguage(tracks []model.CaptionTrack, code string) (model.CaptionTrack, bool) {
	for _, t := range tracks {
		if t.LanguageCode == code {
			return t, true
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, code+"-") {
			return t, true
		}
	}
	return model.CaptionTrack{}, false
}

// WithJSON3Format ajoute fmt=json3 sauf si un paramètre fmt est déjà présent.
// La query existante est gardée telle quelle : l'URL est signée.
func WithJSON3Format(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		// URL illisible : on conserve le comportement textuel
		if strings.Contains(rawURL, "&fmt=") || strings.Contains(rawURL, "?fmt=") {
			return rawURL
		}
		return rawURL + "&fmt=json3"
	}
	if u.Query().Has("fmt") {
		return rawURL
	}
	if u.RawQuery == "" {
		return rawURL + "?fmt=json3"
	}
	return rawURL + "&fmt=json3"
}

// ResolveTrackURL enchaîne parsing, sélection et normalisation de l'URL.
func ResolveTrackURL(raw json.RawMessage, pref string) (string, bool) {
	meta, err := ParsePlayerResponse(raw)
	if err != nil {
		return "", false
	}
	t, ok := SelectTrack(meta.Tracks, pref)
	if !ok || t.BaseURL == "" {
		return "", false
	}
	return WithJSON3Format(t.BaseURL), true
}

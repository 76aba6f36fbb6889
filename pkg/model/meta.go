package model

import (
	"fmt"
	"strings"
)

// Cue est une ligne de sous-titre datée : affichée quand Start <= t <= End.
type Cue struct {
	Start float64 `json:"start"` // secondes
	End   float64 `json:"end"`   // secondes
	Text  string  `json:"text"`
}

// Contains indique si la position t (en secondes) tombe dans la fenêtre du cue,
// bornes incluses.
func (c Cue) Contains(t float64) bool {
	return t >= c.Start && t <= c.End
}

func (c Cue) String() string {
	return fmt.Sprintf("[%s --> %s] %s", Seconds(c.Start).Timestamp(), Seconds(c.End).Timestamp(), c.Text)
}

// CaptionTrack décrit une piste de sous-titres exposée par les métadonnées
// du lecteur. Lecture seule : on ne fait que la consulter.
type CaptionTrack struct {
	LanguageCode string `json:"languageCode"`
	BaseURL      string `json:"baseUrl"`
	Name         string `json:"name,omitempty"`
	Kind         string `json:"kind,omitempty"` // "asr" pour les sous-titres automatiques
}

// IsAutomatic indique si la piste est générée automatiquement (ASR).
func (t CaptionTrack) IsAutomatic() bool {
	return t.Kind == "asr"
}

func (t CaptionTrack) String() string {
	return fmt.Sprintf("CaptionTrack(lang=%s, kind=%s)", t.LanguageCode, t.Kind)
}

// VideoMeta regroupe ce qu'on extrait des métadonnées du lecteur.
type VideoMeta struct {
	VideoID       string         `json:"videoId"`
	Title         string         `json:"title"`
	Author        string         `json:"author,omitempty"`
	LengthSeconds int64          `json:"lengthSeconds,omitempty"`
	Tracks        []CaptionTrack `json:"tracks,omitempty"`
}

func (m VideoMeta) HasTracks() bool {
	return len(m.Tracks) != 0
}

func (m VideoMeta) String() string {
	return fmt.Sprintf("VideoMeta[ID=%s, Title=%q, Author=%s, Tracks=%d]",
		m.VideoID, m.Title, m.Author, len(m.Tracks))
}

// Pretty retourne une fiche multi-lignes simple.
func (m VideoMeta) Pretty() string {
	langs := make([]string, 0, len(m.Tracks))
	for _, t := range m.Tracks {
		if t.LanguageCode != "" {
			langs = append(langs, t.LanguageCode)
		}
	}
	tracks := "(aucune)"
	if len(langs) > 0 {
		tracks = strings.Join(langs, ", ")
	}

	return fmt.Sprintf(
		"Video:\n"+
			"  ID      : %s\n"+
			"  Title   : %q\n"+
			"  Author  : %s\n"+
			"  Length  : %s\n"+
			"  Tracks  : %s\n",
		m.VideoID,
		m.Title,
		m.Author,
		Seconds(m.LengthSeconds).Timestamp(),
		tracks,
	)
}

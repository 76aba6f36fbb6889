package subtitles

import (
	"context"
	"fmt"

	"github.com/patrickprogramme/captionsync/internal/fetch"
	"github.com/patrickprogramme/captionsync/internal/yt"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

// NewCaptionDownload : constructeur pur.
// Choisit la piste selon pref et retourne un CaptionDownload avec Data == nil.
func NewCaptionDownload(m *model.VideoMeta, pref string) (CaptionDownload, bool) {
	if m == nil || !m.HasTracks() {
		return CaptionDownload{}, false
	}
	track, ok := yt.SelectTrack(m.Tracks, pref)
	if !ok || track.BaseURL == "" {
		return CaptionDownload{}, false
	}
	return CaptionDownload{
		Title: titleOrID(m),
		Track: track,
		URL:   yt.WithJSON3Format(track.BaseURL),
	}, true
}

// titleOrID retourne le titre, ou sinon l'ID de la vidéo
func titleOrID(m *model.VideoMeta) string {
	if m == nil {
		return ""
	}
	if s := m.Title; s != "" {
		return s
	}
	return m.VideoID
}

// DownloadCaptions : wrapper qui télécharge la piste et retourne le
// CaptionDownload avec Data rempli. Nom explicite => fait du réseau.
// Retourne ErrNoTrack si aucune piste ne convient.
func DownloadCaptions(ctx context.Context, m *model.VideoMeta, pref string, opts fetch.Options) (CaptionDownload, error) {
	cd, ok := NewCaptionDownload(m, pref)
	if !ok {
		return CaptionDownload{}, ErrNoTrack
	}

	data, err := fetch.FetchBytes(ctx, cd.URL, opts)
	if err != nil {
		return CaptionDownload{}, fmt.Errorf("download captions: %w", err)
	}
	cd.Data = data
	return cd, nil
}

// FetchCues télécharge une URL de piste déjà résolue et la décode.
// Une erreur réseau est retournée telle quelle ; l'appelant bascule en fallback.
func FetchCues(ctx context.Context, url string, opts fetch.Options) ([]model.Cue, error) {
	data, err := fetch.FetchBytes(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch cues: %w", err)
	}
	return Decode(data), nil
}

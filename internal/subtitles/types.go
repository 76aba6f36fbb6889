package subtitles

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/patrickprogramme/captionsync/internal/fsutil"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

var ErrNoTrack = errors.New("no caption track available")

// CaptionDownload contient la piste + contexte utile (titre) + payload.
type CaptionDownload struct {
	Title string
	Track model.CaptionTrack
	URL   string // URL effectivement téléchargée (avec fmt=json3 le cas échéant)
	Data  []byte // nil tant que non téléchargé
}

// Format retourne le format détecté de Data.
func (s CaptionDownload) Format() model.Format {
	if len(s.Data) == 0 {
		return model.FormatUnknown
	}
	return DetectFormat(s.Data)
}

// Cues décode Data. Jamais d'erreur : une charge illisible donne nil.
func (s CaptionDownload) Cues() []model.Cue {
	if len(s.Data) == 0 {
		return nil
	}
	return Decode(s.Data)
}

// Filename compose le nom de fichier pour un export au format f. Exemple :
// "The simplest tech stack (en).srt"
func (s CaptionDownload) Filename(f model.Format) string {
	base := fsutil.SanitizeFilename(strings.TrimSpace(s.Title))

	// langue (fallback "und")
	lang := strings.TrimSpace(s.Track.LanguageCode)
	if lang == "" {
		lang = "und"
	}

	filename := fmt.Sprintf("%s (%s)%s", base, lang, f.Extension())
	return filepath.Base(filename)
}

// PrettyJSON retourne une version indentée de Data quand c'est du json3.
func (s CaptionDownload) PrettyJSON() (string, error) {
	if len(s.Data) == 0 {
		return "", fmt.Errorf("no data to pretty-print")
	}
	if f := s.Format(); f != model.FormatJSON3 {
		return "", fmt.Errorf("pretty-print not supported for format %q", f)
	}

	var v any
	if err := json.Unmarshal(s.Data, &v); err != nil {
		return "", fmt.Errorf("pretty json: decode error: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("pretty json: marshal indent: %w", err)
	}
	return string(out), nil
}

// String implémente fmt.Stringer ; l'URL est tronquée pour les logs.
func (s CaptionDownload) String() string {
	urlPreview := s.URL
	if urlPreview == "" {
		urlPreview = "<no url>"
	} else if len(urlPreview) > 80 {
		urlPreview = urlPreview[:77] + "..."
	}

	return fmt.Sprintf(
		"CaptionDownload{Title:%q, Lang:%q, Kind:%q, URL:%q, Format:%s, DataLen:%d}",
		s.Title,
		s.Track.LanguageCode,
		s.Track.Kind,
		urlPreview,
		s.Format(),
		len(s.Data),
	)
}

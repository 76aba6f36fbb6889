package model

import (
	"fmt"
	"strings"
)

// Seconds est une position dans la vidéo, en secondes (fractionnaires).
type Seconds float64

// Timestamp formate Seconds en "HH:MM:SS.mmm".
// Exemple : 65.5 -> "00:01:05.500".
func (s Seconds) Timestamp() string {
	if s < 0 {
		s = 0
	}
	totalMs := int64(float64(s)*1000 + 0.5)
	h := totalMs / 3_600_000
	m := (totalMs % 3_600_000) / 60_000
	sec := (totalMs % 60_000) / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, sec, ms)
}

// Format désigne le format filaire d'une charge utile de sous-titres,
// ou le format de sortie d'un export.
type Format string

const (
	FormatUnknown Format = ""
	FormatXML     Format = "xml"
	FormatJSON3   Format = "json3"
	FormatSRT     Format = "srt"
	FormatVTT     Format = "vtt"
	FormatTXT     Format = "txt"
)

// ParseFormat convertit une chaîne en Format, erreur si le format est inconnu.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xml":
		return FormatXML, nil
	case "json3", "json":
		return FormatJSON3, nil
	case "srt":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "txt", "text":
		return FormatTXT, nil
	default:
		return FormatUnknown, fmt.Errorf("format demandé inconnu: %q", s)
	}
}

// IsExportable indique si le format peut être produit par un export.
func (f Format) IsExportable() bool {
	return f == FormatSRT || f == FormatVTT || f == FormatTXT
}

func (f Format) Extension() string {
	if f == FormatJSON3 {
		return ".json"
	}
	return "." + string(f)
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

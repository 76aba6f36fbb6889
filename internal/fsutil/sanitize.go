package fsutil

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// limite de longueur du nom, en runes
	maxNameRunes = 200
	fallbackName = "untitled"
)

var (
	// caractères interdits sous Windows et contrôles \x00-\x1F
	invalidFileRunes = regexp.MustCompile(`[<>"/\\|?*\x00-\x1F]`)
	multiSpace       = regexp.MustCompile(`\s+`)
)

// noms réservés par Windows, quelle que soit l'extension
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
}

// SanitizeFilename transforme un titre de vidéo en base de nom de fichier
// portable : ":" devient "-", les autres caractères interdits des espaces,
// espaces compactés, points finaux retirés, longueur bornée en runes,
// première lettre en majuscule. Un résultat vide donne "untitled".
func SanitizeFilename(title string) string {
	clean := strings.ReplaceAll(title, ":", "-")
	clean = invalidFileRunes.ReplaceAllString(clean, " ")
	clean = multiSpace.ReplaceAllString(strings.TrimSpace(clean), " ")
	clean = strings.TrimRight(clean, ". ")

	// coupe sur une frontière de rune
	if rs := []rune(clean); len(rs) > maxNameRunes {
		clean = strings.TrimRight(string(rs[:maxNameRunes]), ". ")
	}
	if clean == "" {
		return fallbackName
	}
	if reservedNames[strings.ToUpper(clean)] {
		clean += "_"
	}
	return capitalizeFirst(clean)
}

func capitalizeFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

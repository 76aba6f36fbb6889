package yt

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// CanonicalLanguage normalise un code de langue BCP 47 ("en_us" -> "en-US").
// "auto", "" et les valeurs illisibles sont retournées telles quelles (trim).
func CanonicalLanguage(pref string) string {
	p := strings.TrimSpace(pref)
	if p == "" || strings.EqualFold(p, PrefAuto) {
		if p != "" {
			return PrefAuto
		}
		return p
	}
	tag, err := language.Parse(p)
	if err != nil {
		return p
	}
	return tag.String()
}

// DisplayName retourne le nom anglais de la langue ("fr" -> "French").
// Code illisible -> le code lui-même.
func DisplayName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// ReadAll lit le contenu texte du presse-papier.
func ReadAll() (string, error) {
	return clipboard.ReadAll()
}

// ReadMatching retourne le contenu du presse-papier (BOM et espaces retirés)
// s'il satisfait accept. Presse-papier illisible ou refusé -> false.
func ReadMatching(accept func(string) bool) (string, bool) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", false
	}
	text = strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
	if text == "" || !accept(text) {
		return "", false
	}
	return text, true
}

// WriteAll écrit une chaîne de caractères dans le presse-papier.
func WriteAll(text string) error {
	if text == "" {
		return errors.New("le texte à copier ne peut pas être vide")
	}
	return clipboard.WriteAll(text)
}

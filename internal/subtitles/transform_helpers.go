package subtitles

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

func isSentenceTerminatorRune(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloserRune(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '}', '»':
		return true
	}
	return false
}

// trimTrailingClosers enlève guillemets/parenthèses fermantes
// accolées à la fin qui masquent un terminator
func trimTrailingClosers(s string) string {
	for {
		s = strings.TrimRightFunc(s, unicode.IsSpace)
		if s == "" {
			return s
		}
		r, size := utf8.DecodeLastRuneInString(s)
		if r == utf8.RuneError && size == 1 { // octet invalide : on le retire
			s = s[:len(s)-1]
			continue
		}
		if isCloserRune(r) {
			s = s[:len(s)-size]
			continue
		}
		break
	}
	return s
}

// lastNonSpaceRune retourne la dernière rune non blanche, et true si trouvée.
func lastNonSpaceRune(s string) (rune, bool) {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[:len(s)-1]
			continue
		}
		if !unicode.IsSpace(r) {
			return r, true
		}
		s = s[:len(s)-size]
	}
	return 0, false
}

// endsSentence : le texte se termine par . ! ? (éventuellement suivi de closers).
func endsSentence(s string) bool {
	r, ok := lastNonSpaceRune(trimTrailingClosers(s))
	return ok && isSentenceTerminatorRune(r)
}

// normalizeWhitespace nettoie les espaces : un seul espace entre mots, aucun en début/fin
func normalizeWhitespace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// paragraphs regroupe les cues en paragraphes : un paragraphe se ferme
// après un cue qui termine une phrase et contient au moins minCues cues.
func paragraphs(cues []model.Cue, minCues int) []string {
	var (
		out     []string
		current []string
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, strings.Join(current, " "))
		current = current[:0]
	}
	for _, c := range cues {
		text := normalizeWhitespace(c.Text)
		if text == "" {
			continue
		}
		current = append(current, text)
		if len(current) >= minCues && endsSentence(text) {
			flush()
		}
	}
	flush()
	return out
}

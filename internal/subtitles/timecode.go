package subtitles

import (
	"strconv"
	"strings"
)

// ParseTimestamp convertit "HH:MM:SS.mmm" ou "MM:SS.mmm" (séparateur décimal
// "," ou ".") en secondes.
// Une entrée mal formée donne 0 : un timestamp illisible vaut "pas de décalage",
// il ne doit pas faire échouer tout le parsing.
func ParseTimestamp(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.Replace(s, ",", ".", 1)

	parts := strings.Split(s, ":")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, ok := parseDecimal(p)
		if !ok {
			return 0
		}
		values = append(values, v)
	}

	switch len(values) {
	case 3:
		return values[0]*3600 + values[1]*60 + values[2]
	case 2:
		return values[0]*60 + values[1]
	default:
		return 0
	}
}

// parseDecimal n'accepte que des chiffres avec au plus un point : pas de signe,
// pas d'exposant, pas de "Inf"/"NaN" (que strconv accepterait).
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	if s == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

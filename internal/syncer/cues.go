package syncer

import "github.com/patrickprogramme/captionsync/pkg/model"

// ActiveCue retourne le premier cue dont la fenêtre contient t (bornes
// incluses). En cas de chevauchement le premier dans l'ordre gagne ; aucune
// hypothèse de tri.
func ActiveCue(cues []model.Cue, t float64) (model.Cue, bool) {
	for _, c := range cues {
		if c.Contains(t) {
			return c, true
		}
	}
	return model.Cue{}, false
}

// ResolveText : texte du cue actif, "" si aucun.
func ResolveText(cues []model.Cue, t float64) string {
	c, ok := ActiveCue(cues, t)
	if !ok {
		return ""
	}
	return c.Text
}

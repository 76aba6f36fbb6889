package player

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/patrickprogramme/captionsync/internal/page"
)

// Probe cherche les métadonnées du lecteur dans un snapshot.
// Fonction pure : pas d'effet de bord, pas d'accès réseau.
type Probe func(page.Snapshot) (json.RawMessage, bool)

// DefaultProbes : ordre de priorité des sources de métadonnées.
var DefaultProbes = []Probe{GlobalBindings, ConfigArgs, InlineScripts}

// GlobalBindings lit window.ytInitialPlayerResponse puis window.__PLAYER_RESPONSE__.
func GlobalBindings(s page.Snapshot) (json.RawMessage, bool) {
	for _, name := range []string{page.GlobalInitialPlayerResponse, page.GlobalPlayerResponse} {
		if v, ok := s.Globals[name]; ok && isObject(v) {
			return v, true
		}
	}
	return nil, false
}

// ConfigArgs décode la chaîne JSON ytplayer.config.args.player_response.
func ConfigArgs(s page.Snapshot) (json.RawMessage, bool) {
	if strings.TrimSpace(s.ConfigArgs) == "" {
		return nil, false
	}
	raw := json.RawMessage(s.ConfigArgs)
	if !json.Valid(raw) || !isObject(raw) {
		return nil, false
	}
	return raw, true
}

var assignRe = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*\{`)

// InlineScripts cherche "ytInitialPlayerResponse = {...}" dans le texte des
// <script>. L'objet est lu par un décodeur JSON à partir de l'accolade : un
// "};" à l'intérieur d'une chaîne ne coupe pas l'objet. Les échecs sont ignorés.
func InlineScripts(s page.Snapshot) (json.RawMessage, bool) {
	for _, text := range s.Scripts {
		if !strings.Contains(text, page.GlobalInitialPlayerResponse) {
			continue
		}
		for _, loc := range assignRe.FindAllStringIndex(text, -1) {
			brace := loc[1] - 1
			dec := json.NewDecoder(strings.NewReader(text[brace:]))
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				continue
			}
			return raw, true
		}
	}
	return nil, false
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/patrickprogramme/captionsync/internal/logging"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

// Validate vérifie la cohérence de la configuration.
// Retourne warnings (non-fataux) et une erreur si c'est critique.
func (c *Config) Validate() (warnings []string, err error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}

	if u, perr := url.Parse(c.DevTools.Endpoint); perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return warnings, fmt.Errorf("devtools.endpoint invalide : %q (attendu http://hôte:port)", c.DevTools.Endpoint)
	}
	if c.DevTools.TargetMatch == "" {
		warnings = append(warnings, "devtools.target_match vide : le premier onglet sera utilisé")
	}

	switch c.Preferences.Backend {
	case BackendSQLite:
		if c.Preferences.Path == "" {
			return warnings, fmt.Errorf("preferences.path requis avec le backend sqlite")
		}
		if dir := filepath.Dir(c.Preferences.Path); dir != "." {
			if st, serr := os.Stat(dir); serr == nil && !st.IsDir() {
				return warnings, fmt.Errorf("le parent de preferences.path n'est pas un répertoire : %s", dir)
			}
		}
	case BackendMemory:
		warnings = append(warnings, "preferences.backend=memory : les préférences ne survivent pas au redémarrage")
	default:
		return warnings, fmt.Errorf("preferences.backend inconnu : %q (sqlite|memory)", c.Preferences.Backend)
	}

	if c.Popup.Listen != "" {
		if _, _, serr := net.SplitHostPort(c.Popup.Listen); serr != nil {
			return warnings, fmt.Errorf("popup.listen invalide : %q : %w", c.Popup.Listen, serr)
		}
	}
	if c.Popup.Dir != "" {
		if st, serr := os.Stat(c.Popup.Dir); serr != nil || !st.IsDir() {
			warnings = append(warnings, fmt.Sprintf("popup.dir introuvable, fichiers embarqués utilisés : %s", c.Popup.Dir))
		}
	}

	f, ferr := model.ParseFormat(c.Export.Format)
	if ferr != nil || !f.IsExportable() {
		return warnings, fmt.Errorf("export.format invalide : %q (srt|vtt|txt)", c.Export.Format)
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return warnings, fmt.Errorf("logging.format invalide : %q (console|json)", c.Logging.Format)
	}
	if c.Logging.Level != "" && logging.ParseLevel(c.Logging.Level) == slog.LevelInfo && c.Logging.Level != "info" {
		warnings = append(warnings, fmt.Sprintf("logging.level inconnu %q : info utilisé", c.Logging.Level))
	}

	return warnings, nil
}

package devtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/patrickprogramme/captionsync/internal/fetch"
)

// Target : une entrée de GET {endpoint}/json.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ListTargets interroge l'endpoint HTTP du navigateur (ex: http://127.0.0.1:9222).
func ListTargets(ctx context.Context, endpoint string, opts fetch.Options) ([]Target, error) {
	u := strings.TrimRight(strings.TrimSpace(endpoint), "/") + "/json"
	targets, err := fetch.FetchJSON[[]Target](ctx, u, opts)
	if err != nil {
		return nil, fmt.Errorf("list devtools targets: %w", err)
	}
	return targets, nil
}

// FindPage retourne la première cible "page" dont l'URL contient match
// (match vide : première page). Les cibles sans URL WebSocket sont ignorées
// (déjà attachées à un autre client).
func FindPage(targets []Target, match string) (Target, bool) {
	for _, t := range targets {
		if t.Type != "page" || t.WebSocketDebuggerURL == "" {
			continue
		}
		if match == "" || strings.Contains(t.URL, match) {
			return t, true
		}
	}
	return Target{}, false
}

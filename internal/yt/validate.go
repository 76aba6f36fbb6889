package yt

import (
	"net/url"
	"regexp"
	"strings"
)

var ytRegex = regexp.MustCompile(`(?i)https?://(www\.|m\.)?(youtube\.com/(watch\?|shorts/|embed/)|youtu\.be/)`)

func IsYouTubeURL(s string) bool {
	return ytRegex.MatchString(s)
}

// VideoIDFromURL extrait l'identifiant vidéo : /watch?v=<id>, /shorts/<id>,
// /embed/<id>. Retourne "" si l'URL n'en contient pas.
func VideoIDFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Path == "/watch" {
		return u.Query().Get("v")
	}
	for _, prefix := range []string{"/shorts/", "/embed/"} {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			id, _, _ := strings.Cut(rest, "/")
			return id
		}
	}
	return ""
}

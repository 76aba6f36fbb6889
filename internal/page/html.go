package page

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// SnapshotFromHTML construit un Snapshot à partir d'un document HTML statique.
// Sans moteur JS, Globals et ConfigArgs restent vides : seules les balises
// <script> portent les métadonnées du lecteur.
func SnapshotFromHTML(pageURL string, doc []byte) (Snapshot, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse html: %w", err)
	}

	snap := Snapshot{URL: pageURL}
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "video":
			snap.HasVideo = true
		case "script":
			if text := textContent(n); strings.TrimSpace(text) != "" {
				snap.Scripts = append(snap.Scripts, text)
			}
		}
	})
	return snap, nil
}

// NativeCaptionFromHTML retourne le texte du premier élément portant la
// classe ytp-caption-segment, "" sinon.
func NativeCaptionFromHTML(doc []byte) string {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return ""
	}
	className := strings.TrimPrefix(NativeCaptionSelector, ".")
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && hasClass(n, className) {
			found = n
		}
	})
	if found == nil {
		return ""
	}
	return strings.TrimSpace(textContent(found))
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

package subtitles

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

var (
	// blockSplitRe sépare les blocs SRT/VTT (une ou plusieurs lignes vides).
	blockSplitRe = regexp.MustCompile(`\n\n+`)
	// indexLineRe reconnaît la ligne d'index d'un bloc SRT.
	indexLineRe = regexp.MustCompile(`^\d+$`)
	// timeLineRe : "<time> --> <time>", time = H:MM:SS.mmm ou M:SS.mmm ("," ou ".").
	timeLineRe = regexp.MustCompile(`(\d+:\d+:\d+[.,]\d+|\d+:\d+[.,]\d+) --> (\d+:\d+:\d+[.,]\d+|\d+:\d+[.,]\d+)`)
)

// DetectFormat devine le format d'une charge utile par reniflage du contenu.
// Il n'y a pas de contrat de content-type côté hébergeur.
func DetectFormat(data []byte) model.Format {
	text := string(data)
	switch {
	case strings.Contains(text, "<?xml") || strings.Contains(text, "<transcript>"):
		return model.FormatXML
	case strings.HasPrefix(strings.TrimSpace(text), "{") && strings.Contains(text, `"events":`):
		return model.FormatJSON3
	default:
		return model.FormatSRT
	}
}

// Decode transforme une charge utile brute en cues ordonnés (ordre du source).
// Ne retourne jamais d'erreur : un format illisible donne une slice vide.
//
// Ordre de détection : XML, puis json3, puis blocs SRT/VTT en dernier recours.
// Un json3 mal formé donne une slice vide SANS retenter le parsing en blocs.
func Decode(data []byte) []model.Cue {
	switch DetectFormat(data) {
	case model.FormatXML:
		cues, err := decodeXML(data)
		if err != nil {
			return nil
		}
		return cues
	case model.FormatJSON3:
		raw, err := ParseJSON3Bytes(data)
		if err != nil {
			return nil
		}
		if raw.Events != nil {
			return cuesFromJSON3(raw)
		}
		// JSON valide mais sans tableau events : on tente les blocs
	}
	return decodeBlocks(string(data))
}

// decodeXML lit tous les éléments <text start=".." dur=".."> quelle que soit
// leur profondeur. Le texte est le contenu textuel complet de l'élément.
func decodeXML(data []byte) ([]model.Cue, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = xml.HTMLEntity

	var out []model.Cue
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "text" {
			continue
		}

		start := attrFloat(se, "start")
		dur := attrFloat(se, "dur")
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, model.Cue{Start: start, End: start + dur, Text: text})
	}
	return out, nil
}

// elementText consomme les tokens jusqu'à la fermeture de l'élément courant
// et retourne l'équivalent de textContent (texte des descendants compris).
func elementText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return b.String(), nil
}

// attrFloat lit un attribut numérique ; absent ou illisible -> 0.
func attrFloat(se xml.StartElement, name string) float64 {
	for _, a := range se.Attr {
		if a.Name.Local != name {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

// cuesFromJSON3 : un cue par event ayant au moins un seg et du texte.
func cuesFromJSON3(raw rawJSON3) []model.Cue {
	out := make([]model.Cue, 0, len(raw.Events))
	for _, ev := range raw.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		text := ev.text()
		if text == "" {
			continue
		}
		start := ev.startMs()
		out = append(out, model.Cue{
			Start: start / 1000,
			End:   (start + ev.durationMs()) / 1000,
			Text:  text,
		})
	}
	return out
}

// decodeBlocks parse les blocs SRT/VTT. Un bloc sans ligne "-->" valide est
// ignoré en entier, les autres blocs sont conservés.
func decodeBlocks(text string) []model.Cue {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []model.Cue
	for _, block := range blockSplitRe.Split(text, -1) {
		cue, ok := parseBlock(block)
		if !ok {
			continue
		}
		out = append(out, cue)
	}
	return out
}

func parseBlock(block string) (model.Cue, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 2 {
		return model.Cue{}, false
	}

	// index optionnel en première ligne
	startIndex := 0
	if indexLineRe.MatchString(lines[0]) {
		startIndex = 1
	}

	m := timeLineRe.FindStringSubmatch(lines[startIndex])
	if m == nil {
		return model.Cue{}, false
	}

	text := strings.TrimSpace(strings.Join(lines[startIndex+1:], " "))
	if text == "" {
		return model.Cue{}, false
	}
	return model.Cue{
		Start: ParseTimestamp(m[1]),
		End:   ParseTimestamp(m[2]),
		Text:  text,
	}, true
}

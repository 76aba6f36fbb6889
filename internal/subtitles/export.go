package subtitles

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/asticode/go-astisub"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

// nombre minimal de cues par paragraphe dans l'export texte
const plainParagraphMinCues = 3

// Export écrit les cues au format demandé (srt, vtt ou txt).
func Export(w io.Writer, cues []model.Cue, f model.Format) error {
	switch f {
	case model.FormatSRT, model.FormatVTT:
		if len(cues) == 0 {
			return fmt.Errorf("export %s: no cues to write", f)
		}
		subs := toAstisub(cues)
		if f == model.FormatSRT {
			return subs.WriteToSRT(w)
		}
		return subs.WriteToWebVTT(w)
	case model.FormatTXT:
		_, err := io.WriteString(w, PlainText(cues))
		return err
	default:
		return fmt.Errorf("export: unsupported format %q", f)
	}
}

// ExportBytes est la variante en mémoire d'Export.
func ExportBytes(cues []model.Cue, f model.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Export(&buf, cues, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PlainText produit la transcription sans timecodes, en paragraphes.
func PlainText(cues []model.Cue) string {
	paras := paragraphs(cues, plainParagraphMinCues)
	if len(paras) == 0 {
		return ""
	}
	return strings.Join(paras, "\n\n") + "\n"
}

func toAstisub(cues []model.Cue) *astisub.Subtitles {
	subs := astisub.NewSubtitles()
	for _, c := range cues {
		item := &astisub.Item{
			StartAt: secondsToDuration(c.Start),
			EndAt:   secondsToDuration(c.End),
		}
		for _, line := range strings.Split(c.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			item.Lines = append(item.Lines, astisub.Line{
				Items: []astisub.LineItem{{Text: line}},
			})
		}
		if len(item.Lines) == 0 {
			continue
		}
		subs.Items = append(subs.Items, item)
	}
	return subs
}

// secondsToDuration arrondit à la milliseconde (précision des formats texte).
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s*1000+0.5) * time.Millisecond
}

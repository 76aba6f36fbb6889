package yt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/patrickprogramme/captionsync/pkg/model"
)

// ErrNoPlayerResponse : charge vide ou "null".
var ErrNoPlayerResponse = errors.New("empty player response")

// ParsePlayerResponse transforme le JSON brut du lecteur en VideoMeta.
// Une réponse sans pistes n'est pas une erreur : Tracks est simplement vide.
func ParsePlayerResponse(raw json.RawMessage) (*model.VideoMeta, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoPlayerResponse
	}

	var p playerResponse
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("unmarshal player response: %w", err)
	}

	meta := &model.VideoMeta{}
	if d := p.VideoDetails; d != nil {
		meta.VideoID = d.VideoID
		meta.Title = d.Title
		meta.Author = d.Author
		if n, err := strconv.ParseInt(strings.Trim(string(d.LengthSeconds), `"`), 10, 64); err == nil {
			meta.LengthSeconds = n
		}
	}

	for _, t := range p.tracks() {
		meta.Tracks = append(meta.Tracks, model.CaptionTrack{
			LanguageCode: t.LanguageCode,
			BaseURL:      t.BaseURL,
			Name:         t.Name.String(),
			Kind:         t.Kind,
		})
	}
	return meta, nil
}

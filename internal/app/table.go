package app

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/patrickprogramme/captionsync/internal/prefs"
	"github.com/patrickprogramme/captionsync/internal/yt"
	"github.com/patrickprogramme/captionsync/pkg/model"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderTracks : une ligne par piste, "*" sur celle que retiendrait lang.
func renderTracks(tracks []model.CaptionTrack, lang string) string {
	selected, hasSelected := yt.SelectTrack(tracks, lang)

	rows := make([][]string, 0, len(tracks))
	for i, t := range tracks {
		kind := "manuel"
		if t.IsAutomatic() {
			kind = "auto"
		}
		mark := ""
		if hasSelected && t == selected {
			mark = "*"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			t.LanguageCode,
			yt.DisplayName(t.LanguageCode),
			t.Name,
			kind,
			mark,
		})
	}
	return renderTable(
		[]string{"#", "Code", "Langue", "Nom", "Type", "Choisie"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func renderCues(cues []model.Cue) string {
	rows := make([][]string, 0, len(cues))
	for i, c := range cues {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			model.Seconds(c.Start).Timestamp(),
			model.Seconds(c.End).Timestamp(),
			c.Text,
		})
	}
	return renderTable(
		[]string{"#", "Début", "Fin", "Texte"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight},
	)
}

func renderPreferences(p prefs.Preferences) string {
	rows := [][]string{
		{prefs.KeyEnabled, strconv.FormatBool(p.Enabled)},
		{prefs.KeyLanguage, p.Language},
		{prefs.KeyHideButton, strconv.FormatBool(p.HideButton)},
		{prefs.KeyForceRefresh, strconv.FormatBool(p.ForceRefresh)},
	}
	return renderTable([]string{"Clé", "Valeur"}, rows, nil)
}

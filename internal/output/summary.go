package output

import (
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/therealutkarshpriyadarshi/autotag/internal/assembler"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// RenderSummary renders detections per label, with the number of them that
// carried caption data.
func RenderSummary(results []models.Result) string {
	captioned := make(map[string]int)
	for _, r := range results {
		if r.Name != "" || r.Dist != "" || r.Date != "" {
			captioned[r.Label]++
		}
	}

	stats := assembler.Summarize(results)
	labels := make([]string, 0, len(stats.Labels))
	for label := range stats.Labels {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Label", "Detections", "Captioned"})
	for _, label := range labels {
		tw.AppendRow(table.Row{label, strconv.Itoa(stats.Labels[label]), strconv.Itoa(captioned[label])})
	}
	tw.AppendFooter(table.Row{"Total", strconv.Itoa(stats.Results), strconv.Itoa(stats.Captioned)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	return tw.Render()
}

// RenderResults renders every result row, limited to limit rows when limit > 0
func RenderResults(results []models.Result, limit int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(models.ResultColumns))
	for i, col := range models.ResultColumns {
		header[i] = col
	}
	tw.AppendHeader(header)

	for i, r := range results {
		if limit > 0 && i >= limit {
			break
		}
		row := r.Row()
		tr := make(table.Row, len(row))
		for j, v := range row {
			tr[j] = v
		}
		tw.AppendRow(tr)
	}

	return tw.Render()
}

package commands

import (
	"io"
	"strings"

	"fabriq-content/internal/history"
	"fabriq-content/internal/report"
	"fabriq-content/internal/sources"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderSources(out io.Writer, list []sources.Source) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Factory", "URL"})
	for i, s := range list {
		t.AppendRow(table.Row{i + 1, s.Factory, s.URL})
	}
	t.Render()
}

func renderReport(out io.Writer, r report.Report) {
	t := newTable(out)
	t.SetTitle("%s - %s", r.StartedAt.Format(report.TimeFormat), r.FinishedAt.Format(report.TimeFormat))
	t.AppendHeader(table.Row{"Factory", "URL", "Parsed", "Saved"})
	parsed, saved := 0, 0
	for _, o := range r.Sources {
		t.AppendRow(table.Row{o.Factory, o.URL, o.Parsed, o.Saved})
		parsed += o.Parsed
		saved += o.Saved
	}
	t.AppendFooter(table.Row{"", "Total", parsed, saved})
	t.Render()

	if len(r.Warnings) == 0 {
		return
	}
	w := newTable(out)
	w.AppendHeader(table.Row{"Warning"})
	for _, warning := range r.Warnings {
		w.AppendRow(table.Row{warning})
	}
	w.Render()
}

func renderHistory(out io.Writer, runs []history.Run) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Sources", "Saved", "Warnings"})
	for _, run := range runs {
		saved := 0
		factories := make([]string, 0, len(run.Report.Sources))
		for _, o := range run.Report.Sources {
			saved += o.Saved
			factories = append(factories, o.Factory)
		}
		t.AppendRow(table.Row{
			run.ID,
			run.Report.StartedAt.Format(report.TimeFormat),
			run.Report.FinishedAt.Sub(run.Report.StartedAt).String(),
			strings.Join(factories, ", "),
			saved,
			len(run.Report.Warnings),
		})
	}
	t.Render()
}

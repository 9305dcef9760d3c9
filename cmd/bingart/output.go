package main

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"bingart"
)

type summaryRow struct {
	prompt string
	worker string
	result *bingart.Result
	files  []string
	err    error
}

func mediaURLs(res *bingart.Result) []string {
	if res.Video != nil {
		return []string{res.Video.VideoURL}
	}
	urls := make([]string, 0, len(res.Images))
	for _, img := range res.Images {
		urls = append(urls, img.URL)
	}
	return urls
}

func renderResult(w io.Writer, res *bingart.Result, files []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "URL", "File"})
	for i, u := range mediaURLs(res) {
		file := ""
		if i < len(files) {
			file = files[i]
		}
		t.AppendRow(table.Row{i + 1, u, file})
	}
	t.AppendFooter(table.Row{"", "prompt: " + res.Prompt, strings.TrimSpace(res.Model + " " + res.Aspect)})
	t.Render()
}

func renderSummary(w io.Writer, rows []summaryRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Prompt", "Worker", "Status", "Media"})
	for _, r := range rows {
		status := "ok"
		media := ""
		switch {
		case r.err != nil && bingart.IsPromptRejected(r.err):
			status = "rejected"
		case r.err != nil:
			status = "error: " + r.err.Error()
		default:
			media = strings.Join(mediaURLs(r.result), "\n")
			if len(r.files) > 0 {
				media = strings.Join(r.files, "\n")
			}
		}
		t.AppendRow(table.Row{r.prompt, r.worker, status, media})
	}
	t.Render()
}

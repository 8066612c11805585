// Package report renders a job's verification outcome as markdown, HTML
// or PDF.
package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/probo/internal/models"
)

type Service struct {
	logger arbor.ILogger
}

func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Markdown returns the report in its canonical markdown form.
func (s *Service) Markdown(job *models.Job) string {
	return BuildMarkdown(job)
}

// HTML renders the report as a standalone styled HTML page.
func (s *Service) HTML(job *models.Job) ([]byte, error) {
	markdown := BuildMarkdown(job)

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			htmlrenderer.WithHardWraps(),
			htmlrenderer.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		s.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to convert report markdown to HTML")
		return wrapInPage("<pre>" + html.EscapeString(markdown) + "</pre>"), nil
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Int("html_len", buf.Len()).
		Msg("Report rendered as HTML")
	return wrapInPage(buf.String()), nil
}

// PDF renders the report as a PDF document.
func (s *Service) PDF(job *models.Job) ([]byte, error) {
	markdown := BuildMarkdown(job)

	data, err := renderPDF(markdown)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to render report PDF")
		return nil, fmt.Errorf("failed to render report PDF: %w", err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Int("pdf_size", len(data)).
		Msg("Report rendered as PDF")
	return data, nil
}

func wrapInPage(body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>Verification Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 860px; margin: 2em auto; padding: 0 1em; color: #24292f; }
h1 { border-bottom: 1px solid #d0d7de; padding-bottom: .3em; }
h2 { margin-top: 1.6em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #d0d7de; padding: 6px 12px; text-align: left; }
th { background: #f6f8fa; }
code { background: #f6f8fa; padding: 2px 4px; border-radius: 4px; font-size: 90%; }
</style>
</head>
<body>
`)
	buf.WriteString(body)
	buf.WriteString("\n</body>\n</html>\n")
	return buf.Bytes()
}

package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// renderPDF converts report markdown to PDF bytes by walking the goldmark
// AST and drawing each node with fpdf.
func renderPDF(markdown string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	r := &pdfWriter{pdf: pdf, source: source, size: 10}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("failed to walk report markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	source []byte
	size   float64
	bold   bool
	italic bool
	inList bool
}

func (r *pdfWriter) resetFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, r.size)
}

func (r *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		r.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(6)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.resetFont()
	case ast.KindCodeSpan:
		return r.codeSpan(n, entering)
	case ast.KindList:
		r.inList = entering
		if !entering {
			r.pdf.Ln(2)
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(20)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(3)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(3)
		}
	case extast.KindTable:
		if entering {
			r.table(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		r.pdf.Ln(5)
		size := 11.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 12
		}
		r.pdf.SetFont("Arial", "B", size)
		return
	}
	r.pdf.Ln(7)
	r.resetFont()
}

func (r *pdfWriter) codeSpan(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		r.resetFont()
		return ast.WalkContinue, nil
	}
	r.pdf.SetFont("Courier", "", r.size-1)
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			r.pdf.Write(5, string(t.Segment.Value(r.source)))
		}
	}
	r.resetFont()
	return ast.WalkSkipChildren, nil
}

func (r *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch row := child.(type) {
		case *extast.TableHeader:
			for hr := row.FirstChild(); hr != nil; hr = hr.NextSibling() {
				if tr, ok := hr.(*extast.TableRow); ok {
					rows = append(rows, r.cells(tr))
				}
			}
			// A header row made only of empty cells is a layout artifact
			// of two-column property tables; drop it.
			if len(rows) == 1 && allEmpty(rows[0]) {
				rows = rows[:0]
			}
		case *extast.TableRow:
			rows = append(rows, r.cells(row))
		}
	}
	r.drawTable(rows)
}

func (r *pdfWriter) cells(row *extast.TableRow) []string {
	var out []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			out = append(out, strings.TrimSpace(string(cell.Text(r.source))))
		}
	}
	return out
}

func (r *pdfWriter) drawTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	cols := len(rows[0])
	widths := r.columnWidths(rows, cols, 180)

	r.pdf.Ln(3)
	lineHeight := 6.0
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont("Arial", "B", 9)
			r.pdf.SetFillColor(235, 235, 235)
		} else {
			r.pdf.SetFont("Arial", "", 9)
			r.pdf.SetFillColor(255, 255, 255)
		}

		x := 15.0
		y := r.pdf.GetY()
		if y+lineHeight > 282 {
			r.pdf.AddPage()
			y = r.pdf.GetY()
		}
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			r.pdf.SetXY(x, y)
			fill := i == 0
			r.pdf.CellFormat(widths[j], lineHeight, r.fit(cell, widths[j]-2), "1", 0, "L", fill, 0, "")
			x += widths[j]
		}
		r.pdf.SetXY(15, y+lineHeight)
	}
	r.pdf.Ln(3)
	r.resetFont()
}

// columnWidths sizes columns by measured content, clamped and scaled to the
// printable width.
func (r *pdfWriter) columnWidths(rows [][]string, cols int, pageWidth float64) []float64 {
	widths := make([]float64, cols)
	r.pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			if i >= cols {
				break
			}
			if w := r.pdf.GetStringWidth(cell) + 4; w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 0.0
	for i := range widths {
		if widths[i] < 15 {
			widths[i] = 15
		}
		if widths[i] > pageWidth/2 {
			widths[i] = pageWidth / 2
		}
		total += widths[i]
	}
	scale := pageWidth / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}

// fit truncates cell text to the given width, appending an ellipsis when
// content is dropped.
func (r *pdfWriter) fit(s string, width float64) string {
	if r.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 3 && r.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

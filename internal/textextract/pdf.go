package textextract

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF never fails: any decoding problem ends up in Warnings with empty Text.
func (e *Extractor) extractPDF(ctx context.Context, path string) Result {
	res := Result{Method: "pdf-text"}

	txt, pages, err := readTextLayer(path)
	if err != nil {
		e.logger.Warn("pdf text layer unreadable", "path", path, "error", err)
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.Pages = pages
	res.Text = Normalize(txt)
	if res.Text != "" || e.cfg.Pdftotext == "" {
		return res
	}

	txt, pages, warn, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err != nil {
		e.logger.Warn("pdftotext failed", "path", path, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("pdftotext: %v", err))
		return res
	}
	res.Text = Normalize(txt)
	res.Pages = pages
	res.Method = "pdftotext"
	return res
}

func readTextLayer(path string) (text string, pages int, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pages = r.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		parts = append(parts, strings.Join(pageLines(p), "\n"))
	}
	return strings.Join(parts, "\n"), pages, nil
}

// pageLines rebuilds the lines of a page from its positioned glyphs, so layouts that place each line
// with Td or Tm keep their line breaks. Glyphs on the same baseline form one line, read left to right.
func pageLines(p pdf.Page) []string {
	type line struct {
		y      float64
		glyphs []pdf.Text
	}
	var lines []*line
	for _, g := range p.Content().Text {
		var cur *line
		for _, l := range lines {
			if math.Abs(l.y-g.Y) <= tolerance(g.FontSize) {
				cur = l
				break
			}
		}
		if cur == nil {
			cur = &line{y: g.Y}
			lines = append(lines, cur)
		}
		cur.glyphs = append(cur.glyphs, g)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		// fonts without a Widths array report zero advance, so glyphs of one string share X
		sort.SliceStable(l.glyphs, func(i, j int) bool { return l.glyphs[i].X < l.glyphs[j].X })
		var b strings.Builder
		for i, g := range l.glyphs {
			if i > 0 {
				prev := l.glyphs[i-1]
				gap := g.X - (prev.X + prev.W)
				if gap > tolerance(g.FontSize) && prev.S != " " && g.S != " " {
					b.WriteByte(' ')
				}
			}
			b.WriteString(g.S)
		}
		out = append(out, b.String())
	}
	return out
}

func tolerance(fontSize float64) float64 {
	return math.Max(fontSize*0.3, 1)
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, int, []string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		var warn []string
		if len(errb) > 0 {
			warn = append(warn, string(errb))
		}
		return "", 0, warn, err
	}
	text := string(out)
	// form feed separates pages
	return text, 1 + strings.Count(strings.TrimRight(text, "\f"), "\f"), nil, nil
}

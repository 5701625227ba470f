// Package textextract turns an uploaded file into plain text: the PDF text layer for PDFs, the raw
// contents for everything else.
package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/runner"
)

type Config struct {
	// Pdftotext is the binary used when the embedded PDF reader finds no text layer.
	// Empty disables the external fallback.
	Pdftotext string
}

type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdftotext" | "plain" | "raw"
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, r runner.Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.NewExecRunner(logger)
	}
	return &Extractor{cfg: cfg, runner: r, logger: logger}
}

// Extract reads path according to mediaType. A missing or unreadable file is an error; a PDF that
// cannot be decoded is not, it just produces empty text.
func (e *Extractor) Extract(ctx context.Context, path, mediaType string) (Result, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		e.logger.Error("document file not accessible", "path", path, "error", err)
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}

	var res Result
	switch {
	case constants.IsPDF(mediaType, path):
		res = e.extractPDF(ctx, path)
	case constants.IsText(mediaType):
		b, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("read %s: %w", path, err)
		}
		res = Result{Text: string(b), Pages: 1, Method: "plain"}
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("read %s: %w", path, err)
		}
		txt := string(b)
		if !utf8.ValidString(txt) {
			txt = strings.ToValidUTF8(txt, "�")
			res.Warnings = append(res.Warnings, "invalid utf-8 replaced")
		}
		res.Text, res.Pages, res.Method = txt, 1, "raw"
	}
	res.Duration = time.Since(start)
	e.logger.Debug("text extracted",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"text_length", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cnis-extractor/internal/fallback"
	"github.com/joseph-ayodele/cnis-extractor/internal/runner"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, content, 0o600))
	return p
}

// buildPDF writes a single-page PDF whose content stream is used verbatim, with a WinAnsi Helvetica
// font as /F1 and a correct cross-reference table.
func buildPDF(content string) []byte {
	content += "\n"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

// Lines placed with Td, with a column offset on one row, and with absolute Tm matrices.
const twoSectionsStream = `BT
/F1 10 Tf
50 750 Td (Seq. 1) Tj
0 -14 Td (12.345.678/0001-90) Tj
150 0 Td (ACME LTDA) Tj
-150 -14 Td (Empregado 01/02/1990 31/05/2000 1.500,00) Tj
ET
BT
/F1 10 Tf
1 0 0 1 50 700 Tm (Seq. 2) Tj
1 0 0 1 50 686 Tm (98.765.432/0001-10 BETA SA) Tj
1 0 0 1 50 672 Tm (Contribuinte Individual 01/06/2000) Tj
ET`

func TestExtractPDFKeepsLineBreaks(t *testing.T) {
	p := writeFile(t, "cnis.pdf", buildPDF(twoSectionsStream))
	fake := &runner.Fake{}

	res, err := NewExtractor(Config{Pdftotext: "pdftotext"}, fake, nil).Extract(context.Background(), p, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "Seq. 1\n"+
		"12.345.678/0001-90 ACME LTDA\n"+
		"Empregado 01/02/1990 31/05/2000 1.500,00\n"+
		"Seq. 2\n"+
		"98.765.432/0001-10 BETA SA\n"+
		"Contribuinte Individual 01/06/2000", res.Text)
	assert.Empty(t, fake.Calls(), "pdftotext runs only when the text layer is empty")

	records := fallback.ParseEmployment(res.Text)
	require.Len(t, records, 2)
	assert.Equal(t, "ACME LTDA", records[0].Employer)
	assert.Equal(t, "12.345.678/0001-90", records[0].TaxID)
	assert.Equal(t, "1990-02-01", records[0].StartDate)
	assert.Equal(t, "2000-05-31", records[0].EndDate)
	assert.InDelta(t, 1500.0, records[0].LastRemuneration, 0.001)
	assert.Equal(t, "BETA SA", records[1].Employer)
	assert.Equal(t, "2000-06-01", records[1].StartDate)
}

func TestExtractPDFWithoutTextLayerUsesPdftotext(t *testing.T) {
	p := writeFile(t, "scan.pdf", buildPDF("0 0 m 100 100 l S"))
	fake := &runner.Fake{Func: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("Seq. 1\n12.345.678/0001-90 ACME LTDA\n"), nil, nil
	}}

	res, err := NewExtractor(Config{Pdftotext: "pdftotext"}, fake, nil).Extract(context.Background(), p, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, "Seq. 1\n12.345.678/0001-90 ACME LTDA", res.Text)
	assert.Len(t, fake.Calls(), 1)
}

func TestExtractTextPassthrough(t *testing.T) {
	content := "Nome: MARIA\r\n\tlinha   dois\n"
	p := writeFile(t, "doc.txt", []byte(content))

	res, err := NewExtractor(Config{}, &runner.Fake{}, nil).Extract(context.Background(), p, "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, content, res.Text)
	assert.Equal(t, "plain", res.Method)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := NewExtractor(Config{}, &runner.Fake{}, nil).
		Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "application/pdf")
	require.Error(t, err)
}

func TestExtractBrokenPDFYieldsEmptyText(t *testing.T) {
	p := writeFile(t, "broken.pdf", []byte("not really a pdf"))

	res, err := NewExtractor(Config{}, &runner.Fake{}, nil).Extract(context.Background(), p, "application/pdf")
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtractPDFFallsBackToPdftotext(t *testing.T) {
	p := writeFile(t, "scan.pdf", []byte("%PDF-1.4 garbage"))
	fake := &runner.Fake{Func: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return []byte("Seq. 1\t12.345.678/0001-90   ACME LTDA\fpage two\f"), nil, nil
	}}

	res, err := NewExtractor(Config{Pdftotext: "pdftotext"}, fake, nil).Extract(context.Background(), p, "")
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Seq. 1 12.345.678/0001-90 ACME LTDA\npage two", res.Text)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", p, "-"}, calls[0].Args)
}

func TestExtractPDFPdftotextFailureIsNotAnError(t *testing.T) {
	p := writeFile(t, "scan.pdf", []byte("%PDF-1.4 garbage"))
	fake := &runner.Fake{Func: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error"), errors.New("exit status 1")
	}}

	res, err := NewExtractor(Config{Pdftotext: "pdftotext"}, fake, nil).Extract(context.Background(), p, "application/x-pdf")
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Contains(t, res.Warnings, "Syntax Error")
}

func TestExtractRawReplacesInvalidUTF8(t *testing.T) {
	p := writeFile(t, "blob.bin", []byte{'o', 'k', 0xff, 'x'})

	res, err := NewExtractor(Config{}, &runner.Fake{}, nil).Extract(context.Background(), p, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "ok�x", res.Text)
	assert.Equal(t, "raw", res.Method)
}

func TestNormalize(t *testing.T) {
	in := "a\t\tb   c  \r\n\n\n\n01/02/2003 \n"
	assert.Equal(t, "a b c\n\n01/02/2003", Normalize(in))
}

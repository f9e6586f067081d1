package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const unicodeFamily = "unicode"

// typeface captures the font family in use and how text must be translated
// before it reaches gofpdf.
type typeface struct {
	family string
	bold   string
	tr     func(string) string
}

// newDocument starts an A4 document. With a TTF font path the document embeds
// that font so CJK names render; otherwise it falls back to core Arial.
func newDocument(orientation, fontPath string) (*gofpdf.Fpdf, typeface) {
	if fontPath != "" {
		pdf := gofpdf.New(orientation, "mm", "A4", filepath.Dir(fontPath))
		pdf.AddUTF8Font(unicodeFamily, "", filepath.Base(fontPath))
		return pdf, typeface{family: unicodeFamily, tr: func(s string) string { return s }}
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	return pdf, typeface{family: "Arial", bold: "B", tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath may be empty.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	width := 190.0
	if len(data.Headers) > 6 {
		orientation = "L"
		width = 277.0
	}
	pdf, face := newDocument(orientation, e.fontPath)
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(face.family, face.bold, 14)
		pdf.CellFormat(0, 10, face.tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont(face.family, face.bold, 10)
	colWidth := width / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, face.tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(face.family, "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, face.tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

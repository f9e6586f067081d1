package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// StatementLine is one class row printed on a statement.
type StatementLine struct {
	Date    string
	Course  string
	Subject string
	Party   string
	Amount  string
}

// StatementDocument is the fully formatted content of one monthly statement.
type StatementDocument struct {
	Organization string
	Title        string
	PartyLabel   string
	PartyName    string
	PartyID      string
	Period       string
	// CounterpartLabel heads the column naming the other side of each class:
	// the teacher on a student statement, the student on a teacher statement.
	CounterpartLabel string
	Lines            []StatementLine
	Total            string
	Footer           string
}

// StatementRenderer lays out statements with a fixed header, one table and a
// payment-instructions footer.
type StatementRenderer struct {
	fontPath string
}

// NewStatementRenderer builds a renderer. fontPath may be empty.
func NewStatementRenderer(fontPath string) *StatementRenderer {
	return &StatementRenderer{fontPath: fontPath}
}

var statementColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 28, "C"},
	{"Course", 32, "C"},
	{"Subject", 50, "L"},
	{"", 50, "L"},
	{"Amount", 30, "R"},
}

// Render produces the PDF bytes for doc.
func (r *StatementRenderer) Render(doc StatementDocument) ([]byte, error) {
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("statement for %s has no lines", doc.PartyID)
	}
	pdf, face := newDocument("P", r.fontPath)
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(face.family, "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s %s - %d", doc.PartyID, doc.Period, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r.header(pdf, face, doc)
	r.table(pdf, face, doc)
	r.footer(pdf, face, doc)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout statement: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *StatementRenderer) header(pdf *gofpdf.Fpdf, face typeface, doc StatementDocument) {
	pdf.SetFont(face.family, face.bold, 16)
	pdf.CellFormat(0, 9, face.tr(doc.Organization), "", 1, "C", false, 0, "")
	pdf.SetFont(face.family, face.bold, 13)
	pdf.CellFormat(0, 8, face.tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(face.family, "", 10)
	pdf.CellFormat(95, 7, face.tr(fmt.Sprintf("%s: %s (%s)", doc.PartyLabel, doc.PartyName, doc.PartyID)), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, face.tr(fmt.Sprintf("Period: %s", doc.Period)), "", 1, "R", false, 0, "")
	pdf.Ln(3)
}

func (r *StatementRenderer) table(pdf *gofpdf.Fpdf, face typeface, doc StatementDocument) {
	pdf.SetFont(face.family, face.bold, 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range statementColumns {
		title := col.title
		if title == "" {
			title = doc.CounterpartLabel
		}
		pdf.CellFormat(col.width, 8, face.tr(title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(face.family, "", 9)
	for _, line := range doc.Lines {
		cells := []string{line.Date, line.Course, line.Subject, line.Party, line.Amount}
		for i, col := range statementColumns {
			pdf.CellFormat(col.width, 7, face.tr(cells[i]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	labelWidth := 0.0
	for _, col := range statementColumns[:len(statementColumns)-1] {
		labelWidth += col.width
	}
	pdf.SetFont(face.family, face.bold, 10)
	pdf.CellFormat(labelWidth, 8, face.tr("Total"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(statementColumns[len(statementColumns)-1].width, 8, face.tr(doc.Total), "1", 1, "R", true, 0, "")
}

func (r *StatementRenderer) footer(pdf *gofpdf.Fpdf, face typeface, doc StatementDocument) {
	if doc.Footer == "" {
		return
	}
	pdf.Ln(8)
	pdf.SetFont(face.family, "", 9)
	pdf.MultiCell(0, 5, face.tr(doc.Footer), "", "L", false)
}

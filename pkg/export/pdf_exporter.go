package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a paginated table. Wide datasets switch to landscape.
type PDFExporter struct {
	author string
	now    func() time.Time
}

// NewPDFExporter constructs a PDF exporter. Author is written to the document metadata and
// the page footer.
func NewPDFExporter(author string) *PDFExporter {
	return &PDFExporter{author: author, now: time.Now}
}

// Render creates a PDF document with an optional title and table body. The header row is
// repeated on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	if len(data.Headers) > 6 {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetAuthor(e.author, true)
	pdf.SetTitle(title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	generated := e.now().Format("2006-01-02 15:04")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s  %s  page %d", e.author, generated, pdf.PageNo())), "", 0, "R", false, 0, "")
	})

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	widths := columnWidths(data, pageWidth-left-right)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	header()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 7, tr(row[h]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths shares the printable width in proportion to the longest value per column,
// with a floor so short numeric columns stay readable.
func columnWidths(data Dataset, total float64) []float64 {
	const minChars = 4
	lengths := make([]int, len(data.Headers))
	sum := 0
	for i, h := range data.Headers {
		longest := len([]rune(h))
		for _, row := range data.Rows {
			if n := len([]rune(row[h])); n > longest {
				longest = n
			}
		}
		if longest < minChars {
			longest = minChars
		}
		if longest > 40 {
			longest = 40
		}
		lengths[i] = longest
		sum += longest
	}
	widths := make([]float64, len(lengths))
	for i, n := range lengths {
		widths[i] = total * float64(n) / float64(sum)
	}
	return widths
}

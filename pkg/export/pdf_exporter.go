package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// GridDocument describes a weekly grid: one row per time slot, one column
// per day. Cell text may span multiple lines.
type GridDocument struct {
	Title      string
	Subtitle   string
	Days       []string
	SlotLabels []string
	Cells      map[string]map[string]string
}

// RenderGrid creates a landscape PDF laying the grid out as a bordered
// table with the slot interval in the leftmost column.
func (e *PDFExporter) RenderGrid(doc GridDocument) ([]byte, error) {
	if len(doc.Days) == 0 || len(doc.SlotLabels) == 0 {
		return nil, fmt.Errorf("grid requires at least one day and one slot")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	const usableWidth = 277.0
	const timeColWidth = 32.0
	const headerHeight = 8.0
	const rowHeight = 18.0
	const leftMargin = 10.0
	dayWidth := (usableWidth - timeColWidth) / float64(len(doc.Days))

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(timeColWidth, headerHeight, "Time", "1", 0, "C", false, 0, "")
	for _, day := range doc.Days {
		pdf.CellFormat(dayWidth, headerHeight, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	for _, slot := range doc.SlotLabels {
		y := pdf.GetY()
		if y+rowHeight > 200 {
			pdf.AddPage()
			y = pdf.GetY()
		}
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(timeColWidth, rowHeight, slot, "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 7)
		for i, day := range doc.Days {
			cellX := leftMargin + timeColWidth + float64(i)*dayWidth
			pdf.Rect(cellX, y, dayWidth, rowHeight, "D")
			text := doc.Cells[slot][day]
			if text != "" {
				pdf.SetXY(cellX+1, y+2)
				pdf.MultiCell(dayWidth-2, 4, text, "", "C", false)
			}
		}
		pdf.SetXY(leftMargin, y+rowHeight)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render grid pdf: %w", err)
	}
	return buf.Bytes(), nil
}

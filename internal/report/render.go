package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/signintech/gopdf"

	"medtriage/internal/triage"
)

const fontFamily = "ReportSans"

var ErrFontNotFound = errors.New("no usable TTF font found")

// A4 in points.
const (
	pageWidth  = 595.28
	pageHeight = 841.89
	margin     = 56.7
	contentW   = pageWidth - 2*margin
	lineHeight = 12.0
)

type Renderer struct {
	fontPaths []string
}

func NewRenderer(fontPaths []string) *Renderer {
	return &Renderer{fontPaths: fontPaths}
}

// Render lays out rec against the loaded font and draws it onto a single A4
// page.
func (r *Renderer) Render(rec triage.HistoryRecord) ([]byte, error) {
	d, err := r.newPage()
	if err != nil {
		return nil, err
	}
	doc := Layout(rec, d.measure)

	d.header(doc)
	y := 170.0
	y = d.patient(doc.Patient, y)
	y = d.lines("Reported Symptoms", doc.SymptomLines, y)
	y = d.badge(doc.Risk, y)
	y = d.lines("AI Analysis", doc.ExplanationLines, y)
	d.specialist(doc.Specialist, y)
	d.footer(doc)

	if d.err != nil {
		return nil, fmt.Errorf("failed to draw report: %w", d.err)
	}

	var buf bytes.Buffer
	if _, err := d.pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) newPage() (*drawer, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()
	if err := r.loadFont(pdf); err != nil {
		return nil, err
	}
	return &drawer{pdf: pdf}, nil
}

func (r *Renderer) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range r.fontPaths {
		if err := pdf.AddTTFFont(fontFamily, path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrFontNotFound, lastErr)
	}
	return ErrFontNotFound
}

// drawer keeps the first drawing error so the layout code reads top to bottom.
type drawer struct {
	pdf *gopdf.GoPdf
	err error
}

// measure sets the report font at size and returns the width of s. After a
// drawing error it reports zero.
func (d *drawer) measure(s string, size int) float64 {
	if d.err != nil {
		return 0
	}
	if d.err = d.pdf.SetFont(fontFamily, "", size); d.err != nil {
		return 0
	}
	w, err := d.pdf.MeasureTextWidth(s)
	if err != nil {
		d.err = err
		return 0
	}
	return w
}

func (d *drawer) font(size int, c RGB) {
	if d.err != nil {
		return
	}
	d.err = d.pdf.SetFont(fontFamily, "", size)
	d.pdf.SetTextColor(c.R, c.G, c.B)
}

func (d *drawer) text(x, y float64, s string) {
	if d.err != nil {
		return
	}
	d.pdf.SetXY(x, y)
	d.err = d.pdf.Cell(nil, s)
}

func (d *drawer) aligned(x, y, w, h float64, s string, align int) {
	if d.err != nil {
		return
	}
	d.pdf.SetXY(x, y)
	d.err = d.pdf.CellWithOption(&gopdf.Rect{W: w, H: h}, s, gopdf.CellOption{Align: align})
}

func (d *drawer) header(doc Document) {
	d.pdf.SetFillColor(224, 242, 241)
	d.pdf.RectFromUpperLeftWithStyle(0, 0, pageWidth, 142, "F")

	d.font(22, ColorPrimary)
	d.text(margin, 45, doc.Title)
	d.font(bodySize, ColorDark)
	for i, l := range doc.Tagline {
		d.text(margin, 78+float64(i)*lineHeight, l)
	}
	d.aligned(margin, 50, contentW, lineHeight, doc.Generated, gopdf.Right|gopdf.Middle)
}

func (d *drawer) heading(title string, y float64) float64 {
	d.font(12, ColorPrimary)
	d.text(margin, y, title)
	d.pdf.SetStrokeColor(ColorPrimary.R, ColorPrimary.G, ColorPrimary.B)
	d.pdf.SetLineWidth(1)
	d.pdf.Line(margin, y+17, pageWidth-margin, y+17)
	return y + 26
}

func (d *drawer) patient(p PatientSummary, y float64) float64 {
	y = d.heading("Patient Summary", y)
	d.font(bodySize, ColorDark)
	d.text(margin, y, "Name: "+p.Name)
	d.text(margin+230, y, "Age: "+p.Age)
	d.text(margin+370, y, "Gender: "+p.Gender)
	d.text(margin, y+lineHeight+4, "Duration: "+p.Duration)
	return y + 2*lineHeight + 24
}

func (d *drawer) lines(title string, lines []string, y float64) float64 {
	y = d.heading(title, y)
	d.font(bodySize, ColorDark)
	for _, l := range lines {
		d.text(margin, y, l)
		y += lineHeight
	}
	return y + 18
}

func (d *drawer) badge(b Badge, y float64) float64 {
	y = d.heading("Risk Assessment", y)
	d.pdf.SetFillColor(b.Color.R, b.Color.G, b.Color.B)
	d.pdf.RectFromUpperLeftWithStyle(margin, y, 113, 22, "F")
	d.font(11, RGB{255, 255, 255})
	d.aligned(margin, y, 113, 22, b.Label, gopdf.Center|gopdf.Middle)
	return y + 40
}

func (d *drawer) specialist(s Specialist, y float64) {
	boxH := 50 + float64(len(s.ReasonLines))*lineHeight
	d.pdf.SetFillColor(241, 245, 249)
	d.pdf.SetStrokeColor(203, 213, 225)
	d.pdf.SetLineWidth(0.5)
	d.pdf.RectFromUpperLeftWithStyle(margin, y, contentW, boxH, "FD")

	d.font(bodySize, ColorPrimary)
	d.text(margin+boxPadding, y+10, "RECOMMENDED SPECIALIST")
	d.font(specialistSize, ColorDark)
	d.text(margin+boxPadding, y+26, s.Specialization)
	d.font(bodySize, ColorMuted)
	for i, l := range s.ReasonLines {
		d.text(margin+boxPadding, y+44+float64(i)*lineHeight, l)
	}
}

func (d *drawer) footer(doc Document) {
	bottom := pageHeight - 85
	d.pdf.SetStrokeColor(200, 200, 200)
	d.pdf.SetLineWidth(0.5)
	d.pdf.Line(margin, bottom-8, pageWidth-margin, bottom-8)

	d.font(disclaimerSize, RGB{150, 150, 150})
	for i, l := range doc.DisclaimerLines {
		d.text(margin, bottom+float64(i)*11, l)
	}
	d.font(8, ColorMuted)
	d.aligned(margin, pageHeight-40, contentW, 11, doc.Footer, gopdf.Center|gopdf.Middle)
}

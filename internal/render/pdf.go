package render

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	pageWidth   = 612.0
	pageHeight  = 792.0
	pageMargin  = 54.0
	lineSpacing = 1.35
	// avgGlyphWidth approximates Helvetica's mean advance width per em.
	avgGlyphWidth = 0.5
)

type pdfLine struct {
	text   string
	size   float64
	bold   bool
	indent float64
}

// pdfWriter lays out wrapped lines onto pages.
type pdfWriter struct {
	pages [][]pdfLine
	cur   []pdfLine
	y     float64
}

func newPDFWriter() *pdfWriter {
	return &pdfWriter{y: pageHeight - pageMargin}
}

// paragraph wraps text to the printable width and adds it.
func (w *pdfWriter) paragraph(text string, size float64, bold bool, indent float64) {
	for _, raw := range strings.Split(text, "\n") {
		for _, line := range wrap(raw, maxChars(size, indent)) {
			w.line(pdfLine{text: line, size: size, bold: bold, indent: indent})
		}
	}
}

func (w *pdfWriter) line(l pdfLine) {
	step := l.size * lineSpacing
	if w.y-step < pageMargin {
		w.pageBreak()
	}
	w.y -= step
	w.cur = append(w.cur, l)
}

// space adds vertical whitespace as an empty line.
func (w *pdfWriter) space(size float64) {
	w.line(pdfLine{size: size})
}

func (w *pdfWriter) pageBreak() {
	if len(w.cur) > 0 {
		w.pages = append(w.pages, w.cur)
	}
	w.cur = nil
	w.y = pageHeight - pageMargin
}

// bytes serializes the document with a cross-reference table.
func (w *pdfWriter) bytes() []byte {
	w.pageBreak()
	if len(w.pages) == 0 {
		w.pages = [][]pdfLine{{}}
	}

	var buf bytes.Buffer
	offsets := []int{0}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	const firstPage = 5
	kids := make([]string, len(w.pages))
	for i := range w.pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(w.pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>")
	for i, page := range w.pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f %.0f] /Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> /Contents %d 0 R >>",
			pageWidth, pageHeight, firstPage+2*i+1))
		stream := pageStream(page, i+1, len(w.pages))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets))
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)
	return buf.Bytes()
}

func pageStream(lines []pdfLine, number, total int) string {
	var b strings.Builder
	y := pageHeight - pageMargin
	for _, l := range lines {
		y -= l.size * lineSpacing
		if l.text == "" {
			continue
		}
		font := "F1"
		if l.bold {
			font = "F2"
		}
		fmt.Fprintf(&b, "BT /%s %.1f Tf %.2f %.2f Td (%s) Tj ET\n", font, l.size, pageMargin+l.indent, y, escapePDF(l.text))
	}
	footer := fmt.Sprintf("Page %d of %d", number, total)
	fmt.Fprintf(&b, "BT /F1 9 Tf %.2f %.2f Td (%s) Tj ET", pageWidth/2-20, pageMargin/2, footer)
	return b.String()
}

// escapePDF encodes s as WinAnsi and escapes string delimiters. Runes
// outside the code page become "?".
func escapePDF(s string) string {
	winAnsi := charmap.Windows1252.NewEncoder()
	var b strings.Builder
	for _, r := range s {
		enc, err := winAnsi.String(string(r))
		if err != nil || enc == "" {
			enc = "?"
		}
		for i := 0; i < len(enc); i++ {
			c := enc[i]
			switch {
			case c == '(' || c == ')' || c == '\\':
				b.WriteByte('\\')
				b.WriteByte(c)
			case c < 0x20 || c >= 0x7f:
				fmt.Fprintf(&b, "\\%03o", c)
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

func maxChars(size, indent float64) int {
	width := pageWidth - 2*pageMargin - indent
	n := int(width / (size * avgGlyphWidth))
	return max(n, 10)
}

// wrap breaks text at spaces so each line holds at most limit runes. Words
// longer than limit are split.
func wrap(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   []rune
	)
	for _, word := range words {
		wr := []rune(word)
		for len(wr) > limit {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(wr[:limit]))
			wr = wr[limit:]
		}
		switch {
		case len(cur) == 0:
			cur = wr
		case len(cur)+1+len(wr) <= limit:
			cur = append(append(cur, ' '), wr...)
		default:
			lines = append(lines, string(cur))
			cur = wr
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// Package docx builds Word documents from classified OCR lines or raw text
// and serializes them to WordprocessingML. Serialization is deterministic:
// the same document produces byte-identical output on every call.
package docx

import (
	"strings"

	"github.com/smartocr/ocr-docx-service/internal/layout"
)

// Style identifies the paragraph style a line maps to.
type Style int

const (
	StyleNormal Style = iota
	StyleHeading2
	StyleHeading3
	StyleListBullet
	StyleListNumber
)

// Paragraph is one styled paragraph of the in-memory document.
type Paragraph struct {
	Text          string
	Style         Style
	Bold          bool
	SizePt        float64 // 0 means style default
	IndentTwips   int
	SpaceBeforePt float64
	PageBreak     bool // emit a page break instead of text
}

// Document is an ordered sequence of styled paragraphs, built incrementally
// and serialized once.
type Document struct {
	paragraphs []Paragraph
}

// New creates an empty document.
func New() *Document {
	return &Document{}
}

// Add appends a paragraph.
func (d *Document) Add(p Paragraph) {
	d.paragraphs = append(d.paragraphs, p)
}

// AddPageBreak inserts a page break between pages of a multi-image
// document.
func (d *Document) AddPageBreak() {
	d.paragraphs = append(d.paragraphs, Paragraph{PageBreak: true})
}

// Len reports the number of paragraphs.
func (d *Document) Len() int {
	return len(d.paragraphs)
}

const (
	// twipsPerIndentLevel is the left offset per indentation bucket
	// (360 twips = 0.25 inch).
	twipsPerIndentLevel = 360

	emptyPagePlaceholder = "(empty OCR result)"
)

// AppendClassified renders classified lines into the document. Mapping is
// deterministic: list items keep their kind, headings pick the larger style
// when the height ratio clears the major threshold, and non-list paragraphs
// (headings included) carry their indentation as a left offset.
func (d *Document) AppendClassified(lines []layout.ClassifiedLine, params layout.Params) {
	if len(lines) == 0 {
		d.Add(Paragraph{Text: emptyPagePlaceholder})
		return
	}
	for _, cl := range lines {
		d.Add(paragraphFor(cl, params))
	}
}

func paragraphFor(cl layout.ClassifiedLine, params layout.Params) Paragraph {
	p := Paragraph{
		Text:          strings.TrimSpace(cl.Text),
		SpaceBeforePt: cl.SpaceBeforePt,
	}

	switch cl.Role {
	case layout.RoleListItem:
		if cl.List == layout.ListBullet {
			p.Style = StyleListBullet
			p.Text = layout.StripBullet(p.Text)
		} else {
			p.Style = StyleListNumber
			p.Text = stripNumberMarker(p.Text)
		}
		p.SizePt = clampPt(cl.FontSizePt, 10, 14)
	case layout.RoleHeading:
		if cl.HeightRatio >= params.MajorHeadingRatio {
			p.Style = StyleHeading2
		} else {
			p.Style = StyleHeading3
		}
		p.Bold = true
		p.SizePt = clampPt(cl.FontSizePt+2, 12, 18)
		p.IndentTwips = cl.Indent * twipsPerIndentLevel
	default:
		p.Style = StyleNormal
		p.SizePt = clampPt(cl.FontSizePt, 10, 14)
		p.IndentTwips = cl.Indent * twipsPerIndentLevel
	}
	return p
}

// stripNumberMarker removes a leading "1." / "12)" style marker; the list
// numbering regenerates it.
func stripNumberMarker(s string) string {
	t := strings.TrimSpace(s)
	i := 0
	for i < len(t) && i < 2 && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(t) {
		return t
	}
	if t[i] == '.' || t[i] == ')' {
		i++
	}
	return strings.TrimSpace(t[i:])
}

func clampPt(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

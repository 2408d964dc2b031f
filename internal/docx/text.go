package docx

import (
	"strings"

	"github.com/smartocr/ocr-docx-service/internal/layout"
)

const (
	textHeadingMaxLen  = 60
	textHeadingUpshare = 0.25
	textHeadingSizePt  = 14
	textBodySizePt     = 11
)

// FromText builds a document from raw text with the geometry-free
// heuristics: leading markers decide list kind, short mostly-uppercase
// lines become headings, blank-line runs turn into a single spacing
// paragraph.
func FromText(text string) *Document {
	doc := New()

	t := strings.ReplaceAll(text, "\r\n", "\n")
	t = strings.Trim(t, "\n")
	if strings.TrimSpace(t) == "" {
		doc.Add(Paragraph{})
		return doc
	}

	blank := false
	for _, raw := range strings.Split(t, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			blank = true
			continue
		}
		if blank {
			doc.Add(Paragraph{})
			blank = false
		}
		doc.Add(textParagraph(line))
	}
	return doc
}

func textParagraph(line string) Paragraph {
	switch {
	case layout.IsNumbered(line):
		return Paragraph{
			Style:  StyleListNumber,
			Text:   stripNumberMarker(line),
			SizePt: textBodySizePt,
		}
	case layout.IsBullet(line):
		return Paragraph{
			Style:  StyleListBullet,
			Text:   layout.StripBullet(line),
			SizePt: textBodySizePt,
		}
	case layout.IsUppercaseHeading(line, textHeadingMaxLen, textHeadingUpshare):
		return Paragraph{
			Style:  StyleHeading2,
			Text:   line,
			Bold:   true,
			SizePt: textHeadingSizePt,
		}
	default:
		return Paragraph{
			Style:  StyleNormal,
			Text:   line,
			SizePt: textBodySizePt,
		}
	}
}

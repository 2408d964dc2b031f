// Package layout classifies recognized text lines into headings, list items
// and body paragraphs from their bounding-box geometry. Everything here is a
// pure function: given the same lines and parameters the classification is
// identical, and every per-line decision depends only on that line plus
// page-wide statistics, never on line order.
package layout

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smartocr/ocr-docx-service/internal/models"
	"github.com/smartocr/ocr-docx-service/internal/ocr"
)

// Role is the classification assigned to a line.
type Role int

const (
	RoleBody Role = iota
	RoleHeading
	RoleListItem
)

// ListKind distinguishes the two list marker families.
type ListKind int

const (
	ListNone ListKind = iota
	ListBullet
	ListNumber
)

// Params holds the heuristic thresholds. The defaults are the empirically
// tuned values; callers may override any of them through configuration.
type Params struct {
	// HeadingRatio is the height-to-median ratio a line must strictly
	// exceed to qualify as a heading. A line exactly at the threshold is
	// body text.
	HeadingRatio float64

	// MajorHeadingRatio promotes a heading to the larger heading style.
	MajorHeadingRatio float64

	// MaxHeadingLen is the longest text (in characters) still considered
	// short enough for a heading.
	MaxHeadingLen int

	// IndentStep is the bucket width in pixels for indentation levels.
	IndentStep int

	// MaxIndent caps the indentation level.
	MaxIndent int
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		HeadingRatio:      1.5,
		MajorHeadingRatio: 2.0,
		MaxHeadingLen:     100,
		IndentStep:        50,
		MaxIndent:         6,
	}
}

// ParamsFromConfig builds Params from the service configuration, falling
// back to defaults for unset values.
func ParamsFromConfig(cfg models.LayoutConfig) Params {
	p := DefaultParams()
	if cfg.HeadingRatio > 0 {
		p.HeadingRatio = cfg.HeadingRatio
	}
	if cfg.MajorHeadingRatio > 0 {
		p.MajorHeadingRatio = cfg.MajorHeadingRatio
	}
	if cfg.MaxHeadingLen > 0 {
		p.MaxHeadingLen = cfg.MaxHeadingLen
	}
	if cfg.IndentStepPx > 0 {
		p.IndentStep = cfg.IndentStepPx
	}
	if cfg.MaxIndent > 0 {
		p.MaxIndent = cfg.MaxIndent
	}
	return p
}

// ClassifiedLine is a recognized line with its role, list kind, indentation
// level and writer hints attached.
type ClassifiedLine struct {
	ocr.Line

	Role   Role
	List   ListKind
	Indent int

	// HeightRatio is line height over the page's median line height.
	HeightRatio float64

	// FontSizePt is the estimated source font size in points.
	FontSizePt float64

	// SpaceBeforePt is extra vertical spacing (points) suggested before
	// this line, derived from the gap to the preceding line. Zero means
	// none. This is a rendering hint, not part of the classification.
	SpaceBeforePt float64
}

const (
	ocrDPI      = 300
	minFontSize = 9
	maxFontSize = 28
)

// Classify assigns a role and indentation level to every line. Input order
// is preserved; the role of each line depends only on its own geometry and
// on page statistics (median height, leftmost edge) that are independent of
// ordering.
func Classify(lines []ocr.Line, p Params) []ClassifiedLine {
	if len(lines) == 0 {
		return nil
	}

	median := medianHeight(lines)
	minLeft := lines[0].Box.X
	for _, l := range lines[1:] {
		if l.Box.X < minLeft {
			minLeft = l.Box.X
		}
	}

	out := make([]ClassifiedLine, len(lines))
	for i, l := range lines {
		cl := ClassifiedLine{Line: l, HeightRatio: 1.0}
		if median > 0 {
			cl.HeightRatio = float64(l.Box.Height) / float64(median)
		}
		cl.FontSizePt = pxToPt(l.Box.Height)

		text := strings.TrimSpace(l.Text)
		switch {
		case IsBullet(text):
			cl.Role = RoleListItem
			cl.List = ListBullet
		case IsNumbered(text):
			cl.Role = RoleListItem
			cl.List = ListNumber
		default:
			// headings keep their left offset too; only list items
			// delegate indentation to the list style
			cl.Indent = indentLevel(l.Box.X-minLeft, p)
			if isHeading(text, cl.HeightRatio, p) {
				cl.Role = RoleHeading
			} else {
				cl.Role = RoleBody
			}
		}

		if i > 0 {
			prev := lines[i-1]
			gap := l.Box.Y - (prev.Box.Y + prev.Box.Height)
			if median > 0 && float64(gap) > float64(median)*0.8 {
				cl.SpaceBeforePt = clamp(float64(gap)/5.0, 3, 12)
			}
		}
		out[i] = cl
	}
	return out
}

// isHeading applies the size rule: strictly larger than the threshold and
// short. Ties at the threshold stay body text.
func isHeading(text string, heightRatio float64, p Params) bool {
	// character count, not bytes: Cyrillic text is two bytes per letter
	if text == "" || utf8.RuneCountInString(text) > p.MaxHeadingLen {
		return false
	}
	return heightRatio > p.HeadingRatio
}

// bulletMarkers are the glyphs accepted as bullet list markers.
const bulletMarkers = "•-·*○■►"

// IsBullet reports whether the line starts with a bullet marker.
func IsBullet(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return false
	}
	for _, m := range bulletMarkers {
		if strings.HasPrefix(s, string(m)) {
			return true
		}
	}
	return false
}

// IsNumbered reports whether the line starts with a one- or two-digit
// number followed by '.', ')' or a space.
func IsNumbered(text string) bool {
	s := strings.TrimSpace(text)
	if len(s) < 2 || !isDigit(s[0]) {
		return false
	}
	if isNumberSep(s[1]) {
		return true
	}
	return len(s) >= 3 && isDigit(s[1]) && isNumberSep(s[2])
}

func isDigit(b byte) bool     { return b >= '0' && b <= '9' }
func isNumberSep(b byte) bool { return b == '.' || b == ')' || b == ' ' }

// StripBullet removes a leading bullet marker and surrounding space so the
// writer can emit its own list glyph.
func StripBullet(text string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(text), bulletMarkers+" "))
}

// IsUppercaseHeading is the geometry-free heading heuristic used on the
// plain-text path: short lines with a high share of capital letters.
func IsUppercaseHeading(text string, maxLen int, minShare float64) bool {
	s := strings.TrimSpace(text)
	n := utf8.RuneCountInString(s)
	if s == "" || n > maxLen {
		return false
	}
	upper := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	need := int(float64(n) * minShare)
	if need < 3 {
		need = 3
	}
	return upper >= need
}

func medianHeight(lines []ocr.Line) int {
	heights := make([]int, len(lines))
	for i, l := range lines {
		heights[i] = l.Box.Height
	}
	sort.Ints(heights)
	return heights[len(heights)/2]
}

func indentLevel(offsetPx int, p Params) int {
	if offsetPx <= 0 || p.IndentStep <= 0 {
		return 0
	}
	level := offsetPx / p.IndentStep
	if level > p.MaxIndent {
		level = p.MaxIndent
	}
	return level
}

// pxToPt estimates the source font size from a pixel height at the fixed
// OCR resolution, clamped to a sane range.
func pxToPt(px int) float64 {
	pt := float64(px) / ocrDPI * 72.0
	return clamp(pt, minFontSize, maxFontSize)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

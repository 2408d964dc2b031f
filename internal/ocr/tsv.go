package ocr

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BoundingBox represents the location of recognized text in the image
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Word is a single recognized word with its geometry.
type Word struct {
	Text       string
	Confidence float64
	Box        BoundingBox
}

// Line is a recognized text line assembled from word records.
type Line struct {
	Text       string
	Confidence float64
	Box        BoundingBox
}

// Page holds the ordered lines recognized on one image.
type Page struct {
	Lines []Line
}

// Text joins the page lines with newlines.
func (p Page) Text() string {
	parts := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// wordLevel is the TSV record level for individual words.
const wordLevel = 5

type lineKey struct {
	block, par, line int
}

// ParseTSV converts tesseract's TSV output into lines. Word records that
// share a (block, paragraph, line) key are merged left-to-right; a
// horizontal gap wider than 1.2x the line height becomes a double space so
// columnar spacing survives into the text. Lines come back sorted by
// (top, left).
func ParseTSV(data []byte) (Page, error) {
	groups := make(map[lineKey][]Word)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		row := scanner.Text()
		if first {
			// header row
			first = false
			continue
		}
		fields := strings.Split(row, "\t")
		if len(fields) < 12 {
			continue
		}

		level, err := strconv.Atoi(fields[0])
		if err != nil || level != wordLevel {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}

		block, _ := strconv.Atoi(fields[2])
		par, _ := strconv.Atoi(fields[3])
		line, _ := strconv.Atoi(fields[4])
		left, _ := strconv.Atoi(fields[6])
		top, _ := strconv.Atoi(fields[7])
		width, _ := strconv.Atoi(fields[8])
		height, _ := strconv.Atoi(fields[9])

		key := lineKey{block, par, line}
		groups[key] = append(groups[key], Word{
			Text:       text,
			Confidence: conf,
			Box:        BoundingBox{X: left, Y: top, Width: width, Height: height},
		})
	}
	if err := scanner.Err(); err != nil {
		return Page{}, fmt.Errorf("scan tsv: %w", err)
	}

	lines := make([]Line, 0, len(groups))
	for _, words := range groups {
		if l, ok := mergeWords(words); ok {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Box.Y != lines[j].Box.Y {
			return lines[i].Box.Y < lines[j].Box.Y
		}
		return lines[i].Box.X < lines[j].Box.X
	})
	return Page{Lines: lines}, nil
}

// mergeWords assembles one line from its words.
func mergeWords(words []Word) (Line, bool) {
	if len(words) == 0 {
		return Line{}, false
	}
	sort.Slice(words, func(i, j int) bool { return words[i].Box.X < words[j].Box.X })

	left := words[0].Box.X
	top := words[0].Box.Y
	height := 0
	for _, w := range words {
		if w.Box.Y < top {
			top = w.Box.Y
		}
		if w.Box.Height > height {
			height = w.Box.Height
		}
	}

	var b strings.Builder
	var confSum float64
	prevRight := -1
	for _, w := range words {
		if prevRight >= 0 {
			if gap := w.Box.X - prevRight; float64(gap) > float64(height)*1.2 {
				b.WriteString("  ")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString(w.Text)
		confSum += w.Confidence
		prevRight = w.Box.X + w.Box.Width
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return Line{}, false
	}
	return Line{
		Text:       text,
		Confidence: confSum / float64(len(words)),
		Box:        BoundingBox{X: left, Y: top, Width: prevRight - left, Height: height},
	}, true
}

package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/smartocr/ocr-docx-service/internal/layout"
	"github.com/smartocr/ocr-docx-service/internal/ocr"
)

func classified(text string, role layout.Role, kind layout.ListKind, ratio float64) layout.ClassifiedLine {
	return layout.ClassifiedLine{
		Line:        ocr.Line{Text: text, Box: ocr.BoundingBox{Height: 20}},
		Role:        role,
		List:        kind,
		HeightRatio: ratio,
		FontSizePt:  11,
	}
}

func docPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("output is not a zip archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(content)
	}
	t.Fatalf("part %s missing from archive", name)
	return ""
}

func TestBytesDeterministic(t *testing.T) {
	build := func() []byte {
		doc := New()
		doc.AppendClassified([]layout.ClassifiedLine{
			classified("Heading", layout.RoleHeading, layout.ListNone, 2.1),
			classified("body text", layout.RoleBody, layout.ListNone, 1.0),
			classified("- item", layout.RoleListItem, layout.ListBullet, 1.0),
		}, layout.DefaultParams())
		data, err := doc.Bytes()
		if err != nil {
			t.Fatalf("Bytes() error = %v", err)
		}
		return data
	}

	if !bytes.Equal(build(), build()) {
		t.Fatal("identical documents serialized to different bytes")
	}
}

func TestArchiveStructure(t *testing.T) {
	doc := New()
	doc.Add(Paragraph{Text: "hello"})
	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	for _, part := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/_rels/document.xml.rels",
		"word/document.xml",
		"word/styles.xml",
		"word/numbering.xml",
	} {
		docPart(t, data, part)
	}
}

func TestAppendClassifiedStyleMapping(t *testing.T) {
	params := layout.DefaultParams()
	doc := New()
	doc.AppendClassified([]layout.ClassifiedLine{
		classified("MAJOR", layout.RoleHeading, layout.ListNone, 2.5),
		classified("minor heading", layout.RoleHeading, layout.ListNone, 1.6),
		classified("• bullet item", layout.RoleListItem, layout.ListBullet, 1.0),
		classified("1. numbered item", layout.RoleListItem, layout.ListNumber, 1.0),
		classified("plain body", layout.RoleBody, layout.ListNone, 1.0),
	}, params)

	wants := []struct {
		style Style
		text  string
		bold  bool
	}{
		{StyleHeading2, "MAJOR", true},
		{StyleHeading3, "minor heading", true},
		{StyleListBullet, "bullet item", false},
		{StyleListNumber, "numbered item", false},
		{StyleNormal, "plain body", false},
	}
	if doc.Len() != len(wants) {
		t.Fatalf("paragraph count = %d, want %d", doc.Len(), len(wants))
	}
	for i, want := range wants {
		p := doc.paragraphs[i]
		if p.Style != want.style || p.Text != want.text || p.Bold != want.bold {
			t.Errorf("paragraph %d = %+v, want style=%v text=%q bold=%v",
				i, p, want.style, want.text, want.bold)
		}
	}
}

func TestAppendClassifiedIndent(t *testing.T) {
	cl := classified("indented", layout.RoleBody, layout.ListNone, 1.0)
	cl.Indent = 2

	doc := New()
	doc.AppendClassified([]layout.ClassifiedLine{cl}, layout.DefaultParams())
	if got := doc.paragraphs[0].IndentTwips; got != 2*twipsPerIndentLevel {
		t.Errorf("indent = %d twips, want %d", got, 2*twipsPerIndentLevel)
	}

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	xml := docPart(t, data, "word/document.xml")
	if !strings.Contains(xml, `<w:ind w:left="720"/>`) {
		t.Error("document.xml missing indent element")
	}
}

func TestAppendClassifiedHeadingKeepsIndent(t *testing.T) {
	cl := classified("Offset Heading", layout.RoleHeading, layout.ListNone, 1.6)
	cl.Indent = 1

	doc := New()
	doc.AppendClassified([]layout.ClassifiedLine{cl}, layout.DefaultParams())
	p := doc.paragraphs[0]
	if p.Style != StyleHeading3 {
		t.Fatalf("style = %v, want Heading3", p.Style)
	}
	if p.IndentTwips != twipsPerIndentLevel {
		t.Errorf("heading indent = %d twips, want %d", p.IndentTwips, twipsPerIndentLevel)
	}
}

func TestAppendClassifiedEmptyPage(t *testing.T) {
	doc := New()
	doc.AppendClassified(nil, layout.DefaultParams())
	if doc.Len() != 1 || doc.paragraphs[0].Text != emptyPagePlaceholder {
		t.Errorf("empty page produced %+v", doc.paragraphs)
	}
}

func TestPageBreakElement(t *testing.T) {
	doc := New()
	doc.Add(Paragraph{Text: "page one"})
	doc.AddPageBreak()
	doc.Add(Paragraph{Text: "page two"})

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	xml := docPart(t, data, "word/document.xml")
	if !strings.Contains(xml, `<w:br w:type="page"/>`) {
		t.Error("document.xml missing page break")
	}
}

func TestDocumentXMLEscapesText(t *testing.T) {
	doc := New()
	doc.Add(Paragraph{Text: `a < b & "c"`})
	xml := doc.documentXML()
	if strings.Contains(xml, `a < b`) {
		t.Error("text not XML-escaped")
	}
	if !strings.Contains(xml, "a &lt; b &amp;") {
		t.Errorf("escaped text missing from %q", xml)
	}
}

func TestStripNumberMarker(t *testing.T) {
	tests := []struct{ in, want string }{
		{"1. first", "first"},
		{"12) twelfth", "twelfth"},
		{"3 loose", "loose"},
		{"nothing", "nothing"},
	}
	for _, tt := range tests {
		if got := stripNumberMarker(tt.in); got != tt.want {
			t.Errorf("stripNumberMarker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

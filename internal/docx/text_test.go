package docx

import (
	"strings"
	"testing"
)

func TestFromTextMarkers(t *testing.T) {
	doc := FromText("1. numbered line\n- bulleted line\nplain line")
	if doc.Len() != 3 {
		t.Fatalf("paragraph count = %d, want 3", doc.Len())
	}

	wants := []struct {
		style Style
		text  string
	}{
		{StyleListNumber, "numbered line"},
		{StyleListBullet, "bulleted line"},
		{StyleNormal, "plain line"},
	}
	for i, want := range wants {
		p := doc.paragraphs[i]
		if p.Style != want.style || p.Text != want.text {
			t.Errorf("paragraph %d = %+v, want style=%v text=%q", i, p, want.style, want.text)
		}
	}
}

func TestFromTextHeading(t *testing.T) {
	doc := FromText("PROJECT OVERVIEW\nA normal paragraph follows the heading line.")
	p := doc.paragraphs[0]
	if p.Style != StyleHeading2 || !p.Bold || p.SizePt != textHeadingSizePt {
		t.Errorf("heading paragraph = %+v", p)
	}
	if doc.paragraphs[1].Style != StyleNormal {
		t.Errorf("body paragraph = %+v", doc.paragraphs[1])
	}
}

func TestFromTextCyrillicHeading(t *testing.T) {
	// 39 characters, 75 bytes: the length cap counts characters
	doc := FromText("ПОЛНОСТЬЮ ПРОПИСНОЙ ЗАГОЛОВОК ДОКУМЕНТА\nобычный текст абзаца после заголовка")
	if p := doc.paragraphs[0]; p.Style != StyleHeading2 || !p.Bold {
		t.Errorf("Cyrillic heading paragraph = %+v", p)
	}
	if p := doc.paragraphs[1]; p.Style != StyleNormal {
		t.Errorf("Cyrillic body paragraph = %+v", p)
	}
}

func TestFromTextBlankLinesCollapse(t *testing.T) {
	doc := FromText("first paragraph of text\n\n\n\nsecond paragraph of text")
	if doc.Len() != 3 {
		t.Fatalf("paragraph count = %d, want 3 (text, spacer, text)", doc.Len())
	}
	if doc.paragraphs[1].Text != "" {
		t.Errorf("middle paragraph should be an empty spacer, got %+v", doc.paragraphs[1])
	}
}

func TestFromTextEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n"} {
		doc := FromText(in)
		if doc.Len() != 1 {
			t.Errorf("FromText(%q) produced %d paragraphs, want 1 empty", in, doc.Len())
		}
	}
}

func TestFromTextCRLF(t *testing.T) {
	doc := FromText("line one text here\r\nline two text here")
	if doc.Len() != 2 {
		t.Fatalf("paragraph count = %d, want 2", doc.Len())
	}
	for _, p := range doc.paragraphs {
		if strings.ContainsAny(p.Text, "\r\n") {
			t.Errorf("paragraph text contains line endings: %q", p.Text)
		}
	}
}

func TestFromTextDeterministic(t *testing.T) {
	in := "TITLE LINE\n1. one\n- two\nbody"
	a, err := FromText(in).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	b, err := FromText(in).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("same text produced different document bytes")
	}
}

package document

import (
	"context"
	"strings"
	"testing"
)

func TestConvert_FormFeedPages(t *testing.T) {
	c := NewPlainText()
	deck := "Cover slide\fProblem\n\nBig market\f\fTraction: 40 customers"

	pages, err := c.Convert(context.Background(), strings.NewReader(deck), "text/plain")
	if err != nil {
		t.Fatalf("Convert() err=%v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3 (empty block dropped)", len(pages))
	}
	if pages[0].Number != 1 || pages[0].Text != "Cover slide" {
		t.Fatalf("page 1 = %+v", pages[0])
	}
	if pages[2].Number != 3 || pages[2].Text != "Traction: 40 customers" {
		t.Fatalf("page 3 = %+v", pages[2])
	}
}

func TestConvert_ChunksWithoutFormFeeds(t *testing.T) {
	c := &PlainText{pageSize: 20}
	deck := "first paragraph here\n\nsecond paragraph here\n\nthird paragraph here"

	pages, err := c.Convert(context.Background(), strings.NewReader(deck), "text/markdown")
	if err != nil {
		t.Fatalf("Convert() err=%v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want one per paragraph at this page size", len(pages))
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Fatalf("page numbering: %+v", pages)
		}
	}
}

func TestConvert_NormalizesCRLF(t *testing.T) {
	c := NewPlainText()
	pages, err := c.Convert(context.Background(), strings.NewReader("line one\r\nline two"), "")
	if err != nil {
		t.Fatalf("Convert() err=%v", err)
	}
	if pages[0].Text != "line one\nline two" {
		t.Fatalf("text = %q", pages[0].Text)
	}
}

func TestConvert_UnsupportedContentType(t *testing.T) {
	c := NewPlainText()
	if _, err := c.Convert(context.Background(), strings.NewReader("x"), "application/pdf"); err == nil {
		t.Fatalf("expected error for unsupported content type")
	}
}

func TestConvert_ContentTypeParameters(t *testing.T) {
	c := NewPlainText()
	if _, err := c.Convert(context.Background(), strings.NewReader("x"), "text/plain; charset=utf-8"); err != nil {
		t.Fatalf("Convert() err=%v, parameters should be ignored", err)
	}
}

func TestConvert_RejectsBinary(t *testing.T) {
	c := NewPlainText()
	if _, err := c.Convert(context.Background(), strings.NewReader("\xff\xfe\x00"), "application/octet-stream"); err == nil {
		t.Fatalf("expected error for non-UTF-8 input")
	}
}

func TestConvert_EmptyDeck(t *testing.T) {
	c := NewPlainText()
	if _, err := c.Convert(context.Background(), strings.NewReader("  \f  \f  "), "text/plain"); err == nil {
		t.Fatalf("expected error for deck with no readable text")
	}
}

func TestConvert_CancelledContext(t *testing.T) {
	c := NewPlainText()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Convert(ctx, strings.NewReader("x"), "text/plain"); err == nil {
		t.Fatalf("expected context error")
	}
}

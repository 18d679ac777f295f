// Package document turns uploaded deck files into plain-text pages for the
// extraction stage.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Page is one deck page, already reduced to plain text.
type Page struct {
	Number int
	Text   string
}

// Converter produces pages from an uploaded deck body.
type Converter interface {
	Convert(ctx context.Context, r io.Reader, contentType string) ([]Page, error)
}

const maxDeckBytes = 32 << 20

// PlainText handles text-like uploads. Pages are split on form-feed
// characters, falling back to blank-line-separated blocks of roughly
// pageSize runes when no form feeds are present.
type PlainText struct {
	pageSize int
}

func NewPlainText() *PlainText {
	return &PlainText{pageSize: 3000}
}

func (c *PlainText) Convert(ctx context.Context, r io.Reader, contentType string) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	switch mediaType {
	case "", "text/plain", "text/markdown", "application/octet-stream":
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}

	raw, err := io.ReadAll(io.LimitReader(r, maxDeckBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	if len(raw) > maxDeckBytes {
		return nil, errors.New("deck exceeds size limit")
	}
	if !utf8.Valid(raw) {
		return nil, errors.New("deck is not valid UTF-8 text")
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	var blocks []string
	if strings.Contains(text, "\f") {
		blocks = strings.Split(text, "\f")
	} else {
		blocks = c.chunk(text)
	}

	var pages []Page
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		pages = append(pages, Page{Number: len(pages) + 1, Text: block})
	}
	if len(pages) == 0 {
		return nil, errors.New("deck has no readable text")
	}
	return pages, nil
}

func (c *PlainText) chunk(text string) []string {
	paragraphs := strings.Split(text, "\n\n")
	var blocks []string
	var b strings.Builder
	for _, p := range paragraphs {
		if b.Len() > 0 && b.Len()+len(p) > c.pageSize {
			blocks = append(blocks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	if b.Len() > 0 {
		blocks = append(blocks, b.String())
	}
	return blocks
}

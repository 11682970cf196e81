// Package html converts html documents into markdown
package html

import (
	"bytes"
	"context"
	"fmt"
	"io"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/bububa/atomic-cookbook/components/document"
)

// Parser writes the markdown rendition of an html document
type Parser struct {
	opts []converter.ConvertOptionFunc
}

var _ document.Parser = (*Parser)(nil)

// NewParser returns a Parser, opts are passed to the converter, a base domain for instance
func NewParser(opts ...converter.ConvertOptionFunc) *Parser {
	return &Parser{opts: opts}
}

func (h *Parser) Parse(ctx context.Context, reader *bytes.Reader, writer io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	md, err := htmltomarkdown.ConvertReader(reader, h.opts...)
	if err != nil {
		return fmt.Errorf("html to markdown: %w", err)
	}
	_, err = writer.Write(bytes.TrimSpace(md))
	return err
}

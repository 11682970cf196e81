// Package parsers picks a document parser from the sniffed content type
package parsers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bububa/atomic-cookbook/components/document"
	"github.com/bububa/atomic-cookbook/components/document/parsers/docx"
	"github.com/bububa/atomic-cookbook/components/document/parsers/html"
	"github.com/bububa/atomic-cookbook/components/document/parsers/pdf"
	"github.com/bububa/atomic-cookbook/components/document/parsers/pptx"
	"github.com/bububa/atomic-cookbook/components/document/parsers/xlsx"
)

const (
	MimeHTML = "text/html"
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimeText = "text/plain"
)

// ForContent returns the parser matching the content type of bs
func ForContent(bs []byte) (document.Parser, error) {
	mime := mimetype.Detect(bs)
	switch {
	case mime.Is(MimeHTML):
		return html.NewParser(), nil
	case mime.Is(MimePDF):
		return pdf.NewParser(), nil
	case mime.Is(MimeDOCX):
		return new(docx.Parser), nil
	case mime.Is(MimeXLSX):
		return xlsx.NewParser(), nil
	case mime.Is(MimePPTX):
		return new(pptx.Parser), nil
	}
	for m := mime; m != nil; m = m.Parent() {
		if m.Is(MimeText) {
			return new(document.TextParser), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, mime.String())
}

// Parse converts a loaded document into text
func Parse(ctx context.Context, doc *document.Document) (string, error) {
	parser, err := ForContent(doc.Bytes())
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := parser.Parse(ctx, doc.Reader(), &buf); err != nil {
		return "", fmt.Errorf("parse %s: %w", doc.Name(), err)
	}
	return buf.String(), nil
}

package document

import (
	"bytes"
	"context"
	"io"
)

type Parser interface {
	Parse(context.Context, *bytes.Reader, io.Writer) error
}

// TextParser copies plain text content, dropping unprintable characters
type TextParser struct{}

var _ Parser = (*TextParser)(nil)

func (p *TextParser) Parse(_ context.Context, reader *bytes.Reader, writer io.Writer) error {
	bs, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	_, err = io.WriteString(writer, StripUnprintable(string(bs)))
	return err
}

// Package pdf extracts the text of pdf documents row by row
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/bububa/atomic-cookbook/components/document"
)

type Parser struct {
	password string
	maxPages int
}

var _ document.Parser = (*Parser)(nil)

type Option func(*Parser)

// WithPassword decrypts protected documents
func WithPassword(password string) Option {
	return func(p *Parser) {
		p.password = password
	}
}

// WithMaxPages stops after n pages, 0 reads them all
func WithMaxPages(n int) Option {
	return func(p *Parser) {
		p.maxPages = n
	}
}

func NewParser(opts ...Option) *Parser {
	ret := new(Parser)
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (p *Parser) open(reader *bytes.Reader) (*pdf.Reader, error) {
	if p.password == "" {
		return pdf.NewReader(reader, reader.Size())
	}
	return pdf.NewReaderEncrypted(reader, reader.Size(), func() string { return p.password })
}

// Parse writes one line per text row, blank pages are skipped
func (p *Parser) Parse(ctx context.Context, reader *bytes.Reader, writer io.Writer) error {
	r, err := p.open(reader)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	pages := r.NumPage()
	if p.maxPages > 0 && p.maxPages < pages {
		pages = p.maxPages
	}
	w := bufio.NewWriter(writer)
	var lines int
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			// unreadable page
			continue
		}
		for _, row := range rows {
			if lines > 0 {
				w.WriteByte('\n')
			}
			lines++
			for _, word := range row.Content {
				w.WriteString(word.S)
			}
		}
	}
	return w.Flush()
}

package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bububa/atomic-cookbook/components/document"
)

// Parser renders every sheet of a workbook as a markdown table
type Parser struct {
	password string
}

var _ document.Parser = (*Parser)(nil)

type Option func(*Parser)

func WithPassword(passwd string) Option {
	return func(p *Parser) {
		p.password = passwd
	}
}

func NewParser(opts ...Option) *Parser {
	ret := new(Parser)
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Parse try to parse a xlsx content from a bytes.Reader and write to an io.Writer
func (p *Parser) Parse(ctx context.Context, reader *bytes.Reader, writer io.Writer) error {
	opts := make([]excelize.Options, 0, 1)
	if p.password != "" {
		opts = append(opts, excelize.Options{Password: p.password})
	}
	doc, err := excelize.OpenReader(reader, opts...)
	if err != nil {
		return err
	}
	defer doc.Close()
	for sheetIdx, sheet := range doc.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := doc.GetRows(sheet)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		var width int
		for _, row := range rows {
			width = max(width, len(row))
		}
		if width == 0 {
			continue
		}
		if sheetIdx > 0 {
			io.WriteString(writer, "\n")
		}
		fmt.Fprintf(writer, "# %s\n\n", sheet)
		for rowIdx, row := range rows {
			cells := make([]string, width)
			for colIdx := range cells {
				if colIdx < len(row) {
					cells[colIdx] = p.cell(doc, sheet, row[colIdx], colIdx+1, rowIdx+1)
				}
			}
			fmt.Fprintf(writer, "| %s |\n", strings.Join(cells, " | "))
			if rowIdx == 0 {
				fmt.Fprintf(writer, "|%s\n", strings.Repeat(" --- |", width))
			}
		}
	}
	return nil
}

// cell formats a cell value, col and row are 1 based
func (p *Parser) cell(doc *excelize.File, sheet string, value string, col int, row int) string {
	value = strings.TrimSpace(document.EscapeMarkdown(document.StripUnprintable(value)))
	value = strings.ReplaceAll(value, "\n", "<br>")
	if value == "" {
		return value
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return value
	}
	if styleID, err := doc.GetCellStyle(sheet, cell); err == nil && styleID > 0 {
		if style, err := doc.GetStyle(styleID); err == nil && style.Font != nil {
			if style.Font.Bold {
				value = fmt.Sprintf("**%s**", value)
			} else if style.Font.Strike {
				value = fmt.Sprintf("~~%s~~", value)
			} else if style.Font.Italic {
				value = fmt.Sprintf("*%s*", value)
			}
		}
	}
	if ok, target, _ := doc.GetCellHyperLink(sheet, cell); ok && target != "" {
		value = fmt.Sprintf("[%s](%s)", value, target)
	}
	return value
}

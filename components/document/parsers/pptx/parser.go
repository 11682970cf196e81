// Package pptx extracts the text of presentation slides, slide by slide
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	qxml "github.com/dgrr/quickxml"

	"github.com/bububa/atomic-cookbook/components/document"
)

var reSlide = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type Parser struct{}

var _ document.Parser = (*Parser)(nil)

// Parse try to parse a pptx content from a bytes.Reader and write to an io.Writer
func (p *Parser) Parse(ctx context.Context, reader *bytes.Reader, writer io.Writer) error {
	zipReader, err := zip.NewReader(reader, reader.Size())
	if err != nil {
		return err
	}
	slides := make(map[int]*zip.File)
	for _, file := range zipReader.File {
		matches := reSlide.FindStringSubmatch(file.Name)
		if len(matches) < 2 {
			continue
		}
		i, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		slides[i] = file
	}
	numbers := make([]int, 0, len(slides))
	for i := range slides {
		numbers = append(numbers, i)
	}
	sort.Ints(numbers)
	for idx, i := range numbers {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := extractSlide(slides[i])
		if err != nil {
			return fmt.Errorf("slide %d: %w", i, err)
		}
		if idx > 0 {
			io.WriteString(writer, "\n")
		}
		fmt.Fprintf(writer, "# Slide %d\n\n%s", i, text)
	}
	return nil
}

// extractSlide collects the a:t runs of a slide. Paragraphs end with a new line,
// table cells are joined with " | ".
func extractSlide(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		texts  = new(strings.Builder)
		row    []string
		inCell bool
		cell   = new(strings.Builder)
		phrase string
	)
	r := qxml.NewReader(rc)

NEXT:
	for r.Next() {
		switch e := r.Element().(type) {
		case *qxml.StartElement:
			switch e.Name() {
			case "a:tc":
				inCell = true
				cell.Reset()
			case "a:t":
				r.AssignNext(&phrase)
				if !r.Next() {
					break NEXT
				}
				if inCell {
					cell.WriteString(phrase)
				} else {
					texts.WriteString(phrase)
				}
				phrase = ""
			}
		case *qxml.EndElement:
			switch e.Name() {
			case "a:p":
				if !inCell {
					texts.WriteString("\n")
				}
			case "a:tc":
				inCell = false
				row = append(row, strings.TrimSpace(cell.String()))
			case "a:tr":
				if len(row) > 0 {
					texts.WriteString("| ")
					texts.WriteString(strings.Join(row, " | "))
					texts.WriteString(" |\n")
				}
				row = row[:0]
			}
		}
	}
	return texts.String(), nil
}

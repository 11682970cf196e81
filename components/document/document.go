package document

import (
	"bytes"
	"context"
	"errors"
)

var (
	// ErrReading is returned when a source is loaded concurrently
	ErrReading = errors.New("document is reading")
	// ErrUnsupportedFormat is returned when no parser handles a content type
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

type ReadStatus = int32

const (
	Unread ReadStatus = iota
	Reading
	ReadCompleted
)

// Loader reads a raw document from a source
type Loader interface {
	// Name identifies the source, it is used to name the chunks of the document
	Name() string
	Load(context.Context) (*Document, error)
}

// Document is a document container with metadata
type Document struct {
	name   string
	buffer *bytes.Buffer
	meta   map[string]string
}

func New(name string, content []byte, meta map[string]string) *Document {
	if meta == nil {
		meta = make(map[string]string)
	}
	return &Document{
		name:   name,
		buffer: bytes.NewBuffer(content),
		meta:   meta,
	}
}

func (d *Document) Name() string {
	return d.name
}

func (d *Document) Meta() map[string]string {
	return d.meta
}

func (d *Document) Bytes() []byte {
	return d.buffer.Bytes()
}

func (d *Document) Len() int {
	return d.buffer.Len()
}

func (d *Document) Reader() *bytes.Reader {
	return bytes.NewReader(d.buffer.Bytes())
}

func (d *Document) String() string {
	return d.buffer.String()
}

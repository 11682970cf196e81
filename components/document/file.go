package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File loads a document from the local filesystem
type File struct {
	path string
}

var _ Loader = (*File)(nil)

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string {
	base := filepath.Base(f.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (f *File) Load(_ context.Context) (*Document, error) {
	fileInfo, err := os.Stat(f.path)
	if err != nil {
		return nil, err
	}
	if fileInfo.IsDir() {
		return nil, errors.New("FileDocument could not be a directory")
	}
	bs, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	return New(f.Name(), bs, map[string]string{
		"source":   "file",
		"filename": fileInfo.Name(),
		"modtime":  strconv.FormatInt(fileInfo.ModTime().Unix(), 10),
	}), nil
}

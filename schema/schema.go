package schema

import (
	"encoding/json"
	"fmt"
)

// Schema is message schema interface
type Schema interface {
	// Attachment returns schema attachment
	Attachment() *Attachment
}

// SchemaPointer is a schema which attachment could be replaced
type SchemaPointer interface {
	Schema
	SetAttachment(*Attachment)
}

// Stringify converts a schema to string; String schemas are returned as is,
// other schemas are encoded as JSON, or formatted with %v when they can't be
func Stringify(s Schema) string {
	switch v := s.(type) {
	case nil:
		return ""
	case String:
		return string(v)
	case *String:
		if v == nil {
			return ""
		}
		return string(*v)
	case fmt.Stringer:
		return v.String()
	}
	bs, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%v", s)
	}
	return string(bs)
}

// ToBytes converts a schema to bytes
func ToBytes(s Schema) []byte {
	return []byte(Stringify(s))
}

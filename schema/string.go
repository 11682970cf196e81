package schema

// String is a plain text schema
type String string

var _ Schema = String("")

// NewString returns a new String
func NewString(v string) *String {
	s := String(v)
	return &s
}

func (s String) String() string {
	return string(s)
}

// Attachment implements Schema interface
func (s String) Attachment() *Attachment {
	return nil
}

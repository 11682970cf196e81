package schema

// Base is a base schema
type Base struct {
	attachment *Attachment `json:"-"`
}

// Attachment returns schema attachment
func (r Base) Attachment() *Attachment {
	return r.attachment
}

// SetAttachment replaces schema attachment
func (r *Base) SetAttachment(v *Attachment) {
	r.attachment = v
}

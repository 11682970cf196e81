package schema

// Attachment message attachment
type Attachment struct {
	// ImageURLs attached image urls
	ImageURLs []string `json:"image_urls,omitempty" yaml:"image_urls,omitempty"`
	// VideoURLs attached video urls
	VideoURLs []string `json:"video_urls,omitempty" yaml:"video_urls,omitempty"`
}

// IsEmpty returns true if nothing is attached
func (a *Attachment) IsEmpty() bool {
	return a == nil || (len(a.ImageURLs) == 0 && len(a.VideoURLs) == 0)
}

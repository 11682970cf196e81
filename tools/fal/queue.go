package fal

// Queue request statuses
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// QueueResponse is returned when a request is submitted
type QueueResponse struct {
	RequestID   string `json:"request_id"`
	ResponseURL string `json:"response_url"`
	StatusURL   string `json:"status_url"`
	CancelURL   string `json:"cancel_url"`
}

// LogEntry is a log line of a running request
type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StatusResponse is the status of a queued request
type StatusResponse struct {
	Status        string     `json:"status"`
	QueuePosition int        `json:"queue_position,omitempty"`
	Logs          []LogEntry `json:"logs,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// File is a generated file
type File struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Result is the output of an image or video model
type Result struct {
	Video  *File  `json:"video,omitempty"`
	Image  *File  `json:"image,omitempty"`
	Images []File `json:"images,omitempty"`
}

// URL returns the url of the generated media of the given type
func (r *Result) URL(t MediaType) string {
	switch t {
	case VideoType:
		if r.Video != nil {
			return r.Video.URL
		}
	case ImageType:
		if r.Image != nil {
			return r.Image.URL
		}
		if len(r.Images) > 0 {
			return r.Images[0].URL
		}
	}
	return ""
}

package agents

import (
	"sync"

	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

// Media collects images and videos generated by tools during runs
type Media struct {
	images []string
	videos []string
	mu     sync.RWMutex
}

var _ tools.MediaSink = (*Media)(nil)

func (m *Media) AddImage(url string) {
	m.mu.Lock()
	m.images = append(m.images, url)
	m.mu.Unlock()
}

func (m *Media) AddVideo(url string) {
	m.mu.Lock()
	m.videos = append(m.videos, url)
	m.mu.Unlock()
}

func (m *Media) Images() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.images...)
}

func (m *Media) Videos() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.videos...)
}

// Attachment returns the collected media, nil when empty
func (m *Media) Attachment() *schema.Attachment {
	ret := &schema.Attachment{
		ImageURLs: m.Images(),
		VideoURLs: m.Videos(),
	}
	if ret.IsEmpty() {
		return nil
	}
	return ret
}

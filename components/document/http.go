package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

// Http loads a document from an URL. The body is fetched once and cached.
type Http struct {
	status *atomic.Int32
	mu     sync.Mutex
	doc    *Document
	HttpConfig
}

var _ Loader = (*Http)(nil)

type HttpConfig struct {
	client  *http.Client
	link    string
	method  string
	payload []byte
	header  http.Header
}

type HttpOption func(*HttpConfig)

func WithHttpMethod(method string) HttpOption {
	return func(h *HttpConfig) {
		h.method = method
	}
}

func WithHttpURL(link string) HttpOption {
	return func(h *HttpConfig) {
		h.link = link
	}
}

func WithPayload(payload []byte) HttpOption {
	return func(h *HttpConfig) {
		h.payload = payload
	}
}

func WithHttpHeader(key, value string) HttpOption {
	return func(h *HttpConfig) {
		if h.header == nil {
			h.header = make(http.Header)
		}
		h.header.Set(key, value)
	}
}

func WithHttpClient(client *http.Client) HttpOption {
	return func(h *HttpConfig) {
		h.client = client
	}
}

func NewHttp(opts ...HttpOption) (*Http, error) {
	var cfg HttpConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.method == "" {
		cfg.method = http.MethodGet
	}
	if cfg.client == nil {
		cfg.client = http.DefaultClient
	}
	if _, err := url.ParseRequestURI(cfg.link); err != nil {
		return nil, err
	}
	return &Http{
		status:     atomic.NewInt32(Unread),
		HttpConfig: cfg,
	}, nil
}

// Name returns the last path segment of the URL without extension
func (h *Http) Name() string {
	u, err := url.Parse(h.link)
	if err != nil {
		return h.link
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return u.Host
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func (h *Http) ReadStatus() ReadStatus {
	return h.status.Load()
}

// Load fetches the URL. It returns ErrReading while another Load is in flight.
func (h *Http) Load(ctx context.Context) (*Document, error) {
	if !h.status.CompareAndSwap(Unread, Reading) {
		if h.ReadStatus() == ReadCompleted {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.doc, nil
		}
		return nil, ErrReading
	}
	doc, err := h.fetch(ctx)
	if err != nil {
		h.status.Store(Unread)
		return nil, err
	}
	h.mu.Lock()
	h.doc = doc
	h.mu.Unlock()
	h.status.Store(ReadCompleted)
	return doc, nil
}

func (h *Http) fetch(ctx context.Context) (*Document, error) {
	var body io.Reader
	if len(h.payload) > 0 {
		body = bytes.NewReader(h.payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, h.method, h.link, body)
	if err != nil {
		return nil, err
	}
	for k, v := range h.header {
		httpReq.Header[k] = v
	}
	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: %s", h.link, httpResp.Status)
	}
	bs, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	meta := map[string]string{
		"source": "url",
		"url":    h.link,
		"method": h.method,
	}
	if ct := httpResp.Header.Get("Content-Type"); ct != "" {
		meta["content_type"] = ct
	}
	return New(h.Name(), bs, meta), nil
}

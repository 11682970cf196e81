// Package fal generates images and videos with models hosted on fal.ai
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

// MediaType is the type of media generated by a model
type MediaType string

const (
	ImageType MediaType = "image"
	VideoType MediaType = "video"
	TextType  MediaType = "text"
)

// ErrModelNotSupported is returned for media types other than image and video
var ErrModelNotSupported = errors.New("Model not supported")

// Input of the media generation tool
type Input struct {
	schema.Base
	// Prompt is a text description of the task
	Prompt string `json:"prompt" jsonschema:"title=prompt,description=A text description of the task." validate:"required"`
	// Model overrides the default model
	Model string `json:"model,omitempty" jsonschema:"title=model,description=The model to use."`
	// Type overrides the default media type
	Type MediaType `json:"type,omitempty" jsonschema:"title=type,enum=image,enum=video,enum=text,description=The type of the model to use. It can be either image or video or text."`
}

func NewInput(prompt string) *Input {
	return &Input{Prompt: prompt}
}

func (i Input) String() string {
	return i.Prompt
}

// Output of the media generation tool
type Output struct {
	schema.Base
	// Result is the message returned to the model
	Result string `json:"result" jsonschema:"title=result,description=Result of the model."`
	// URL of the generated media
	URL string `json:"url,omitempty" jsonschema:"title=url,description=URL of the generated media."`
}

func (o Output) String() string {
	return o.Result
}

type Config struct {
	tools.Config
	apiKey       string
	baseURL      string
	model        string
	mediaType    MediaType
	pollInterval time.Duration
	httpClient   *http.Client
	sink         tools.MediaSink
}

// Tool submits prompts to the fal queue and waits for the generated media
type Tool struct {
	Config
	seenLogs map[string]struct{}
	mu       sync.Mutex
}

var _ tools.Tool[Input, Output] = (*Tool)(nil)

func New(opts ...Option) *Tool {
	ret := &Tool{
		seenLogs: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&ret.Config)
	}
	if ret.Title() == "" {
		ret.SetTitle("FalTool")
	}
	if ret.Description() == "" {
		ret.SetDescription("Run a fal.ai model with a given prompt to generate an image or a video.")
	}
	if ret.baseURL == "" {
		ret.baseURL = DefaultBaseURL
	}
	ret.baseURL = strings.TrimRight(ret.baseURL, "/")
	if ret.model == "" {
		ret.model = DefaultModel
	}
	if ret.mediaType == "" {
		ret.mediaType = VideoType
	}
	if ret.pollInterval <= 0 {
		ret.pollInterval = DefaultPollInterval
	}
	if ret.httpClient == nil {
		ret.httpClient = http.DefaultClient
	}
	if ret.apiKey == "" {
		ret.Logger().Error("fal api key not set")
	}
	return ret
}

// Run generates the media. Failures are reported to the model as "Error: ..." outputs.
func (t *Tool) Run(ctx context.Context, input *Input) (*Output, error) {
	t.OnStart(ctx, t, input)
	link, err := t.generate(ctx, input)
	if err != nil {
		t.OnError(ctx, t, input, err)
		return &Output{Result: fmt.Sprintf("Error: %v", err)}, nil
	}
	output := &Output{
		Result: fmt.Sprintf("Media generated successfully at %s", link),
		URL:    link,
	}
	t.OnEnd(ctx, t, input, output)
	return output, nil
}

func (t *Tool) generate(ctx context.Context, input *Input) (string, error) {
	model := input.Model
	if model == "" {
		model = t.model
	}
	mediaType := input.Type
	if mediaType == "" {
		mediaType = t.mediaType
	}
	if mediaType != ImageType && mediaType != VideoType {
		return "", ErrModelNotSupported
	}
	result, err := t.Subscribe(ctx, model, map[string]any{"prompt": input.Prompt})
	if err != nil {
		return "", err
	}
	link := result.URL(mediaType)
	if link == "" {
		return "", fmt.Errorf("no %s in result", mediaType)
	}
	if t.sink != nil {
		if mediaType == VideoType {
			t.sink.AddVideo(link)
		} else {
			t.sink.AddImage(link)
		}
	}
	return link, nil
}

// Subscribe submits arguments to the model queue and polls until the request completes
func (t *Tool) Subscribe(ctx context.Context, model string, arguments map[string]any) (*Result, error) {
	queued := new(QueueResponse)
	if err := t.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s", t.baseURL, model), arguments, queued); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	t.Logger().Info("fal request queued", zap.String("model", model), zap.String("request_id", queued.RequestID))
	limiter := rate.NewLimiter(rate.Every(t.pollInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		status := new(StatusResponse)
		if err := t.do(ctx, http.MethodGet, queued.StatusURL+"?logs=1", nil, status); err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		t.logUpdates(status.Logs)
		switch status.Status {
		case StatusCompleted:
			if status.Error != "" {
				return nil, errors.New(status.Error)
			}
			result := new(Result)
			if err := t.do(ctx, http.MethodGet, queued.ResponseURL, nil, result); err != nil {
				return nil, fmt.Errorf("result: %w", err)
			}
			return result, nil
		case StatusInQueue, StatusInProgress:
		default:
			return nil, fmt.Errorf("unexpected status %q", status.Status)
		}
	}
}

// logUpdates logs every new log message once
func (t *Tool) logUpdates(logs []LogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range logs {
		if _, ok := t.seenLogs[l.Message]; ok {
			continue
		}
		t.seenLogs[l.Message] = struct{}{}
		t.Logger().Info(l.Message)
	}
}

func (t *Tool) do(ctx context.Context, method string, link string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		bs, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, link, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+t.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

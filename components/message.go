package components

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/generative-ai-go/genai"
	anthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/rs/xid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/bububa/atomic-cookbook/schema"
)

// NewTurnID returns a new turn ID.
func NewTurnID() string {
	return xid.New().String()
}

// MessageRole is the role of the message sender (e.g., 'user', 'system', 'tool')
type MessageRole = string

const (
	SystemRole    MessageRole = "system"
	UserRole      MessageRole = "user"
	AssistantRole MessageRole = "assistant"
	ToolRole      MessageRole = "tool"
)

// Message  Represents a message in the chat history.
type Message struct {
	content schema.Schema
	// role is the role of the message sender (e.g., 'user', 'system', 'tool')
	role MessageRole
	//	turnID is Unique identifier for the turn this message belongs to.
	turnID string
}

// MessageRecord is the serializable form of a Message.
// Content is always stored stringified, it decodes back as schema.String.
type MessageRecord struct {
	Role      MessageRole `json:"role" yaml:"role"`
	Content   string      `json:"content" yaml:"content"`
	TurnID    string      `json:"turn_id,omitempty" yaml:"turn_id,omitempty"`
	ImageURLs []string    `json:"image_urls,omitempty" yaml:"image_urls,omitempty"`
}

// NewMessage returns a new Message
func NewMessage(role MessageRole, content schema.Schema) *Message {
	return &Message{
		role:    role,
		content: content,
	}
}

// SetTurnID set message turnID
func (m *Message) SetTurnID(turnID string) *Message {
	m.turnID = turnID
	return m
}

// Role returns message role
func (m Message) Role() MessageRole {
	return m.role
}

// Content returns message content
func (m Message) Content() schema.Schema {
	return m.content
}

// StringifiedContent returns message content as string
func (m Message) StringifiedContent() string {
	return schema.Stringify(m.content)
}

// Attachment returns message attachment
func (m Message) Attachment() *schema.Attachment {
	if m.content == nil {
		return nil
	}
	return m.content.Attachment()
}

// TurnID returns message turnID
func (m Message) TurnID() string {
	return m.turnID
}

// Record converts message to its serializable form
func (m Message) Record() MessageRecord {
	ret := MessageRecord{
		Role:    m.role,
		Content: m.StringifiedContent(),
		TurnID:  m.turnID,
	}
	if attachment := m.Attachment(); attachment != nil {
		ret.ImageURLs = attachment.ImageURLs
	}
	return ret
}

// MessageFromRecord restores a message from its serializable form
func MessageFromRecord(r MessageRecord) Message {
	var content schema.Schema = schema.String(r.Content)
	if len(r.ImageURLs) > 0 {
		in := schema.NewInput(r.Content).WithImageURLs(r.ImageURLs...)
		content = in
	}
	return Message{
		role:    r.Role,
		content: content,
		turnID:  r.TurnID,
	}
}

// MessageFromOpenAI converts an openai message back to a Message, image parts become attached images
func MessageFromOpenAI(v openai.ChatCompletionMessage) Message {
	r := MessageRecord{
		Role:    v.Role,
		Content: v.Content,
	}
	if len(v.MultiContent) > 0 {
		texts := make([]string, 0, 1)
		for _, part := range v.MultiContent {
			switch part.Type {
			case openai.ChatMessagePartTypeText:
				texts = append(texts, part.Text)
			case openai.ChatMessagePartTypeImageURL:
				if part.ImageURL != nil {
					r.ImageURLs = append(r.ImageURLs, part.ImageURL.URL)
				}
			}
		}
		r.Content = strings.Join(texts, "\n")
	}
	return MessageFromRecord(r)
}

// MarshalJSON implements json.Marshaler interface
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Record())
}

// UnmarshalJSON implements json.Unmarshaler interface
func (m *Message) UnmarshalJSON(bs []byte) error {
	var r MessageRecord
	if err := json.Unmarshal(bs, &r); err != nil {
		return err
	}
	*m = MessageFromRecord(r)
	return nil
}

// ToOpenAI convert message to openai ChatCompletionMessage
func (m Message) ToOpenAI(dist *openai.ChatCompletionMessage) {
	dist.Role = m.role
	if attachment := m.Attachment(); attachment != nil && len(attachment.ImageURLs) > 0 {
		dist.MultiContent = make([]openai.ChatMessagePart, 0, len(attachment.ImageURLs)+1)
		dist.MultiContent = append(dist.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: m.StringifiedContent(),
		})
		for _, imageURL := range attachment.ImageURLs {
			dist.MultiContent = append(dist.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
		return
	}
	dist.Content = m.StringifiedContent()
}

// ToAnthropic convert message to anthropic Message.
// Attached images are downloaded and sent as base64 sources.
func (m Message) ToAnthropic(ctx context.Context, dist *anthropic.Message) {
	if m.role == AssistantRole {
		dist.Role = anthropic.RoleAssistant
	} else {
		dist.Role = anthropic.RoleUser
	}
	dist.Content = dist.Content[:0]
	if attachment := m.Attachment(); attachment != nil {
		for _, link := range attachment.ImageURLs {
			img, err := FetchImage(ctx, link)
			if err != nil {
				continue
			}
			dist.Content = append(dist.Content, anthropic.NewImageMessageContent(anthropic.MessageContentSource{
				Type:      "base64",
				MediaType: img.MIME,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			}))
		}
	}
	dist.Content = append(dist.Content, anthropic.NewTextMessageContent(m.StringifiedContent()))
}

// ToCohere convert message to cohere Message
func (m Message) ToCohere(dist *cohere.Message) {
	msg := &cohere.ChatMessage{
		Message: m.StringifiedContent(),
	}
	switch m.role {
	case SystemRole:
		dist.Role = "SYSTEM"
		dist.System = msg
	case AssistantRole:
		dist.Role = "CHATBOT"
		dist.Chatbot = msg
	default:
		dist.Role = "USER"
		dist.User = msg
	}
}

// ToGemini convert message to gemini Content
func (m Message) ToGemini(ctx context.Context, dist *genai.Content) {
	if m.role == AssistantRole {
		dist.Role = "model"
	} else {
		dist.Role = "user"
	}
	dist.Parts = dist.Parts[:0]
	if attachment := m.Attachment(); attachment != nil {
		for _, link := range attachment.ImageURLs {
			img, err := FetchImage(ctx, link)
			if err != nil {
				continue
			}
			dist.Parts = append(dist.Parts, genai.ImageData(strings.TrimPrefix(img.MIME, "image/"), img.Data))
		}
	}
	dist.Parts = append(dist.Parts, genai.Text(m.StringifiedContent()))
}

// Image is a downloaded image
type Image struct {
	MIME string
	Data []byte
}

// ImageHTTPClient is used to download images attached to messages
var ImageHTTPClient = http.DefaultClient

// FetchImage downloads an image and detects its mime type
func FetchImage(ctx context.Context, link string) (*Image, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := ImageHTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: %s", link, httpResp.Status)
	}
	bs, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	mime := mimetype.Detect(bs)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("fetch image %s: unexpected mime type %s", link, mime.String())
	}
	return &Image{
		MIME: mime.String(),
		Data: bs,
	}, nil
}

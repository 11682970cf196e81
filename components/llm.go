package components

import (
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	"github.com/google/generative-ai-go/genai"
	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
)

// LLMResponse provider chat response
type LLMResponse struct {
	ID        string      `json:"id,omitempty"`
	Role      MessageRole `json:"role,omitempty"`
	Model     string      `json:"model,omitempty"`
	Usage     *LLMUsage   `json:"usage,omitempty"`
	Timestamp int64       `json:"ts,omitempty"`
	Details   any         `json:"content,omitempty"`
}

// FromOpenAI convnert response from openai
func (r *LLMResponse) FromOpenAI(v *openai.ChatCompletionResponse) {
	r.ID = v.ID
	r.Role = AssistantRole
	r.Model = v.Model
	r.Timestamp = v.Created
	r.Usage = &LLMUsage{
		InputTokens:  int64(v.Usage.PromptTokens),
		OutputTokens: int64(v.Usage.CompletionTokens),
	}
	r.Details = v.Choices
}

// FromAnthropic convert response from anthropic
func (r *LLMResponse) FromAnthropic(v *anthropic.MessagesResponse) {
	r.ID = v.ID
	r.Role = AssistantRole
	r.Model = string(v.Model)
	r.Timestamp = time.Now().Unix()
	r.Usage = &LLMUsage{
		InputTokens:  int64(v.Usage.InputTokens),
		OutputTokens: int64(v.Usage.OutputTokens),
	}
	r.Details = v.Content
}

// FromCohere convert response from cohere
func (r *LLMResponse) FromCohere(v *cohere.NonStreamedChatResponse) {
	if v.GenerationId != nil {
		r.ID = *v.GenerationId
	}
	r.Role = AssistantRole
	r.Timestamp = time.Now().Unix()
	if meta := v.Meta; meta != nil {
		if usage := meta.Tokens; usage != nil {
			r.Usage = new(LLMUsage)
			if usage.InputTokens != nil {
				r.Usage.InputTokens = int64(*usage.InputTokens)
			}
			if usage.OutputTokens != nil {
				r.Usage.OutputTokens = int64(*usage.OutputTokens)
			}
		}
		if version := meta.ApiVersion; version != nil {
			r.Model = version.Version
		}
	}
	r.Details = v
}

// FromGemini convert response from gemini
func (r *LLMResponse) FromGemini(v *genai.GenerateContentResponse) {
	r.Role = AssistantRole
	r.Timestamp = time.Now().Unix()
	if meta := v.UsageMetadata; meta != nil {
		r.Usage = &LLMUsage{
			InputTokens:  int64(meta.PromptTokenCount),
			OutputTokens: int64(meta.CandidatesTokenCount),
		}
	}
	r.Details = v.Candidates
}

// LLMUsage token usage
type LLMUsage struct {
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty"`
}

// Merge adds v into u
func (u *LLMUsage) Merge(v *LLMUsage) {
	if v == nil {
		return
	}
	u.InputTokens += v.InputTokens
	u.OutputTokens += v.OutputTokens
}

// MergeUsage merges usage into response
func (r *LLMResponse) MergeUsage(v *LLMUsage) {
	if v == nil {
		return
	}
	if r.Usage == nil {
		r.Usage = new(LLMUsage)
	}
	r.Usage.Merge(v)
}

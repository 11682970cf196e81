package providers

import (
	"github.com/bububa/atomic-cookbook/components/embedder/providers/cohere"
	"github.com/bububa/atomic-cookbook/components/embedder/providers/gemini"
	"github.com/bububa/atomic-cookbook/components/embedder/providers/hashing"
	"github.com/bububa/atomic-cookbook/components/embedder/providers/openai"
)

var (
	FromOpenAI  = openai.New
	FromCohere  = cohere.New
	FromGemini  = gemini.New
	FromHashing = hashing.New
)

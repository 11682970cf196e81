package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/internal/config"
	"github.com/bububa/atomic-cookbook/internal/llmtest"
)

func init() {
	color.NoColor = true
}

func useCompleter(t *testing.T, completer *llmtest.Completer) {
	t.Helper()
	prev := newClient
	newClient = func(context.Context, *config.Config, *zap.Logger) (llm.Client, error) {
		return completer.Client(), nil
	}
	t.Cleanup(func() { newClient = prev })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(args ...string) (string, error) {
	var buf bytes.Buffer
	root := newRootCmd(&buf, io.Discard)
	root.SetArgs(args)
	root.SetErr(io.Discard)
	err := root.Execute()
	return buf.String(), err
}

func TestBasic(t *testing.T) {
	completer := llmtest.New("It was quiet. Too quiet.")
	useCompleter(t, completer)
	cfg := writeConfig(t, "log:\n  level: error\n")

	out, err := execute("--config", cfg, "--model", "gpt-4o-mini", "--stream", "basic", "Tell", "me", "a", "story")
	require.NoError(t, err)
	assert.Contains(t, out, "User: Tell me a story")
	assert.Contains(t, out, "basic: It was quiet. Too quiet.")
	assert.Equal(t, "gpt-4o-mini", completer.LastRequest().Model)
}

func TestUnknownProvider(t *testing.T) {
	useCompleter(t, llmtest.New())
	_, err := execute("--provider", "mystery", "basic")
	assert.ErrorContains(t, err, `unknown provider "mystery"`)
}

func TestApplyFlags(t *testing.T) {
	a := &app{flags: flags{provider: "ollama", logLevel: "debug", stream: true}}
	cfg := config.NewDefaultConfig()
	require.NoError(t, a.apply(cfg))
	a.cfg = cfg
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Stream)
	assert.Equal(t, "llama3.2", a.chatModel())
}

func TestKnowledgeAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "Massaman curry is slow cooked with potatoes and peanuts.")
	}))
	defer srv.Close()

	completer := llmtest.New("Cook it slowly with potatoes.")
	useCompleter(t, completer)
	cfg := writeConfig(t, "log:\n  level: error\nvectordb:\n  engine: memory\n  embedder: hashing\n")

	out, err := execute("--config", cfg, "knowledge", "ask", "--load", "--url", srv.URL+"/massaman.txt", "How", "to", "make", "massaman?")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 1 documents into recipes")
	assert.Contains(t, out, "chef: Cook it slowly with potatoes.")
	assert.Contains(t, completer.LastRequest().System, "Massaman curry is slow cooked")
}

func TestMarketingWithoutContacts(t *testing.T) {
	useCompleter(t, llmtest.New())
	cfg := writeConfig(t, "log:\n  level: error\n")
	_, err := execute("--config", cfg, "marketing")
	assert.ErrorContains(t, err, "no contacts configured")
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, "default", prompt(nil, "default"))
	assert.Equal(t, "a b", prompt([]string{"a", "b"}, "default"))
}

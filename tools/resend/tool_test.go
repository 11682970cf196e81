package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	var got Email
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	tool := New(WithAPIKey("re_test"), WithFrom("me@example.com"), WithBaseURL(srv.URL))
	out, err := tool.Run(context.Background(), NewInput("you@example.com", "Hello", "Hi **there**"))
	require.NoError(t, err)
	assert.Equal(t, "email-1", out.ID)
	assert.Equal(t, "Email sent to you@example.com successfully.", out.Result)
	assert.Equal(t, "me@example.com", got.From)
	assert.Equal(t, []string{"you@example.com"}, got.To)
	assert.Equal(t, "Hello", got.Subject)
	assert.Equal(t, "<p>Hi <strong>there</strong></p>\n", got.Html)
	assert.Equal(t, "Hi **there**", got.Text)
}

func TestRunErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	out, err := New(WithFrom("me@example.com"), WithBaseURL(srv.URL)).Run(context.Background(), NewInput("bad", "s", "b"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Result, "Error: resend: "))
	assert.Contains(t, out.Result, "Invalid to field")
	assert.Empty(t, out.ID)

	out, err = New(WithBaseURL(srv.URL)).Run(context.Background(), NewInput("you@example.com", "s", "b"))
	require.NoError(t, err)
	assert.Equal(t, "Error: "+ErrNoSender.Error(), out.Result)
}

func TestRunBaseURLWithPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resend/emails", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"email-2"}`))
	}))
	defer srv.Close()

	tool := New(WithAPIKey("re_test"), WithFrom("me@example.com"), WithBaseURL(srv.URL+"/resend"), WithHttpClient(srv.Client()))
	id, err := tool.Send(context.Background(), &Email{From: "me@example.com", To: []string{"you@example.com"}, Subject: "Hi", Text: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "email-2", id)
}

package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash-latest:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)

		var req contentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "Title\nBody"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiSummarizer(srv.URL, "test-key", "gemini-1.5-flash-latest", "", time.Second)
	got, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Title\nBody", got)
}

func TestGeminiGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta3/models/text-bison-001:generateText", r.URL.Path)

		var req textRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Prompt.Text)

		_, _ = w.Write([]byte(`{"candidates":[{"output":"Legacy answer"}]}`))
	}))
	defer srv.Close()

	g := NewGeminiSummarizer(srv.URL, "k", "text-bison-001", APIGenerateText, time.Second)
	got, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Legacy answer", got)
}

func TestGeminiErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("x-goog-api-key") {
		case "bad":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
		default:
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}
	}))
	defer srv.Close()

	_, err := NewGeminiSummarizer(srv.URL, "bad", "m", "", time.Second).Generate(context.Background(), "p")
	require.ErrorContains(t, err, "API key not valid")

	_, err = NewGeminiSummarizer(srv.URL, "ok", "m", "", time.Second).Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrEmptyResponse)

	_, err = NewGeminiSummarizer(srv.URL, "ok", "m", "chat", time.Second).Generate(context.Background(), "p")
	require.Error(t, err)
}

func TestGeminiTransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	_, err := NewGeminiSummarizer(baseURL, "secret-key", "m", "", time.Second).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "prompt text", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Answer"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAISummarizer(srv.URL, "sk-test", "be brief", "gpt-4o-mini", time.Second)
	got, err := o.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Answer", got)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.Equal(t, "prompt text", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"Local answer","done":true}`))
	}))
	defer srv.Close()

	o := NewOllamaSummarizer(srv.URL, "", "llama3", time.Second)
	got, err := o.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Local answer", got)
}

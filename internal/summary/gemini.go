package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

	// APIGenerateContent is the "contents/parts" request shape.
	APIGenerateContent = "generateContent"
	// APIGenerateText is the older flat "prompt" request shape.
	APIGenerateText = "generateText"
)

type GeminiSummarizer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	api        string
}

func NewGeminiSummarizer(baseURL, apiKey, model, api string, timeout time.Duration) *GeminiSummarizer {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if api == "" {
		api = APIGenerateContent
	}
	return &GeminiSummarizer{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		api:        api,
	}
}

func (g *GeminiSummarizer) Generate(ctx context.Context, prompt string) (string, error) {
	var (
		payload any
		version = "v1beta"
	)
	switch g.api {
	case APIGenerateText:
		version = "v1beta3"
		payload = textRequest{Prompt: textPrompt{Text: prompt}}
	case APIGenerateContent:
		payload = contentRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	default:
		return "", fmt.Errorf("unsupported gemini api %q", g.api)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	// The key travels in a header; URLs end up in transport errors and logs.
	endpoint := fmt.Sprintf("%s/%s/models/%s:%s", g.baseURL, version, url.PathEscape(g.model), g.api)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if g.api == APIGenerateText {
		var out textResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(out.Candidates) == 0 {
			return "", ErrEmptyResponse
		}
		return out.Candidates[0].Output, nil
	}

	var out contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// Gemini API types

type contentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type contentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type textRequest struct {
	Prompt textPrompt `json:"prompt"`
}

type textPrompt struct {
	Text string `json:"text"`
}

type textResponse struct {
	Candidates []struct {
		Output string `json:"output"`
	} `json:"candidates"`
}

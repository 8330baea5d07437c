package summary

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

type OllamaSummarizer struct {
	client  *api.Client
	system  string
	model   string
	timeout time.Duration
}

// NewOllamaSummarizer accepts either a bare host:port, as the Ollama CLI
// does, or a full base URL.
func NewOllamaSummarizer(baseURL, system, model string, timeout time.Duration) *OllamaSummarizer {
	base := &url.URL{Scheme: "http", Host: baseURL, Path: "/"}
	if strings.Contains(baseURL, "://") {
		if u, err := url.Parse(baseURL); err == nil {
			base = u
		}
	}

	return &OllamaSummarizer{
		client:  api.NewClient(base, &http.Client{}),
		system:  system,
		model:   model,
		timeout: timeout,
	}
}

func (o *OllamaSummarizer) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		System: o.system,
		Prompt: prompt,
		Stream: &stream,
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var responseFlow []string
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		responseFlow = append(responseFlow, resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}

	return strings.Join(responseFlow, ""), nil
}

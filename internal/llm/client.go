package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gzentall/ocrstore/internal/summarizer"
)

const (
	// MaxContentForSummary limits text sent for summarization.
	MaxContentForSummary = 3000
	// MaxContentForPeople limits text sent for name extraction.
	MaxContentForPeople = 2000
	// DefaultMaxTokens bounds the summary response.
	DefaultMaxTokens = 400
)

const chatPath = "http://localhost/exp/vDD4.40/engines/llama.cpp/v1/chat/completions"

// Config holds LLM client configuration.
type Config struct {
	SocketPath string // Unix socket path for Docker Model Runner
	Model      string // Model name (e.g., "ai/gemma3")
	MaxTokens  int    // Summary response limit, DefaultMaxTokens when 0
}

// Client wraps the Docker Model Runner chat completions API.
type Client struct {
	httpClient *http.Client
	model      string
	maxTokens  int
}

// New creates a new LLM client.
func New(config Config) (*Client, error) {
	if config.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", config.SocketPath)
		},
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		model:      config.Model,
		maxTokens:  config.MaxTokens,
	}, nil
}

// chatRequest is the request payload for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a system and user prompt and returns the response.
// If maxTokens is 0, no limit is applied.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int, temperature float64) (string, error) {
	req := chatRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response returned")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// Name implements summarizer.Summarizer.
func (c *Client) Name() string { return "llm" }

// Summarize implements summarizer.Summarizer. A failed summary is an error;
// a failed name extraction only drops the people list.
// Note: Runs sequentially because DMR can only handle one LLM request at a time.
func (c *Client) Summarize(ctx context.Context, req summarizer.Request) (summarizer.Result, error) {
	text := req.Text()
	if strings.TrimSpace(text) == "" {
		return summarizer.Result{}, fmt.Errorf("no text to summarize")
	}

	slog.Debug("generating summary", "title", req.Title)
	summary, err := c.Complete(ctx, summarySystem, summaryPrompt(req.SourceLanguage, truncate(text, MaxContentForSummary)), c.maxTokens, 0.3)
	if err != nil {
		return summarizer.Result{}, fmt.Errorf("failed to generate summary: %w", err)
	}
	if summary == "" {
		return summarizer.Result{}, fmt.Errorf("empty summary returned")
	}

	people, err := c.ExtractPeople(ctx, text)
	if err != nil {
		slog.Warn("name extraction failed", "title", req.Title, "error", err)
	}

	return summarizer.Result{Summary: summary, People: people, Source: c.Name()}, nil
}

// ExtractPeople asks the model for the people named in text.
func (c *Client) ExtractPeople(ctx context.Context, text string) ([]summarizer.Candidate, error) {
	slog.Debug("extracting people")
	resp, err := c.Complete(ctx, peopleSystem, peoplePrompt(truncate(text, MaxContentForPeople)), 500, 0.1)
	if err != nil {
		return nil, fmt.Errorf("failed to extract people: %w", err)
	}
	return parsePeople(resp)
}

// parsePeople decodes a JSON list of {name, context}, tolerating a
// surrounding markdown code fence.
func parsePeople(resp string) ([]summarizer.Candidate, error) {
	resp = stripFence(resp)

	var raw []summarizer.Candidate
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse people list: %w", err)
	}

	out := make([]summarizer.Candidate, 0, len(raw))
	for _, c := range raw {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		c.Context = strings.TrimSpace(c.Context)
		out = append(out, c)
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

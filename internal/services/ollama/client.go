package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "http://127.0.0.1:11434"
	defaultHTTPTimeout = 10 * time.Minute
	pingTimeout        = 2 * time.Second
)

// Config captures the runtime settings required to talk to the local model server.
type Config struct {
	BaseURL        string
	Model          string
	ContextWindow  int
	TimeoutSeconds int
}

// Client wraps the ollama-compatible chat and embedding HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			ContextWindow:  cfg.ContextWindow,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Message is one chat turn. Images carry base64-encoded frames for vision
// models and stay empty for text-only requests.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Ping reports whether the model server answers at all. It uses a short
// timeout regardless of the configured request timeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server unhealthy: http %d", resp.StatusCode)
	}
	return nil
}

// ChatStream issues a streaming chat request and invokes onToken for every
// content chunk as it arrives. It returns the accumulated text. A nil
// onToken is allowed.
func (c *Client) ChatStream(ctx context.Context, messages []Message, onToken func(token string)) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("chat: at least one message required")
	}

	payload := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   true,
	}
	if c.cfg.ContextWindow > 0 {
		payload.Options = map[string]any{"num_ctx": c.cfg.ContextWindow}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet := readSnippet(resp)
		return "", fmt.Errorf("chat request: http %d: %s", resp.StatusCode, snippet)
	}

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("decode chat chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("chat stream: %s", chunk.Error)
		}
		if chunk.Message.Content != "" {
			accumulated.WriteString(chunk.Message.Content)
			if onToken != nil {
				onToken(chunk.Message.Content)
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read chat stream: %w", err)
	}
	return accumulated.String(), nil
}

// Complete is a convenience wrapper for a system+user exchange without
// token callbacks.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})
	return c.ChatStream(ctx, messages, nil)
}

func readSnippet(resp *http.Response) string {
	buf := make([]byte, 512)
	n, _ := resp.Body.Read(buf)
	return strings.TrimSpace(string(buf[:n]))
}

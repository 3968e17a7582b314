// Package agent is the client for the external answer-extraction agent,
// the collaborator that pulls one-time codes out of notification text
// during portal logins.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kpicli/internal/config"
)

const chatMessagesPath = "/v1/chat-messages"

// Client talks to the agent's blocking chat-messages endpoint.
type Client struct {
	baseURL string
	apiKey  string
	user    string
	logger  *slog.Logger
	http    *http.Client
}

// NewClient creates an agent client from configuration.
func NewClient(cfg config.AgentConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	user := cfg.User
	if user == "" {
		user = "admin"
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		user:    user,
		logger:  logger.With(slog.String("component", "agent")),
		http:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	InputData      map[string]any `json:"input_data"`
	Query          string         `json:"query"`
	Mode           string         `json:"mode"`
	ConversationID string         `json:"conversation_id"`
	User           string         `json:"user"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// ExtractCode submits notification text and returns the code the agent
// extracted from it.
func (c *Client) ExtractCode(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(chatRequest{
		InputData: map[string]any{},
		Query:     text,
		Mode:      "blocking",
		User:      c.user,
	})
	if err != nil {
		return "", fmt.Errorf("encode agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatMessagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("agent returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode agent response: %w", err)
	}
	if out.Answer == "" {
		return "", fmt.Errorf("agent returned an empty answer")
	}

	c.logger.DebugContext(ctx, "agent extracted code")
	return strings.TrimSpace(out.Answer), nil
}

package agent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpicli/internal/agent"
	"kpicli/internal/config"
)

func TestExtractCode(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "834201"})
	}))
	defer srv.Close()

	c := agent.NewClient(config.AgentConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, nil)

	code, err := c.ExtractCode(context.Background(), "Your verification code is 834201, valid for 5 minutes.")
	require.NoError(t, err)
	assert.Equal(t, "834201", code)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/v1/chat-messages", gotPath)
	assert.Equal(t, "blocking", gotBody["mode"])
	assert.Equal(t, "admin", gotBody["user"])
	assert.Contains(t, gotBody["query"], "834201")
}

func TestExtractCodeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := agent.NewClient(config.AgentConfig{BaseURL: srv.URL, APIKey: "k"}, nil)

	_, err := c.ExtractCode(context.Background(), "code 123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestExtractCodeEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": ""})
	}))
	defer srv.Close()

	c := agent.NewClient(config.AgentConfig{BaseURL: srv.URL, APIKey: "k"}, nil)

	_, err := c.ExtractCode(context.Background(), "no code here")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty answer")
}

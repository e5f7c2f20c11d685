// SPDX-License-Identifier: Apache-2.0
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm"
)

func TestProviderImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestOptions(t *testing.T) {
	p := New(WithModel("claude-3-5-haiku-latest"), WithMaxTokens(1024))
	assert.Equal(t, "claude-3-5-haiku-latest", p.model)
	assert.EqualValues(t, 1024, p.maxTokens)
}

func TestChat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "deployment plan complete"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 11, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a DevOps engineer."},
			{Role: llm.RoleUser, Content: "Plan the rollout."},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "deployment plan complete", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	msgs, _ := body["messages"].([]any)
	assert.Len(t, msgs, 1, "system prompt must not be sent as a message")
	assert.NotNil(t, body["system"], "expected system blocks in request")
}

func TestChatRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL), WithAPIKey("k")).Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "q"}},
	})
	assert.True(t, kerrors.IsTransient(err), "got %v", err)
}

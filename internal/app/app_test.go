// SPDX-License-Identifier: Apache-2.0
package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/config"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/journal"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm/anthropic"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm/openai"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory/chromem"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, overrides ...string) *config.Config {
	t.Helper()
	base := []string{
		"kernel.provider=mock",
		"kernel.enable_telemetry=false",
		"bus.buffer_size=16",
	}
	cfg, err := config.LoadWithOptions(config.Options{Overrides: append(base, overrides...)})
	require.NoError(t, err)
	return cfg
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		check    func(t *testing.T, p llm.Provider)
	}{
		{"ollama", func(t *testing.T, p llm.Provider) { assert.IsType(t, &llm.OllamaProvider{}, p) }},
		{"openai", func(t *testing.T, p llm.Provider) { assert.IsType(t, &openai.Provider{}, p) }},
		{"anthropic", func(t *testing.T, p llm.Provider) { assert.IsType(t, &anthropic.Provider{}, p) }},
		{"mock", func(t *testing.T, p llm.Provider) { assert.IsType(t, &llm.MockProvider{}, p) }},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(config.KernelConfig{Provider: tt.provider, Model: "m", APIKey: "k", MaxTokens: 64})
			require.NoError(t, err)
			tt.check(t, p)
		})
	}

	_, err := NewProvider(config.KernelConfig{Provider: "gemini"})
	assert.Error(t, err)
}

func TestNewConnectorAppliesDefaults(t *testing.T) {
	c, err := NewConnector(config.KernelConfig{Provider: "mock", Model: "tiny"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tiny", c.Model())

	resp, err := c.Send(context.Background(), llm.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, MockResponse, resp.Content)
}

func TestNewConnectorFallsBack(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	c, err := NewConnector(config.KernelConfig{Provider: "ollama", Endpoint: down.URL, Model: "m", Fallback: []string{"mock"}}, nil)
	require.NoError(t, err)
	resp, err := c.Send(context.Background(), llm.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, MockResponse, resp.Content)

	_, err = NewConnector(config.KernelConfig{Provider: "mock", Fallback: []string{"gemini"}}, nil)
	assert.Error(t, err)
}

func TestNewVectorStore(t *testing.T) {
	s, closer, err := NewVectorStore(config.MemoryConfig{Provider: "inmemory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.InMemoryStore{}, s)
	assert.NoError(t, closer())

	s, closer, err = NewVectorStore(config.MemoryConfig{Provider: "chromem"})
	require.NoError(t, err)
	assert.IsType(t, &chromem.Store{}, s)
	assert.NoError(t, closer())

	_, _, err = NewVectorStore(config.MemoryConfig{Provider: "redis"})
	assert.Error(t, err)

	_, err = NewEmbedder(config.MemoryConfig{Embedder: "word2vec"})
	assert.Error(t, err)
}

func TestNewMemoryRoundTrip(t *testing.T) {
	vm, closer, err := NewMemory(config.MemoryConfig{Provider: "inmemory", Embedder: "hash", Dimensions: 64, Collection: "t"}, nil)
	require.NoError(t, err)
	defer closer()

	ctx := context.Background()
	require.NoError(t, vm.Store(ctx, "r1", "the payments service times out under load"))
	recs, err := vm.Search(ctx, "payments service timeout", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].ID)
}

func TestAppAssembles(t *testing.T) {
	cfg := testConfig(t,
		"kernel.enable_memory=true",
		"journal.path="+filepath.Join(t.TempDir(), "journal.db"),
	)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.NotNil(t, a.Memory)
	assert.IsType(t, &journal.SQLiteJournal{}, a.Journal)
	assert.NotEmpty(t, a.Router.Agents())
	_, ok := a.Skills.Descriptor("reasoning")
	assert.True(t, ok)

	results, _ := a.Health.CheckAll(context.Background())
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Component)
	}
	assert.Equal(t, []string{"bus", "journal"}, names)
}

func TestAppRoutesThroughServer(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	body := `{"type":"complianceCheck","agent":"aras","correlationId":"c-app","payload":"review the gateway"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/envelopes?sync=true", strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env, err := messaging.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "c-app", env.CorrelationID)
	assert.Equal(t, "aras", env.Agent)

	events, err := a.Journal.List(context.Background(), journal.Filter{CorrelationID: "c-app"})
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestAppInvalidProfilesPath(t *testing.T) {
	cfg := testConfig(t, "agents.profiles_path="+filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestBreakerGauge(t *testing.T) {
	assert.Equal(t, telemetry.CircuitOpen, breakerGauge(resilience.StateOpen))
	assert.Equal(t, telemetry.CircuitHalfOpen, breakerGauge(resilience.StateHalfOpen))
	assert.Equal(t, telemetry.CircuitClosed, breakerGauge(resilience.StateClosed))
}

// SPDX-License-Identifier: Apache-2.0
package app

import (
	"log/slog"
	"strings"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/config"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm/anthropic"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm/openai"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory/chromem"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory/ollama"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory/qdrant"
)

// MockResponse is what the mock provider answers with.
const MockResponse = "Final answer: mock provider response."

// NewProvider builds the chat provider named by cfg.Provider.
func NewProvider(cfg config.KernelConfig) (llm.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		return llm.NewOllama(cfg.Endpoint), nil
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithAPIKey(cfg.APIKey)}
		if cfg.Endpoint != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
		}
		return openai.New(opts...), nil
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model), anthropic.WithAPIKey(cfg.APIKey)}
		if cfg.MaxTokens > 0 {
			opts = append(opts, anthropic.WithMaxTokens(int64(cfg.MaxTokens)))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
		}
		return anthropic.New(opts...), nil
	case "mock":
		return &llm.MockProvider{Response: MockResponse}, nil
	}
	return nil, errors.Newf(errors.CodeInvalidInput, "unknown llm provider %q", cfg.Provider)
}

// NewConnector wraps the configured provider, and its fallbacks when
// any are listed, with the sampling defaults.
func NewConnector(cfg config.KernelConfig, logger *slog.Logger) (*llm.ProviderConnector, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallback) > 0 {
		fb := &llm.FallbackProvider{Primary: provider, Logger: logger}
		for _, name := range cfg.Fallback {
			alt := cfg
			alt.Provider = name
			p, err := NewProvider(alt)
			if err != nil {
				return nil, err
			}
			fb.Secondaries = append(fb.Secondaries, p)
		}
		provider = fb
	}
	return llm.NewConnector(provider,
		llm.WithDefaults(llm.Parameters{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			TopP:        cfg.TopP,
		}),
		llm.WithProviderName(strings.ToLower(cfg.Provider)),
		llm.WithLogger(logger),
	), nil
}

// NewEmbedder builds the embedder named by cfg.Embedder.
func NewEmbedder(cfg config.MemoryConfig) (memory.Embedder, error) {
	switch strings.ToLower(cfg.Embedder) {
	case "hash", "":
		return memory.NewHashEmbedder(cfg.Dimensions), nil
	case "ollama":
		return ollama.NewEmbedder(cfg.EmbedderBaseURL, cfg.EmbedderModel), nil
	}
	return nil, errors.Newf(errors.CodeInvalidInput, "unknown embedder %q", cfg.Embedder)
}

// NewVectorStore opens the store named by cfg.Provider. closer releases it
// and is never nil.
func NewVectorStore(cfg config.MemoryConfig) (store memory.VectorStore, closer func() error, err error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Provider) {
	case "inmemory", "":
		return memory.NewInMemoryStore(), noop, nil
	case "chromem":
		s, err := chromem.New(cfg.ChromemPath)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "qdrant":
		s, err := qdrant.New(cfg.QdrantAddr)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, errors.Newf(errors.CodeInvalidInput, "unknown memory provider %q", cfg.Provider)
}

// NewMemory assembles vector memory from cfg.
func NewMemory(cfg config.MemoryConfig, logger *slog.Logger) (*memory.VectorMemory, func() error, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := NewVectorStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []memory.Option{memory.WithCollection(cfg.Collection), memory.WithLogger(logger)}
	if cfg.Embedder == "ollama" {
		opts = append(opts, memory.WithModelName(cfg.EmbedderModel))
	}
	return memory.NewVectorMemory(store, embedder, opts...), closeStore, nil
}

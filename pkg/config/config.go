// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads kernel settings from defaults, an optional YAML
// file with profile overlays, .env files, ARCHENA_ environment variables
// and explicit key=value overrides, in that order of precedence.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
)

// EnvPrefix prefixes every environment override: ARCHENA_KERNEL_MODEL sets kernel.model.
const EnvPrefix = "ARCHENA_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Kernel    KernelConfig    `koanf:"kernel"`
	Memory    MemoryConfig    `koanf:"memory"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Bus       BusConfig       `koanf:"bus"`
	HTTP      HTTPConfig      `koanf:"http"`
	Journal   JournalConfig   `koanf:"journal"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Agents    AgentsConfig    `koanf:"agents"`
	Skills    SkillsConfig    `koanf:"skills"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// KernelConfig selects the model provider and its sampling defaults.
type KernelConfig struct {
	Provider        string  `koanf:"provider"` // ollama, openai, anthropic, mock
	Endpoint        string  `koanf:"endpoint"`
	Model           string  `koanf:"model"`
	APIKey          string  `koanf:"api_key"`
	Temperature     float64 `koanf:"temperature"`
	MaxTokens       int     `koanf:"max_tokens"`
	TopP            float64 `koanf:"top_p"`
	EnableMemory    bool    `koanf:"enable_memory"`
	EnableTelemetry bool    `koanf:"enable_telemetry"`

	// Fallback names providers tried in order when the primary fails.
	// They share endpoint, model and key with the primary.
	Fallback []string `koanf:"fallback"`
}

type MemoryConfig struct {
	Provider        string `koanf:"provider"` // inmemory, chromem, qdrant
	Collection      string `koanf:"collection"`
	QdrantAddr      string `koanf:"qdrant_addr"`
	ChromemPath     string `koanf:"chromem_path"`
	Embedder        string `koanf:"embedder"` // hash, ollama
	EmbedderBaseURL string `koanf:"embedder_base_url"`
	EmbedderModel   string `koanf:"embedder_model"`
	Dimensions      int    `koanf:"dimensions"`
}

// PipelineConfig tunes the resilience behaviors around skill execution.
type PipelineConfig struct {
	RetryAttempts   int           `koanf:"retry_attempts"`
	RetryDelay      time.Duration `koanf:"retry_delay"`
	Timeout         time.Duration `koanf:"timeout"`
	BreakerFailures int           `koanf:"breaker_failures"`
	BreakerBreak    time.Duration `koanf:"breaker_break"`
}

type BusConfig struct {
	EventsTopic    string `koanf:"events_topic"`
	ResponsesTopic string `koanf:"responses_topic"`
	RequestsTopic  string `koanf:"requests_topic"`
	BufferSize     int    `koanf:"buffer_size"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// JournalConfig locates the SQLite event journal; an empty path keeps
// events in memory.
type JournalConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, prometheus, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type AgentsConfig struct {
	ProfilesPath string `koanf:"profiles_path"`
}

// SkillsConfig points at a directory of SKILL.md prompt skills.
type SkillsConfig struct {
	Dir string `koanf:"dir"`
}

type MCPConfig struct {
	Servers []MCPServerConfig `koanf:"servers"`
}

// MCPServerConfig describes one MCP server whose tools become actions.
type MCPServerConfig struct {
	Name      string   `koanf:"name"`
	Transport string   `koanf:"transport"` // stdio, http
	Command   string   `koanf:"command"`
	Args      []string `koanf:"args"`
	URL       string   `koanf:"url"`
}

// Options controls a load. Profile names an overlay file next to Path
// (config.yaml + "dev" reads config.dev.yaml when present). Overrides
// are key=value pairs; JSON values are decoded.
type Options struct {
	Path      string
	Profile   string
	DotEnv    []string
	Overrides []string
}

func defaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("kernel.provider", "ollama")
	k.Set("kernel.endpoint", "http://localhost:11434")
	k.Set("kernel.model", "llama3.1")
	k.Set("kernel.temperature", 0.7)
	k.Set("kernel.max_tokens", 4096)
	k.Set("kernel.top_p", 1.0)
	k.Set("kernel.enable_memory", false)
	k.Set("kernel.enable_telemetry", true)

	k.Set("memory.provider", "inmemory")
	k.Set("memory.collection", "archena-memory")
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.embedder", "hash")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")
	k.Set("memory.dimensions", 256)

	k.Set("pipeline.retry_attempts", 3)
	k.Set("pipeline.retry_delay", 150*time.Millisecond)
	k.Set("pipeline.timeout", 10*time.Second)
	k.Set("pipeline.breaker_failures", 5)
	k.Set("pipeline.breaker_break", 30*time.Second)

	k.Set("bus.events_topic", "archenaai.semantic.events")
	k.Set("bus.responses_topic", "archenaai.agents.responses")
	k.Set("bus.requests_topic", "archenaai.agents.requests")
	k.Set("bus.buffer_size", 64)

	k.Set("http.addr", ":8080")
	k.Set("telemetry.exporter", "prometheus")
}

// Load reads defaults, the file at path (when not empty) and ARCHENA_
// environment variables.
func Load(path string) (*Config, error) {
	return LoadWithOptions(Options{Path: path})
}

// LoadWithOptions performs a full load.
func LoadWithOptions(opts Options) (*Config, error) {
	if err := LoadDotEnv(opts.DotEnv...); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	defaults(k)

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, errors.New(errors.CodeInvalidInput, "failed to load config file", err).
				WithContext("path", opts.Path)
		}
		if overlay := ProfilePath(opts.Path, opts.Profile); overlay != "" {
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil {
				return nil, errors.New(errors.CodeInvalidInput, "failed to load profile file", err).
					WithContext("path", overlay)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	for _, raw := range opts.Overrides {
		key, value, err := parseOverride(raw)
		if err != nil {
			return nil, err
		}
		k.Set(key, value)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "failed to decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps ARCHENA_KERNEL_MAX_TOKENS to kernel.max_tokens: the first
// segment is the section, the rest is the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// ProfilePath returns the overlay for profile next to path, or "" when
// profile is empty or the file does not exist.
func ProfilePath(path, profile string) string {
	if path == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(path)
	overlay := strings.TrimSuffix(path, ext) + "." + profile + ext
	if _, err := os.Stat(overlay); err != nil {
		return ""
	}
	return overlay
}

// LoadDotEnv loads .env files without overriding variables already set.
// Missing files are skipped; with no paths ".env" is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.New(errors.CodeInvalidInput, "failed to load env file", err).WithContext("path", p)
		}
	}
	return nil
}

func parseOverride(raw string) (string, any, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, errors.Newf(errors.CodeInvalidInput, "override %q must be key=value", raw)
	}
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return key, decoded, nil
	}
	return key, value, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	checks := []struct {
		field, value string
		allowed      []string
	}{
		{"kernel.provider", c.Kernel.Provider, []string{"ollama", "openai", "anthropic", "mock"}},
		{"memory.provider", c.Memory.Provider, []string{"inmemory", "chromem", "qdrant"}},
		{"memory.embedder", c.Memory.Embedder, []string{"hash", "ollama"}},
		{"telemetry.exporter", c.Telemetry.Exporter, []string{"stdout", "otlp", "prometheus", "none"}},
		{"log.format", c.Log.Format, []string{"text", "json"}},
	}
	for _, chk := range checks {
		if !contains(chk.allowed, strings.ToLower(chk.value)) {
			return errors.Newf(errors.CodeValidation, "%s: unsupported value %q", chk.field, chk.value).
				WithContext("allowed", chk.allowed)
		}
	}
	for _, f := range c.Kernel.Fallback {
		if !contains([]string{"ollama", "openai", "anthropic", "mock"}, strings.ToLower(f)) {
			return errors.Newf(errors.CodeValidation, "kernel.fallback: unsupported provider %q", f)
		}
	}
	if c.Kernel.MaxTokens < 0 || c.Pipeline.RetryAttempts < 0 {
		return errors.New(errors.CodeValidation, "kernel.max_tokens and pipeline.retry_attempts must not be negative", nil)
	}
	for _, s := range c.MCP.Servers {
		if s.Name == "" {
			return errors.New(errors.CodeValidation, "mcp server name cannot be empty", nil)
		}
		if s.Command == "" && s.URL == "" {
			return errors.Newf(errors.CodeValidation, "mcp server %q needs a command or a url", s.Name)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

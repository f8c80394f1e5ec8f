package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ChatModel)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithChatModel("gpt-4o-mini"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	})

	t.Run("with custom timeout", func(t *testing.T) {
		cfg := NewConfig(WithTimeout(30 * time.Second))

		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name              string
		embeddingHost     string
		chatHost          string
		expectedEmbedding string
		expectedChat      string
	}{
		{
			name:              "already has /v1",
			embeddingHost:     "http://localhost:11434/v1",
			chatHost:          "http://localhost:11434/v1",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "missing /v1",
			embeddingHost:     "http://localhost:11434",
			chatHost:          "http://localhost:11434",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "has trailing slash",
			embeddingHost:     "http://localhost:11434/",
			chatHost:          "http://localhost:11434/",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedChat:      "http://localhost:11434/v1",
		},
		{
			name:              "empty hosts",
			embeddingHost:     "",
			chatHost:          "",
			expectedEmbedding: "",
			expectedChat:      "",
		},
		{
			name:              "different formats",
			embeddingHost:     "http://embed:8080",
			chatHost:          "http://chat:9090/v1",
			expectedEmbedding: "http://embed:8080/v1",
			expectedChat:      "http://chat:9090/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost: tt.embeddingHost,
				ChatHost:      tt.chatHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedChat, cfg.ChatHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			ChatHost:       "http://localhost:11434",
			EmbeddingModel: "embeddinggemma",
			ChatModel:      "qwen2.5:3b",
			Timeout:        5 * time.Second,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingHost = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingHost")
	})

	t.Run("missing chat host", func(t *testing.T) {
		cfg := valid()
		cfg.ChatHost = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ChatHost")
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := valid()
		cfg.EmbeddingModel = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingModel")
	})

	t.Run("missing chat model", func(t *testing.T) {
		cfg := valid()
		cfg.ChatModel = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ChatModel")
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Timeout = 0

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Timeout")
	})
}

func TestConfigValidate_Integration(t *testing.T) {
	// Test that NewConfig produces a valid configuration
	cfg := NewConfig()
	err := cfg.Validate()
	require.NoError(t, err)

	// Test that DefaultConfig produces a valid configuration
	cfg = DefaultConfig()
	err = cfg.Validate()
	require.NoError(t, err)
}

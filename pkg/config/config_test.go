package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	cfg, err := Parse([]byte("log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "duckduckgo", cfg.Search.Provider)
	assert.Equal(t, "gnews", cfg.Search.NewsProvider)
	assert.Equal(t, 5, cfg.Research.MaxResults)
	assert.Equal(t, 10, cfg.Research.WebQueryResults)
	assert.Equal(t, 5, cfg.Research.NewsQueryResults)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff())
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParse_TavilyKeyFromEnv(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "tvly-env")

	cfg, err := Parse([]byte("search:\n  provider: tavily\n"))
	require.NoError(t, err)
	assert.Equal(t, "tvly-env", cfg.Search.Tavily.APIKey)
	assert.Empty(t, cfg.Search.NewsProvider)
}

func TestValidate(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"tavily without key", "search:\n  provider: tavily\n", "search.tavily.api_key"},
		{"searxng without url", "search:\n  provider: searxng\n", "search.searxng.base_url"},
		{"unknown provider", "search:\n  provider: bing\n", "search.provider"},
		{"unknown news provider", "search:\n  provider: duckduckgo\n  news_provider: yahoo\n", "search.news_provider"},
		{"bad server timeout", "server:\n  timeout: soon\n", "server.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "want *config.Error, got %T", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestRequireLLM(t *testing.T) {
	cfg := &Config{}
	var cfgErr *Error
	require.True(t, errors.As(cfg.RequireLLM(), &cfgErr))
	assert.Equal(t, "llm.api_key", cfgErr.Field)

	cfg.LLM.APIKey = "sk-test"
	require.True(t, errors.As(cfg.RequireLLM(), &cfgErr))
	assert.Equal(t, "llm.model", cfgErr.Field)

	cfg.LLM.Model = "gpt-4o-mini"
	assert.NoError(t, cfg.RequireLLM())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  provider: searxng\n  searxng:\n    base_url: http://localhost:8888\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8888", cfg.Search.SearXNG.BaseURL)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Sample(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", cfg.Search.Provider)
	assert.Equal(t, "gnews", cfg.Search.NewsProvider)
	assert.Equal(t, 1, cfg.Search.MaxRetries)
	assert.Equal(t, 5, cfg.Research.MaxResults)
	assert.Equal(t, 3, cfg.Writer.FetchTop)
	assert.Empty(t, cfg.DB.Host)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", []string{"http://localhost:3000"}, "assets")
		assert.NoError(t, err, "expected no error for valid config")
		assert.Equal(t, "localhost:8000", cfg.ServerAddr, "expected server address to match")
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins, "expected allowed origins to match")
		assert.Equal(t, "assets", cfg.StaticDir, "expected static dir to match")
	})

	t.Run("empty server address", func(t *testing.T) {
		cfg, err := NewConfig("", nil, "")
		assert.Error(t, err, "expected error for empty server address")
		assert.Nil(t, cfg, "expected nil config on error")
	})

	t.Run("default static dir", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", nil, "")
		assert.NoError(t, err, "expected no error when static dir is empty")
		assert.Equal(t, "static", cfg.StaticDir, "expected static dir to default")
	})
}

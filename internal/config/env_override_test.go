package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("PLANNER_VAL_BINARY enables the validator", func(t *testing.T) {
		t.Setenv("PLANNER_VAL_BINARY", "/usr/local/bin/Validate")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/usr/local/bin/Validate", cfg.Validator.Binary)
		assert.True(t, cfg.Validator.Enabled)
	})

	t.Run("PLANNER_DB sets the database path", func(t *testing.T) {
		t.Setenv("PLANNER_DB", "/tmp/results.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/results.db", cfg.Store.DatabasePath)
	})

	t.Run("PLANNER_WORKERS parses integers", func(t *testing.T) {
		t.Setenv("PLANNER_WORKERS", "3")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 3, cfg.Batch.Workers)
	})

	t.Run("PLANNER_WORKERS ignores garbage", func(t *testing.T) {
		t.Setenv("PLANNER_WORKERS", "many")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 1, cfg.Batch.Workers)
	})

	t.Run("PLANNER_LOG_LEVEL", func(t *testing.T) {
		t.Setenv("PLANNER_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("empty values change nothing", func(t *testing.T) {
		t.Setenv("PLANNER_VAL_BINARY", "")
		t.Setenv("PLANNER_DB", "")
		t.Setenv("PLANNER_WORKERS", "")
		t.Setenv("PLANNER_LOG_LEVEL", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultConfig(), cfg)
	})
}

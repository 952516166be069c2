package config

import (
	"errors"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected
// default values. Changes to defaults should be intentional; these tests
// serve as living documentation of what the defaults are.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxDepth is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != 5 {
			t.Errorf("expected MaxDepth to be 5, got %d", cfg.MaxDepth)
		}
	})

	t.Run("default MaxPages is 100", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 100 {
			t.Errorf("expected MaxPages to be 100, got %d", cfg.MaxPages)
		}
	})

	t.Run("default Delay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.Delay != time.Second {
			t.Errorf("expected Delay to be 1s, got %v", cfg.Delay)
		}
	})

	t.Run("default MaxRetries is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 3 {
			t.Errorf("expected MaxRetries to be 3, got %d", cfg.MaxRetries)
		}
	})

	t.Run("default RetryBaseDelay is 500 milliseconds", func(t *testing.T) {
		t.Parallel()
		if cfg.RetryBaseDelay != 500*time.Millisecond {
			t.Errorf("expected RetryBaseDelay to be 500ms, got %v", cfg.RetryBaseDelay)
		}
	})

	t.Run("default RespectRobots is true", func(t *testing.T) {
		t.Parallel()
		if !cfg.RespectRobots {
			t.Error("expected RespectRobots to be true")
		}
	})

	t.Run("default SkipUnauthorized is false", func(t *testing.T) {
		t.Parallel()
		if cfg.SkipUnauthorized {
			t.Error("expected SkipUnauthorized to be false")
		}
	})

	t.Run("default Concurrency is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 1 {
			t.Errorf("expected Concurrency to be 1, got %d", cfg.Concurrency)
		}
	})

	t.Run("default BatchSize is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 1 {
			t.Errorf("expected BatchSize to be 1, got %d", cfg.BatchSize)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case exercises one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	// Tests modify specific fields to test individual rules.
	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Seeds = []string{"https://example.com"}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("missing seed returns ErrNoSeed", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Seeds = nil
		if err := cfg.Validate(); !errors.Is(err, ErrNoSeed) {
			t.Errorf("expected ErrNoSeed, got %v", err)
		}
	})

	t.Run("zero timeout returns ErrInvalidTimeout", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Timeout = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("zero max pages returns ErrInvalidMaxPages", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxPages = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxPages) {
			t.Errorf("expected ErrInvalidMaxPages, got %v", err)
		}
	})

	t.Run("negative depth returns ErrInvalidMaxDepth", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxDepth = -1
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxDepth) {
			t.Errorf("expected ErrInvalidMaxDepth, got %v", err)
		}
	})

	t.Run("zero depth is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxDepth = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("depth 0 (seed only) should be valid, got %v", err)
		}
	})

	t.Run("negative delay returns ErrInvalidDelay", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Delay = -time.Second
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidDelay) {
			t.Errorf("expected ErrInvalidDelay, got %v", err)
		}
	})

	t.Run("zero delay is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Delay = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("delay 0 should be valid, got %v", err)
		}
	})

	t.Run("negative retries returns ErrInvalidMaxRetries", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxRetries = -1
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxRetries) {
			t.Errorf("expected ErrInvalidMaxRetries, got %v", err)
		}
	})

	t.Run("zero concurrency returns ErrInvalidConcurrency", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Concurrency = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConcurrency) {
			t.Errorf("expected ErrInvalidConcurrency, got %v", err)
		}
	})

	t.Run("zero batch size returns ErrInvalidBatchSize", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.BatchSize = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("expected ErrInvalidBatchSize, got %v", err)
		}
	})

	t.Run("conflicting report formats return ErrConflictingReportFormats", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.JSONReport = true
		cfg.MarkdownReport = true
		if err := cfg.Validate(); !errors.Is(err, ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}

// TestXDGDirs verifies the XDG directories end with the app name.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if dir := XDGDataDir(); dir == "" {
		t.Error("XDGDataDir should not be empty")
	}
	if dir := XDGConfigDir(); dir == "" {
		t.Error("XDGConfigDir should not be empty")
	}
}

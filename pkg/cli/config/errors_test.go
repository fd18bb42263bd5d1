package config_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/cli/config"
)

func TestConfigErrors_SentinelIdentification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		sentinelError error
		wantMatch     bool
	}{
		{
			name:          "ErrConfigNotFound can be identified",
			err:           goerr.Wrap(config.ErrConfigNotFound, "failed to load config"),
			sentinelError: config.ErrConfigNotFound,
			wantMatch:     true,
		},
		{
			name:          "ErrInvalidConfig can be identified",
			err:           goerr.Wrap(config.ErrInvalidConfig, "validation failed"),
			sentinelError: config.ErrInvalidConfig,
			wantMatch:     true,
		},
		{
			name:          "Different sentinel errors do not match",
			err:           goerr.Wrap(config.ErrConfigNotFound, "failed to load config"),
			sentinelError: config.ErrInvalidConfig,
			wantMatch:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := errors.Is(tt.err, tt.sentinelError)
			gt.Value(t, matched).Equal(tt.wantMatch)
		})
	}
}

func TestConfigErrors_ContextValues(t *testing.T) {
	t.Run("missing file carries its path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.toml")
		_, err := config.LoadRules(path)

		var ge *goerr.Error
		if !errors.As(err, &ge) {
			t.Fatalf("expected goerr.Error, got %T", err)
		}
		gt.V(t, ge.Values()[config.ConfigPathKey]).Equal(any(path))
	})

	t.Run("validation failure carries the section", func(t *testing.T) {
		path := writeRuleFile(t, `
[compliance]
window = 0
compliant_min = 80
partial_min = 50
`)
		_, err := config.LoadRules(path)
		gt.Error(t, err).Is(config.ErrInvalidConfig)

		var ge *goerr.Error
		if !errors.As(err, &ge) {
			t.Fatalf("expected goerr.Error, got %T", err)
		}
		values := ge.Values()
		gt.V(t, values[config.SectionKey]).Equal(any("rules"))
		gt.V(t, values[config.ConfigPathKey]).Equal(any(path))
	})
}

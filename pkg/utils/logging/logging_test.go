package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

func TestFrom(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logging.With(context.Background(), logger)
	logging.From(ctx).Info("hello", "key", "value")
	gt.S(t, buf.String()).Contains(`"key":"value"`)

	gt.V(t, logging.From(context.Background())).Equal(logging.Default())
}

func TestSetDefault(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	var buf bytes.Buffer
	logging.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	logging.Default().Warn("replaced")
	gt.S(t, buf.String()).Contains("replaced")
}

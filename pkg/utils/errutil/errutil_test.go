package errutil_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/utils/errutil"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

func TestHandle(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	err := goerr.New("boom", goerr.V("risk_id", "r1"))
	got := errutil.Handle(ctx, err, "cascade failed")

	gt.V(t, got).Equal(error(err))
	gt.S(t, buf.String()).Contains("cascade failed")
	gt.S(t, buf.String()).Contains("r1")

	gt.NoError(t, errutil.Handle(ctx, nil, "ignored"))
}

func TestHandleHTTP(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	w := httptest.NewRecorder()
	errutil.HandleHTTP(ctx, w, errors.New("store unavailable"), http.StatusInternalServerError)

	gt.V(t, w.Code).Equal(http.StatusInternalServerError)
	gt.S(t, w.Body.String()).Contains("store unavailable")
	gt.S(t, buf.String()).Contains(`"status":500`)
}

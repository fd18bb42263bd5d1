package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/service/metrics"
)

func TestObserveSweep(t *testing.T) {
	m := metrics.New()

	m.ObserveSweep("overdue_tasks", model.Summary{Processed: 4, Updated: 1, Skipped: 3}, time.Second, nil)
	m.ObserveSweep("overdue_tasks", model.Summary{}, time.Second, errors.New("boom"))

	gt.V(t, testutil.CollectAndCount(m.Registry(), "grcore_sweep_runs_total")).Equal(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	gt.V(t, rec.Code).Equal(http.StatusOK)

	body := rec.Body.String()
	gt.B(t, strings.Contains(body, `grcore_sweep_entities_total{kind="overdue_tasks",outcome="updated"} 1`)).True()
	gt.B(t, strings.Contains(body, `grcore_sweep_runs_total{kind="overdue_tasks",status="error"} 1`)).True()
}

func TestCounters(t *testing.T) {
	m := metrics.New()

	m.CountNotification(model.EventTaskOverdue)
	m.CountNotification(model.EventTaskOverdue)
	m.CountRequest("/api/sweeps/{kind}", 200)
	m.ObserveCascade("control_state", model.Summary{Updated: 3, Errored: 1})

	gt.V(t, testutil.CollectAndCount(m.Registry(), "grcore_notifications_total")).Equal(1)
	gt.V(t, testutil.CollectAndCount(m.Registry(), "grcore_http_requests_total")).Equal(1)
	gt.V(t, testutil.CollectAndCount(m.Registry(), "grcore_cascade_entities_total")).Equal(3)
}

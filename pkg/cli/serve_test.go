package cli_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/cli"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/repository/firestore"
	"github.com/secmon-lab/grcore/pkg/service/worker"
)

func TestSweepSchedules(t *testing.T) {
	schedules := cli.SweepSchedules(24*time.Hour, time.Hour, 0)
	gt.V(t, schedules).Equal([]worker.Schedule{
		{Kind: types.SweepCompliance, Interval: 24 * time.Hour},
		{Kind: types.SweepOverdueTasks, Interval: time.Hour},
	})

	gt.A(t, cli.SweepSchedules(0, 0, 0)).Length(0)
}

func TestGetIndexConfig(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{
			name:   "no prefix",
			prefix: "",
			want:   []string{"test_results", "issues", "relations"},
		},
		{
			name:   "prefix matches repository collections",
			prefix: "tenant",
			want:   []string{"tenant_test_results", "tenant_issues", "tenant_relations"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cli.GetIndexConfig(tt.prefix)
			gt.NoError(t, cfg.Validate())
			gt.A(t, cfg.Collections).Length(3).Required()

			names := make([]string, 0, len(cfg.Collections))
			for _, c := range cfg.Collections {
				names = append(names, c.Name)
				gt.B(t, len(c.Indexes) > 0).True()
			}
			gt.V(t, names).Equal(tt.want)
		})
	}

	gt.V(t, firestore.CollectionName("tenant", firestore.CollectionIssues)).Equal("tenant_issues")
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/cli/config"
	domainConfig "github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadRules(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		path := writeRuleFile(t, `
[ratings]
low_max = 5
medium_max = 10
high_max = 16

[compliance]
window = 10
compliant_min = 90
partial_min = 60

[escalation]
after_days = 3

[transitions.risk]
draft = ["assess", "closed"]
assess = ["draft"]
closed = []

[assignment.category_groups]
technology = "platform_team"

[[assignment.groups]]
id = "platform_team"
name = "Platform Team"
manager = "grace"

[roles]
alice = ["grc_manager"]

[[remap]]
name = "legacy-categories"
target = "risk.category"
batch_limit = 50
preserve_audit = true

  [remap.mapping]
  it_risk = "technology"
  vendor_risk = "third_party"
`)

		rules, err := config.LoadRules(path)
		gt.NoError(t, err).Required()

		gt.V(t, rules.Ratings).Equal(domainConfig.RatingThresholds{LowMax: 5, MediumMax: 10, HighMax: 16})
		gt.V(t, rules.Compliance.Window).Equal(10)
		gt.V(t, rules.Escalation.AfterDays).Equal(3)
		gt.V(t, rules.Transitions.Risk["draft"]).Equal([]string{"assess", "closed"})
		gt.V(t, rules.Transitions.Control).Nil()

		group, ok := rules.Assignment.GroupFor("technology")
		gt.B(t, ok).True()
		gt.V(t, group).Equal(types.GroupID("platform_team"))
		gt.V(t, rules.Assignment.ManagerOf("platform_team")).Equal("grace")

		gt.V(t, rules.Roles["alice"]).Equal([]string{"grc_manager"})

		table, ok := rules.Remap("legacy-categories")
		gt.B(t, ok).True()
		gt.V(t, table.Target).Equal(types.RemapRiskCategory)
		gt.V(t, table.Limit()).Equal(50)
		gt.B(t, table.PreserveAudit).True()
		gt.V(t, table.Mapping["it_risk"]).Equal("technology")
	})

	t.Run("omitted sections keep defaults", func(t *testing.T) {
		path := writeRuleFile(t, `
[escalation]
after_days = 14
`)
		rules, err := config.LoadRules(path)
		gt.NoError(t, err).Required()

		defaults := domainConfig.DefaultRules()
		gt.V(t, rules.Escalation.AfterDays).Equal(14)
		gt.V(t, rules.Ratings).Equal(defaults.Ratings)
		gt.V(t, rules.Compliance).Equal(defaults.Compliance)
		gt.A(t, rules.Assignment.Groups).Length(len(defaults.Assignment.Groups))
	})

	t.Run("empty file is the defaults", func(t *testing.T) {
		rules, err := config.LoadRules(writeRuleFile(t, ""))
		gt.NoError(t, err).Required()
		gt.V(t, rules).Equal(domainConfig.DefaultRules())
	})
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "malformed TOML",
			content: `[ratings`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "unknown key",
			content: `
[escalation]
after_dayz = 3
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "thresholds out of order",
			content: `
[ratings]
low_max = 10
medium_max = 5
high_max = 16
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "unknown state in transition table",
			content: `
[transitions.issue]
open = ["reopened"]
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "category mapped to undefined group",
			content: `
[assignment.category_groups]
technology = "nobody"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "duplicate remap table",
			content: `
[[remap]]
name = "a"
target = "risk.category"
mapping = { it_risk = "technology" }

[[remap]]
name = "a"
target = "risk.category"
mapping = { fin_risk = "financial" }
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadRules(writeRuleFile(t, tt.content))
			gt.Error(t, err).Is(tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadRules(filepath.Join(t.TempDir(), "nope.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})
}

func TestRules_Configure(t *testing.T) {
	rules, err := config.NewRulesForTest("").Configure()
	gt.NoError(t, err).Required()
	gt.V(t, rules).Equal(domainConfig.DefaultRules())

	path := writeRuleFile(t, `
[roles]
bob = ["grc_manager"]
`)
	rules, err = config.NewRulesForTest(path).Configure()
	gt.NoError(t, err).Required()
	gt.A(t, rules.Roles["bob"]).Length(1)
}

package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/cli"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func run(args ...string) error {
	return cli.Run(context.Background(), append([]string{"grcore", "--log-output", "stderr"}, args...), "test")
}

func TestRun_ValidateCommand_ValidConfig(t *testing.T) {
	configPath := writeFile(t, "rules.toml", `
[escalation]
after_days = 10

[[assignment.groups]]
id = "it_risk_management"
name = "IT Risk Management"
manager = "grace"

[assignment.category_groups]
technology = "it_risk_management"

[[remap]]
name = "legacy"
target = "risk.category"
mapping = { it_risk = "technology" }
`)

	gt.NoError(t, run("validate", "--config", configPath))
}

func TestRun_ValidateCommand_InvalidConfig(t *testing.T) {
	configPath := writeFile(t, "rules.toml", `
[ratings]
low_max = 20
medium_max = 10
high_max = 5
`)

	gt.Value(t, run("validate", "--config", configPath)).NotNil()
}

func TestRun_ValidateCommand_MissingConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nonexistent.toml")
	gt.Value(t, run("validate", "--config", configPath)).NotNil()
}

func TestRun_ValidateCommand_DBCheckWithMemory(t *testing.T) {
	// empty DB has nothing to report
	err := run("validate", "--check-db", "--repository-backend", "memory")
	gt.NoError(t, err)
}

func TestRun_SweepCommand(t *testing.T) {
	gt.NoError(t, run("sweep", "--repository-backend", "memory", "compliance"))
	gt.NoError(t, run("sweep", "--repository-backend", "memory", "--limit", "10", "overdue_tasks"))
	gt.NoError(t, run("sweep", "--repository-backend", "memory", "orphans"))

	gt.Value(t, run("sweep", "--repository-backend", "memory", "weekly")).NotNil()
	gt.Value(t, run("sweep", "--repository-backend", "memory")).NotNil()
}

func TestRun_RemapCommand(t *testing.T) {
	configPath := writeFile(t, "rules.toml", `
[[remap]]
name = "legacy"
target = "task.assignment_group"
mapping = { old_team = "compliance_team" }
`)

	gt.NoError(t, run("remap", "--repository-backend", "memory", "--config", configPath, "--table", "legacy"))
	gt.NoError(t, run("remap", "--repository-backend", "memory", "--config", configPath, "--table", "legacy", "--dry-run=false"))
	gt.Value(t, run("remap", "--repository-backend", "memory", "--config", configPath, "--table", "missing")).NotNil()
}

func TestRun_CleanupCommand(t *testing.T) {
	gt.NoError(t, run("cleanup", "--repository-backend", "memory", "--issues"))
	gt.NoError(t, run("cleanup", "--repository-backend", "memory", "--kind", "risk_control", "--dry-run=false"))
	gt.Value(t, run("cleanup", "--repository-backend", "memory", "--kind", "risk_policy")).NotNil()
}

func TestRun_EnvFile(t *testing.T) {
	envPath := writeFile(t, ".env", "GRCORE_REPOSITORY_BACKEND=memory\n")
	t.Cleanup(func() { _ = os.Unsetenv("GRCORE_REPOSITORY_BACKEND") })

	// firestore is the default backend and fails without a project ID
	gt.NoError(t, run("--env-file", envPath, "sweep", "orphans"))
}

func TestRun_UnknownBackend(t *testing.T) {
	gt.Value(t, run("sweep", "--repository-backend", "postgres", "compliance")).NotNil()
}

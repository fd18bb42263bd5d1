package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/cli/config"
	"github.com/secmon-lab/grcore/pkg/usecase"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var rulesCfg config.Rules
	var repoCfg config.Repository
	var checkDB bool

	flags := commonFlags(&rulesCfg, &repoCfg)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-db",
		Usage:       "Also report orphaned relations and dangling references in the repository",
		Destination: &checkDB,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the rule file and optionally check DB consistency",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			// Step 1: Load and validate the rule file
			rules, err := rulesCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			logger.Info("Configuration validation passed",
				"groups", len(rules.Assignment.Groups),
				"category_groups", len(rules.Assignment.CategoryGroups),
				"remap_tables", len(rules.Remaps),
				"role_grants", len(rules.Roles),
			)

			if !checkDB {
				logger.Info("DB consistency check not requested")
				return nil
			}

			// Step 2: Report orphans and dangling references without fixing them
			rt, err := newRuntime(ctx, &rulesCfg, &repoCfg)
			if err != nil {
				return err
			}
			defer rt.close()

			report, err := rt.uc.Relationship.CleanupOrphans(ctx, usecase.CleanupRequest{IncludeIssues: true})
			if err != nil {
				return goerr.Wrap(err, "DB consistency check failed")
			}

			for _, o := range report.Orphans {
				logger.Warn("Orphaned relation found",
					"relation_id", o.Relation.ID,
					"kind", o.Relation.Kind,
					"left", o.Relation.Left.String(),
					"right", o.Relation.Right.String(),
					"reason", o.Reason,
				)
			}
			for _, d := range report.Issues {
				logger.Warn("Dangling reference found",
					"table", d.Field.Table,
					"field", d.Field.Field,
					"row", d.Row.String(),
					"missing", d.Missing.String(),
				)
			}

			if n := len(report.Orphans) + len(report.Issues); n > 0 {
				return goerr.New("DB consistency check found issues", goerr.V("count", n))
			}

			logger.Info("DB consistency check passed")
			return nil
		},
	}
}

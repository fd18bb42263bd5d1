package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/cli/config"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/usecase"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type sweepOutput struct {
	Kind          types.SweepKind `json:"kind"`
	Summary       model.Summary   `json:"summary"`
	Notifications int             `json:"notifications"`
}

func cmdSweep() *cli.Command {
	var rulesCfg config.Rules
	var repoCfg config.Repository
	var limit int

	flags := commonFlags(&rulesCfg, &repoCfg)
	flags = append(flags, &cli.IntFlag{
		Name:        "limit",
		Usage:       "Maximum number of rows to process (0 for no limit)",
		Sources:     cli.EnvVars("GRCORE_SWEEP_LIMIT"),
		Destination: &limit,
	})

	return &cli.Command{
		Name:      "sweep",
		Usage:     "Run one scheduled sweep (compliance, overdue_tasks or orphans)",
		ArgsUsage: "<kind>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return goerr.New("exactly one sweep kind is required", goerr.V("args", c.Args().Slice()))
			}
			kind := types.SweepKind(c.Args().First())
			if !kind.IsValid() {
				return goerr.Wrap(usecase.ErrUnknownSweep, "invalid sweep kind", goerr.V("kind", kind))
			}

			rt, err := newRuntime(ctx, &rulesCfg, &repoCfg)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.uc.Cascade.OnScheduledSweep(ctx, kind, usecase.SweepOptions{Limit: limit})
			if err != nil {
				return goerr.Wrap(err, "sweep failed", goerr.V("kind", kind))
			}
			rt.uc.Deliver(ctx, result.Notifications)

			return printJSON(c, sweepOutput{
				Kind:          kind,
				Summary:       result.Summary,
				Notifications: len(result.Notifications),
			})
		},
	}
}

type remapOutput struct {
	Table      string        `json:"table"`
	DryRun     bool          `json:"dry_run"`
	Summary    model.Summary `json:"summary"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func cmdRemap() *cli.Command {
	var rulesCfg config.Rules
	var repoCfg config.Repository
	var table string
	var dryRun bool
	var actor string
	var startAfter string

	flags := commonFlags(&rulesCfg, &repoCfg)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "table",
			Aliases:     []string{"t"},
			Usage:       "Name of the remap table in the rule file",
			Required:    true,
			Destination: &table,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Report what would change without writing",
			Value:       true,
			Destination: &dryRun,
		},
		&cli.StringFlag{
			Name:        "actor",
			Usage:       "Principal recorded on rewritten rows",
			Value:       "system:remap",
			Destination: &actor,
		},
		&cli.StringFlag{
			Name:        "start-after",
			Usage:       "Resume after this row ID (the next_cursor of a previous run)",
			Destination: &startAfter,
		},
	)

	return &cli.Command{
		Name:  "remap",
		Usage: "Rewrite a category or assignment group value by a configured remap table",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := newRuntime(ctx, &rulesCfg, &repoCfg)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.uc.Cascade.RunRemapTable(ctx, table, !dryRun, actor, startAfter)
			if err != nil {
				return goerr.Wrap(err, "remap failed", goerr.V("table", table))
			}

			logging.From(ctx).Info("remap finished",
				"table", table,
				"dry_run", result.DryRun,
				"updated", result.Summary.Updated,
				"next_cursor", result.NextCursor)

			return printJSON(c, remapOutput{
				Table:      table,
				DryRun:     result.DryRun,
				Summary:    result.Summary,
				NextCursor: result.NextCursor,
			})
		},
	}
}

type cleanupOutput struct {
	DryRun  bool            `json:"dry_run"`
	Checks  []cleanupCheck  `json:"checks"`
	Orphans []orphanOutput  `json:"orphans"`
	Issues  []danglingIssue `json:"issues,omitempty"`
	Summary model.Summary   `json:"summary"`
}

type cleanupCheck struct {
	Name  string `json:"name"`
	Found int    `json:"found"`
	Fixed int    `json:"fixed"`
}

type orphanOutput struct {
	RelationID string               `json:"relation_id"`
	Kind       types.RelationKind   `json:"kind"`
	Reason     usecase.OrphanReason `json:"reason"`
}

type danglingIssue struct {
	Issue  string `json:"issue"`
	Source string `json:"source"`
}

func cmdCleanup() *cli.Command {
	var rulesCfg config.Rules
	var repoCfg config.Repository
	var dryRun bool
	var includeIssues bool
	var kinds []string
	var limit int
	var actor string

	flags := commonFlags(&rulesCfg, &repoCfg)
	flags = append(flags,
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Report orphans without deleting",
			Value:       true,
			Destination: &dryRun,
		},
		&cli.BoolFlag{
			Name:        "issues",
			Usage:       "Also close open issues whose source record no longer exists",
			Destination: &includeIssues,
		},
		&cli.StringSliceFlag{
			Name:        "kind",
			Usage:       "Relation kind to check (repeatable, default all)",
			Destination: &kinds,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of rows to delete or close (0 for no limit)",
			Destination: &limit,
		},
		&cli.StringFlag{
			Name:        "actor",
			Usage:       "Principal recorded on closed issues",
			Value:       "system:cleanup",
			Destination: &actor,
		},
	)

	return &cli.Command{
		Name:  "cleanup",
		Usage: "Find and optionally delete relation rows pointing at missing records",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			req := usecase.CleanupRequest{
				IncludeIssues: includeIssues,
				Apply:         !dryRun,
				Limit:         limit,
				Actor:         actor,
			}
			for _, k := range kinds {
				kind := types.RelationKind(k)
				if !kind.IsValid() {
					return goerr.Wrap(model.ErrValidation, "invalid relation kind", goerr.V("kind", k))
				}
				req.Kinds = append(req.Kinds, kind)
			}

			rt, err := newRuntime(ctx, &rulesCfg, &repoCfg)
			if err != nil {
				return err
			}
			defer rt.close()

			report, err := rt.uc.Relationship.CleanupOrphans(ctx, req)
			if err != nil {
				return goerr.Wrap(err, "cleanup failed")
			}

			out := cleanupOutput{
				DryRun:  report.DryRun,
				Checks:  []cleanupCheck{},
				Orphans: []orphanOutput{},
				Summary: report.Summary,
			}
			for _, chk := range report.Checks {
				out.Checks = append(out.Checks, cleanupCheck{Name: chk.Name, Found: chk.Found, Fixed: chk.Fixed})
			}
			for _, o := range report.Orphans {
				out.Orphans = append(out.Orphans, orphanOutput{RelationID: o.Relation.ID, Kind: o.Relation.Kind, Reason: o.Reason})
			}
			for _, d := range report.Issues {
				out.Issues = append(out.Issues, danglingIssue{Issue: d.Row.ID, Source: d.Missing.String()})
			}
			return printJSON(c, out)
		},
	}
}

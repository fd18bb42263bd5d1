package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/repository/firestore"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var prefix string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("GRCORE_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Value:       "(default)",
				Sources:     cli.EnvVars("GRCORE_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix added to every Firestore collection name",
				Sources:     cli.EnvVars("GRCORE_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &prefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"prefix", prefix,
				"dryRun", dryRun)

			client, err := fireconf.New(ctx, projectID, databaseID, getIndexConfig(prefix),
				fireconf.WithLogger(logger),
				fireconf.WithDryRun(dryRun),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations", goerr.V("dry_run", dryRun))
			}
			if dryRun {
				logger.Info("Dry run finished, no changes applied")
				return nil
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}

// getIndexConfig returns the composite indexes the repository queries need
func getIndexConfig(prefix string) *fireconf.Config {
	relationSide := func(side string) fireconf.Index {
		return fireconf.Index{
			Fields: []fireconf.IndexField{
				{Path: "Kind", Order: fireconf.OrderAscending},
				{Path: side + ".Kind", Order: fireconf.OrderAscending},
				{Path: side + ".ID", Order: fireconf.OrderAscending},
			},
		}
	}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.CollectionName(prefix, firestore.CollectionTestResults),
				Indexes: []fireconf.Index{
					// ListRecent: ControlID ASC, Active ASC, CreatedAt DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "ControlID", Order: fireconf.OrderAscending},
							{Path: "Active", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: firestore.CollectionName(prefix, firestore.CollectionIssues),
				Indexes: []fireconf.Index{
					// ListOpenBySource: Source.Kind, Source.ID, State IN
					{
						Fields: []fireconf.IndexField{
							{Path: "Source.Kind", Order: fireconf.OrderAscending},
							{Path: "Source.ID", Order: fireconf.OrderAscending},
							{Path: "State", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: firestore.CollectionName(prefix, firestore.CollectionRelations),
				Indexes: []fireconf.Index{
					relationSide("Left"),
					relationSide("Right"),
				},
			},
		},
	}
}

package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/cli/config"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var envFiles []string
	var closers []func()

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "env-file",
			Usage:       "Load environment variables for command flags from the file(s)",
			Sources:     cli.EnvVars("GRCORE_ENV_FILE"),
			Destination: &envFiles,
		},
	}
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "grcore",
		Usage:   "Rule engine for risk, control and issue lifecycles",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			if len(envFiles) > 0 {
				if err := godotenv.Load(envFiles...); err != nil {
					return ctx, goerr.Wrap(err, "failed to load env file", goerr.V("files", envFiles))
				}
			}

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Info("Starting grcore",
				"version", version,
				"logger", loggerCfg,
				"sentry", sentryCfg,
				"env_files", envFiles)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdSweep(),
			cmdRemap(),
			cmdCleanup(),
			cmdValidate(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}

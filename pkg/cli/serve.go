package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/secmon-lab/grcore/pkg/cli/config"
	httpctrl "github.com/secmon-lab/grcore/pkg/controller/http"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/service/metrics"
	"github.com/secmon-lab/grcore/pkg/service/notify"
	"github.com/secmon-lab/grcore/pkg/service/permission"
	"github.com/secmon-lab/grcore/pkg/service/worker"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// sweepSchedules builds the worker schedules. A zero interval disables the
// sweep.
func sweepSchedules(compliance, overdue, orphans time.Duration) []worker.Schedule {
	var schedules []worker.Schedule
	for _, s := range []worker.Schedule{
		{Kind: types.SweepCompliance, Interval: compliance},
		{Kind: types.SweepOverdueTasks, Interval: overdue},
		{Kind: types.SweepOrphans, Interval: orphans},
	} {
		if s.Interval > 0 {
			schedules = append(schedules, s)
		}
	}
	return schedules
}

func cmdServe() *cli.Command {
	var addr string
	var complianceInterval time.Duration
	var overdueInterval time.Duration
	var orphanInterval time.Duration
	var sweepLimit int
	var rulesCfg config.Rules
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("GRCORE_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "compliance-interval",
			Category:    "Sweep",
			Usage:       "Interval of the compliance evaluation sweep (0 disables)",
			Value:       24 * time.Hour,
			Sources:     cli.EnvVars("GRCORE_COMPLIANCE_INTERVAL"),
			Destination: &complianceInterval,
		},
		&cli.DurationFlag{
			Name:        "overdue-interval",
			Category:    "Sweep",
			Usage:       "Interval of the overdue task sweep (0 disables)",
			Value:       time.Hour,
			Sources:     cli.EnvVars("GRCORE_OVERDUE_INTERVAL"),
			Destination: &overdueInterval,
		},
		&cli.DurationFlag{
			Name:        "orphan-interval",
			Category:    "Sweep",
			Usage:       "Interval of the orphan report sweep (0 disables)",
			Value:       24 * time.Hour,
			Sources:     cli.EnvVars("GRCORE_ORPHAN_INTERVAL"),
			Destination: &orphanInterval,
		},
		&cli.IntFlag{
			Name:        "sweep-limit",
			Category:    "Sweep",
			Usage:       "Maximum number of rows one sweep may process (0 for no limit)",
			Sources:     cli.EnvVars("GRCORE_SWEEP_LIMIT"),
			Destination: &sweepLimit,
		},
	}
	flags = append(flags, commonFlags(&rulesCfg, &repoCfg)...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP trigger server and scheduled sweeps",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			m := metrics.New()

			rt, err := newRuntime(ctx, &rulesCfg, &repoCfg, notify.WithCounter(m))
			if err != nil {
				return err
			}
			defer rt.close()

			oracle := permission.NewStatic(rt.uc.Rules().Roles)
			handler := httpctrl.New(rt.uc,
				httpctrl.WithPermissionOracle(oracle),
				httpctrl.WithMetrics(m),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			var sweepWorker *worker.SweepWorker
			if schedules := sweepSchedules(complianceInterval, overdueInterval, orphanInterval); len(schedules) > 0 {
				sweepWorker, err = worker.NewSweepWorker(rt.uc.Cascade, rt.uc, schedules,
					worker.WithObserver(m),
					worker.WithLimit(sweepLimit),
				)
				if err != nil {
					return goerr.Wrap(err, "failed to create sweep worker")
				}
			} else {
				logging.Default().Warn("All sweeps are disabled")
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)

			eg.Go(func() error {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server", goerr.V("addr", addr))
				}
				return nil
			})

			if sweepWorker != nil {
				if err := sweepWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start sweep worker")
				}
			}

			eg.Go(func() error {
				<-ctx.Done()
				logging.Default().Info("Shutting down")

				if sweepWorker != nil {
					sweepWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			})

			return eg.Wait()
		},
	}
}

package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/cli/config"
	"github.com/secmon-lab/grcore/pkg/service/notify"
	"github.com/secmon-lab/grcore/pkg/usecase"
	"github.com/secmon-lab/grcore/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

// runtime bundles what every command needs to run rule engine operations
type runtime struct {
	uc         *usecase.UseCases
	dispatcher *async.Dispatcher
	closeRepo  func()
}

// close waits for in-flight notifications, then releases the repository
func (r *runtime) close() {
	r.dispatcher.Wait()
	r.closeRepo()
}

func newRuntime(ctx context.Context, rulesCfg *config.Rules, repoCfg *config.Repository, sinkOpts ...notify.Option) (*runtime, error) {
	rules, err := rulesCfg.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load rules")
	}

	repo, closeRepo, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}

	dispatcher := &async.Dispatcher{}
	uc, err := usecase.New(repo,
		usecase.WithRules(rules),
		usecase.WithNotificationSink(notify.NewLogSink(dispatcher, sinkOpts...)),
	)
	if err != nil {
		closeRepo()
		return nil, goerr.Wrap(err, "failed to initialize use cases")
	}

	return &runtime{uc: uc, dispatcher: dispatcher, closeRepo: closeRepo}, nil
}

func commonFlags(rulesCfg *config.Rules, repoCfg *config.Repository) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, rulesCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	return flags
}

// printJSON writes v to the command output
func printJSON(c *cli.Command, v any) error {
	var w io.Writer = os.Stdout
	if root := c.Root(); root != nil && root.Writer != nil {
		w = root.Writer
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to write result")
	}
	return nil
}

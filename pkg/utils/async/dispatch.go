package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/utils/errutil"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

// Dispatcher runs handlers in background goroutines and tracks them so a
// shutting down process can wait for in-flight work.
type Dispatcher struct {
	wg sync.WaitGroup
}

// Dispatch executes handler in a new goroutine with a background context
// that keeps the caller's logger. Errors and panics are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(bgCtx, goerr.New("panic in async handler", goerr.V("panic", r)), "async handler panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}

// Wait blocks until every dispatched handler returned
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

var defaultDispatcher Dispatcher

// Dispatch runs handler on the process wide dispatcher
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	defaultDispatcher.Dispatch(ctx, handler)
}

// Wait waits for handlers started with Dispatch
func Wait() {
	defaultDispatcher.Wait()
}

package safe

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/utils/errutil"
)

// Close closes closer and reports a failure. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to close"), "failed to close resource")
	}
}

// Write writes data to w and reports a failure. Nil writers are ignored.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to write"), "failed to write response")
	}
}

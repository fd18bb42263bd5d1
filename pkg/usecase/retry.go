package usecase

import (
	"context"
	"errors"

	"github.com/secmon-lab/grcore/pkg/domain/model"
)

const maxConflictRetries = 3

// retryOnConflict runs fn again when it lost a compare-and-set race. fn must
// re-read the entity on every attempt.
func retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for range maxConflictRetries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil || !errors.Is(err, model.ErrConflict) {
			return err
		}
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

package interfaces

import (
	"context"

	"github.com/secmon-lab/grcore/pkg/domain/model"
)

// NotificationSink delivers outbound notifications. Emit is fire-and-forget.
type NotificationSink interface {
	Emit(ctx context.Context, n model.Notification)
}

// PermissionOracle answers role membership questions for a principal
type PermissionOracle interface {
	HasRole(ctx context.Context, principal, role string) bool
}

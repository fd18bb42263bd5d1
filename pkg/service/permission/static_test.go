package permission_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/service/permission"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	grants := map[string][]string{
		"alice": {permission.RoleManager},
		"bob":   {"grc_viewer"},
	}
	oracle := permission.NewStatic(grants)
	grants["bob"] = append(grants["bob"], permission.RoleManager)

	gt.B(t, oracle.HasRole(ctx, "alice", permission.RoleManager)).True()
	gt.B(t, oracle.HasRole(ctx, "bob", permission.RoleManager)).False()
	gt.B(t, oracle.HasRole(ctx, "carol", permission.RoleManager)).False()
	gt.B(t, oracle.HasRole(ctx, "", permission.RoleManager)).False()
}

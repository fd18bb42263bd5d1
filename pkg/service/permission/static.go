package permission

import (
	"context"
	"slices"

	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
)

// RoleManager may run bulk actions such as closing all issues of a source
const RoleManager = "grc_manager"

// Static answers role questions from a fixed principal to roles table
type Static struct {
	grants map[string][]string
}

var _ interfaces.PermissionOracle = &Static{}

// NewStatic copies grants so later changes to the map have no effect
func NewStatic(grants map[string][]string) *Static {
	s := &Static{grants: make(map[string][]string, len(grants))}
	for principal, roles := range grants {
		s.grants[principal] = slices.Clone(roles)
	}
	return s
}

func (s *Static) HasRole(ctx context.Context, principal, role string) bool {
	if principal == "" {
		return false
	}
	return slices.Contains(s.grants[principal], role)
}

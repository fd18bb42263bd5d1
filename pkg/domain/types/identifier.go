package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// identifiers are lowercase words joined by "_" or "-", e.g. "third_party"
var idPattern = regexp.MustCompile(`^[a-z0-9]+([_-][a-z0-9]+)*$`)

func validateID(kind, id string) error {
	if id == "" {
		return goerr.New(kind+" ID cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return goerr.New(kind+" ID must be lowercase alphanumeric separated by hyphens or underscores", goerr.V("id", id))
	}
	return nil
}

// CategoryID is a risk category such as "technology"
type CategoryID string

func (c CategoryID) Validate() error { return validateID("category", string(c)) }
func (c CategoryID) String() string  { return string(c) }

// GroupID is an assignment group such as "it_risk_management"
type GroupID string

func (g GroupID) Validate() error { return validateID("group", string(g)) }
func (g GroupID) String() string  { return string(g) }

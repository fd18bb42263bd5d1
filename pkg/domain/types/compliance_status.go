package types

import "github.com/m-mizutani/goerr/v2"

// ComplianceStatus is the cached evaluation result of a control
type ComplianceStatus string

const (
	ComplianceNotAssessed        ComplianceStatus = "not_assessed"
	ComplianceCompliant          ComplianceStatus = "compliant"
	CompliancePartiallyCompliant ComplianceStatus = "partially_compliant"
	ComplianceNonCompliant       ComplianceStatus = "non_compliant"
)

// IsValid checks if the compliance status is valid
func (s ComplianceStatus) IsValid() bool {
	switch s {
	case ComplianceNotAssessed,
		ComplianceCompliant,
		CompliancePartiallyCompliant,
		ComplianceNonCompliant:
		return true
	default:
		return false
	}
}

// Label returns a human readable label used in issue descriptions
func (s ComplianceStatus) Label() string {
	switch s {
	case ComplianceNotAssessed:
		return "Not Assessed"
	case ComplianceCompliant:
		return "Compliant"
	case CompliancePartiallyCompliant:
		return "Partially Compliant"
	case ComplianceNonCompliant:
		return "Non-Compliant"
	default:
		return string(s)
	}
}

// String returns the string representation of the compliance status
func (s ComplianceStatus) String() string {
	return string(s)
}

// ParseComplianceStatus parses a string into a ComplianceStatus
func ParseComplianceStatus(s string) (ComplianceStatus, error) {
	status := ComplianceStatus(s)
	if !status.IsValid() {
		return "", goerr.New("invalid compliance status", goerr.V("value", s))
	}
	return status, nil
}

package types

import "github.com/m-mizutani/goerr/v2"

// TestOutcome is the result recorded by a control test
type TestOutcome string

const (
	TestOutcomePass TestOutcome = "pass"
	TestOutcomeFail TestOutcome = "fail"
)

// IsValid checks if the outcome is valid
func (o TestOutcome) IsValid() bool {
	return o == TestOutcomePass || o == TestOutcomeFail
}

// String returns the string representation of the outcome
func (o TestOutcome) String() string {
	return string(o)
}

// ParseTestOutcome parses a string into a TestOutcome
func ParseTestOutcome(s string) (TestOutcome, error) {
	o := TestOutcome(s)
	if !o.IsValid() {
		return "", goerr.New("invalid test outcome", goerr.V("value", s))
	}
	return o, nil
}

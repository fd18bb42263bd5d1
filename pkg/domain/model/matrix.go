package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

// Bounds of both matrix axes
const (
	MinLevel = 1
	MaxLevel = 5
)

// RiskScore is the result of a matrix lookup
type RiskScore struct {
	Score  int
	Rating types.Rating
}

// RiskMatrix maps likelihood and impact to a composite score and rating
type RiskMatrix struct {
	thresholds config.RatingThresholds
}

// NewRiskMatrix creates a matrix with the given rating thresholds
func NewRiskMatrix(thresholds config.RatingThresholds) (*RiskMatrix, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &RiskMatrix{thresholds: thresholds}, nil
}

// DefaultRiskMatrix returns a matrix with the default thresholds
func DefaultRiskMatrix() *RiskMatrix {
	return &RiskMatrix{thresholds: config.DefaultRules().Ratings}
}

// Score computes likelihood × impact and its rating. Both inputs must be
// within MinLevel..MaxLevel.
func (m *RiskMatrix) Score(likelihood, impact int) (RiskScore, error) {
	if !InLevelRange(likelihood) {
		return RiskScore{}, goerr.Wrap(ErrOutOfRange, "likelihood out of range", goerr.V("likelihood", likelihood))
	}
	if !InLevelRange(impact) {
		return RiskScore{}, goerr.Wrap(ErrOutOfRange, "impact out of range", goerr.V("impact", impact))
	}

	score := likelihood * impact
	return RiskScore{Score: score, Rating: m.RatingFor(score)}, nil
}

// RatingFor returns the bucket of a composite score
func (m *RiskMatrix) RatingFor(score int) types.Rating {
	switch {
	case score <= m.thresholds.LowMax:
		return types.RatingLow
	case score <= m.thresholds.MediumMax:
		return types.RatingMedium
	case score <= m.thresholds.HighMax:
		return types.RatingHigh
	default:
		return types.RatingCritical
	}
}

// InLevelRange reports whether v is a valid axis level
func InLevelRange(v int) bool {
	return v >= MinLevel && v <= MaxLevel
}

package types

import "github.com/m-mizutani/goerr/v2"

// Rating is the qualitative bucket derived from a risk score
type Rating string

const (
	RatingLow      Rating = "low"
	RatingMedium   Rating = "medium"
	RatingHigh     Rating = "high"
	RatingCritical Rating = "critical"
)

// AllRatings returns all ratings ordered from least to most severe
func AllRatings() []Rating {
	return []Rating{RatingLow, RatingMedium, RatingHigh, RatingCritical}
}

// IsValid checks if the rating is valid
func (r Rating) IsValid() bool {
	switch r {
	case RatingLow, RatingMedium, RatingHigh, RatingCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the rating
func (r Rating) String() string {
	return string(r)
}

// ParseRating parses a string into a Rating
func ParseRating(s string) (Rating, error) {
	r := Rating(s)
	if !r.IsValid() {
		return "", goerr.New("invalid rating", goerr.V("value", s))
	}
	return r, nil
}

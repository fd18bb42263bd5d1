package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
)

func TestRiskMatrix_ScoreAllCells(t *testing.T) {
	m := model.DefaultRiskMatrix()

	for l := 1; l <= 5; l++ {
		for i := 1; i <= 5; i++ {
			got, err := m.Score(l, i)
			gt.NoError(t, err).Required()
			gt.V(t, got.Score).Describef("likelihood=%d impact=%d", l, i).Equal(l * i)
			gt.V(t, got.Rating).Equal(m.RatingFor(l * i))
		}
	}
}

func TestRiskMatrix_RatingBoundaries(t *testing.T) {
	m := model.DefaultRiskMatrix()

	tests := []struct {
		score int
		want  types.Rating
	}{
		{1, types.RatingLow},
		{4, types.RatingLow},
		{5, types.RatingMedium},
		{9, types.RatingMedium},
		{10, types.RatingHigh},
		{15, types.RatingHigh},
		{16, types.RatingCritical},
		{25, types.RatingCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			gt.V(t, m.RatingFor(tt.score)).Equal(tt.want)
		})
	}
}

func TestRiskMatrix_OutOfRange(t *testing.T) {
	m := model.DefaultRiskMatrix()

	cases := [][2]int{{0, 3}, {6, 3}, {3, 0}, {3, 6}, {-1, -1}}
	for _, c := range cases {
		_, err := m.Score(c[0], c[1])
		gt.Error(t, err).Is(model.ErrOutOfRange)
		gt.B(t, errors.Is(err, model.ErrValidation)).True()
	}
}

func TestRiskMatrix_Deterministic(t *testing.T) {
	m := model.DefaultRiskMatrix()
	a, err := m.Score(4, 4)
	gt.NoError(t, err)
	b, err := m.Score(4, 4)
	gt.NoError(t, err)
	gt.V(t, a).Equal(b)
	gt.V(t, a.Rating).Equal(types.RatingCritical)
}

func TestNewRiskMatrix(t *testing.T) {
	m, err := model.NewRiskMatrix(config.RatingThresholds{LowMax: 2, MediumMax: 6, HighMax: 12})
	gt.NoError(t, err).Required()
	gt.V(t, m.RatingFor(3)).Equal(types.RatingMedium)
	gt.V(t, m.RatingFor(13)).Equal(types.RatingCritical)

	_, err = model.NewRiskMatrix(config.RatingThresholds{LowMax: 6, MediumMax: 2, HighMax: 12})
	gt.Error(t, err)
}

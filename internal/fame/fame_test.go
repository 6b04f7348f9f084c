package fame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Zero(t *testing.T) {
	assert.Equal(t, 0.0, Score(Counts{}))
}

func TestScore_Idempotent(t *testing.T) {
	c := Counts{Views: 40, Likes: 12, Matches: 3, Reports: 1, Photos: 2, BioLength: 120}
	assert.Equal(t, Score(c), Score(c))
}

func TestScore_Weights(t *testing.T) {
	// 10 views * 0.5 + 5 likes * 2 + 2 matches * 5 = 25, photo bonus 10,
	// bio 50 chars -> 2 bonus points.
	c := Counts{Views: 10, Likes: 5, Matches: 2, Photos: 1, BioLength: 50}
	assert.Equal(t, 37.0, Score(c))
}

func TestScore_ReportsDragDown(t *testing.T) {
	base := Counts{Views: 10, Likes: 5, Matches: 2, Photos: 1}
	reported := base
	reported.Reports = 2
	assert.Less(t, Score(reported), Score(base))
}

func TestScore_FlooredAtZero(t *testing.T) {
	assert.Equal(t, 0.0, Score(Counts{Reports: 50}))
}

func TestScore_BioBonusCapped(t *testing.T) {
	short := Counts{Photos: 1, BioLength: 250}
	long := Counts{Photos: 1, BioLength: 100000}
	assert.Equal(t, Score(short), Score(long))
}

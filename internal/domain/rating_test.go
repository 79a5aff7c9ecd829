package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRatingStats(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    RatingStats
	}{
		{"empty", nil, RatingStats{}},
		{"single", []int{4}, RatingStats{AverageRating: 4, ReviewCount: 1}},
		{"two", []int{4, 2}, RatingStats{AverageRating: 3, ReviewCount: 2}},
		{"fraction", []int{5, 4, 4}, RatingStats{AverageRating: 13.0 / 3.0, ReviewCount: 3}},
		{"all ones", []int{1, 1, 1, 1}, RatingStats{AverageRating: 1, ReviewCount: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeRatingStats(tt.ratings))
		})
	}
}

func TestComputeRatingStats_StaysInRange(t *testing.T) {
	ratings := []int{}
	for i := range 50 {
		ratings = append(ratings, i%5+1)
		stats := ComputeRatingStats(ratings)
		assert.GreaterOrEqual(t, stats.AverageRating, 1.0)
		assert.LessOrEqual(t, stats.AverageRating, 5.0)
		assert.Equal(t, len(ratings), stats.ReviewCount)
	}
}

func TestRoundRating(t *testing.T) {
	assert.Equal(t, 4.3, RoundRating(13.0/3.0))
	assert.Equal(t, 3.7, RoundRating(11.0/3.0))
	assert.Equal(t, 0.0, RoundRating(0))
	assert.Equal(t, 5.0, RoundRating(5))
}

func TestNewRatingSummary(t *testing.T) {
	s := NewRatingSummary("book-1", []int{5, 4, 4})

	assert.Equal(t, "book-1", s.BookID)
	assert.Equal(t, 4.3, s.AverageRating)
	assert.Equal(t, 3, s.ReviewCount)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}, s.Distribution)
}

func TestNewRatingSummary_Empty(t *testing.T) {
	s := NewRatingSummary("book-1", nil)
	assert.Zero(t, s.AverageRating)
	assert.Zero(t, s.ReviewCount)
	assert.Len(t, s.Distribution, 5)
}

package domain

import "math"

// RatingStats are the derived rating fields of a book.
type RatingStats struct {
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// ComputeRatingStats returns the mean and count of ratings. An empty set
// yields zero for both.
func ComputeRatingStats(ratings []int) RatingStats {
	if len(ratings) == 0 {
		return RatingStats{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return RatingStats{
		AverageRating: float64(sum) / float64(len(ratings)),
		ReviewCount:   len(ratings),
	}
}

// RatingSummary is a book's rating stats with the number of reviews per star.
type RatingSummary struct {
	BookID        string      `json:"bookId"`
	AverageRating float64     `json:"averageRating"`
	ReviewCount   int         `json:"reviewCount"`
	Distribution  map[int]int `json:"distribution"`
}

// NewRatingSummary builds a summary from the ratings of bookID. Every star
// from 1 to 5 is present in the distribution.
func NewRatingSummary(bookID string, ratings []int) *RatingSummary {
	stats := ComputeRatingStats(ratings)
	dist := make(map[int]int, MaxRating)
	for star := MinRating; star <= MaxRating; star++ {
		dist[star] = 0
	}
	for _, r := range ratings {
		dist[r]++
	}
	return &RatingSummary{
		BookID:        bookID,
		AverageRating: RoundRating(stats.AverageRating),
		ReviewCount:   stats.ReviewCount,
		Distribution:  dist,
	}
}

// RoundRating rounds an average rating to one decimal place for display.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

package domain

import "time"

// ReadingListEntry records that a user saved a book. A book appears at most
// once in a user's list.
type ReadingListEntry struct {
	UserID  string    `json:"userId"`
	BookID  string    `json:"bookId"`
	AddedAt time.Time `json:"addedAt"`
}

package domain

import "time"

// Favorite is a city pinned by a single user.
type Favorite struct {
	ID        int64
	City      string
	UserID    int64
	CreatedAt time.Time
}

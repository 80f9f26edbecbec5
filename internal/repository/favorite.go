package repository

import (
	"context"

	"weatherfav/internal/domain"
)

// FavoriteRepository manages the per-user list of favorite cities.
type FavoriteRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, fav *domain.Favorite) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Favorite, error)
	// DeleteOwned removes the favorite only when it belongs to userID and
	// returns ErrNotFound otherwise.
	DeleteOwned(ctx context.Context, id, userID int64) error
}

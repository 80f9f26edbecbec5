package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"weatherfav/internal/domain"
	"weatherfav/internal/repository"
)

// ErrFavoriteNotFound is returned when the favorite is absent or owned by someone else.
var ErrFavoriteNotFound = errors.New("favorite not found")

const maxCityLength = 100

// FavoriteService manages a user's favorite cities. Every call is scoped to
// the acting user's id.
type FavoriteService interface {
	Add(ctx context.Context, userID int64, city string) (*domain.Favorite, error)
	List(ctx context.Context, userID int64) ([]domain.Favorite, error)
	Remove(ctx context.Context, userID, favoriteID int64) error
}

type favoriteService struct {
	favorites repository.FavoriteRepository
}

func NewFavoriteService(favorites repository.FavoriteRepository) FavoriteService {
	return &favoriteService{favorites: favorites}
}

func (s *favoriteService) Add(ctx context.Context, userID int64, city string) (*domain.Favorite, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%w: city is required", ErrValidation)
	}
	if utf8.RuneCountInString(city) > maxCityLength {
		return nil, fmt.Errorf("%w: city must be at most %d characters", ErrValidation, maxCityLength)
	}

	fav := &domain.Favorite{
		City:   city,
		UserID: userID,
	}
	if _, err := s.favorites.Create(ctx, fav); err != nil {
		return nil, err
	}
	return fav, nil
}

func (s *favoriteService) List(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	return s.favorites.ListByUser(ctx, userID)
}

// Remove deletes a favorite owned by userID. Favorites of other users are
// reported as not found so their existence is not disclosed.
func (s *favoriteService) Remove(ctx context.Context, userID, favoriteID int64) error {
	if err := s.favorites.DeleteOwned(ctx, favoriteID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFavoriteNotFound
		}
		return err
	}
	return nil
}

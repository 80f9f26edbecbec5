package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"weatherfav/internal/domain"
	"weatherfav/internal/repository"
)

const createFavoritesTable = `
CREATE TABLE IF NOT EXISTS favorites (
	id BIGSERIAL PRIMARY KEY,
	city TEXT NOT NULL,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL
)`

const createFavoritesIndex = `CREATE INDEX IF NOT EXISTS favorites_user_id_idx ON favorites (user_id)`

type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) repository.FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createFavoritesTable); err != nil {
		return fmt.Errorf("create favorites table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createFavoritesIndex); err != nil {
		return fmt.Errorf("create favorites index: %w", err)
	}
	return nil
}

func (r *FavoriteRepository) Create(ctx context.Context, fav *domain.Favorite) (int64, error) {
	fav.CreatedAt = time.Now().UTC()

	query :=
		`INSERT INTO favorites (city, user_id, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, fav.City, fav.UserID, fav.CreatedAt).Scan(&fav.ID); err != nil {
		return 0, fmt.Errorf("insert favorite: %w", err)
	}
	return fav.ID, nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	query :=
		`SELECT id, city, user_id, created_at
		 FROM favorites
		 WHERE user_id = $1
		 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	favs := []domain.Favorite{}
	for rows.Next() {
		var fav domain.Favorite
		if err := rows.Scan(&fav.ID, &fav.City, &fav.UserID, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favs = append(favs, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return favs, nil
}

func (r *FavoriteRepository) DeleteOwned(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("favorite delete rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

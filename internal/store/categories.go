package store

import (
	"context"
	"fmt"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// ListCategories returns all known categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// AddCategory inserts a category if it does not already exist.
func (s *Store) AddCategory(ctx context.Context, c model.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("adding category: %w", err)
	}
	return nil
}

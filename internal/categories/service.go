// Package categories provides lookup over known categories and the contract
// for the external categorization suggestion service.
package categories

import (
	"context"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Suggestion is one category proposal for a merchant. A zero-value
// suggestion (empty CategoryID) means no proposal.
type Suggestion struct {
	CategoryID string
	Confidence float64
}

// Suggester proposes categories for merchants. Responses align positionally
// with the input slice. Implementations are external services; failures are
// expected and must be treated as retryable by callers.
type Suggester interface {
	Suggest(ctx context.Context, merchants []string) ([]Suggestion, error)
}

// Service provides in-memory lookup over known categories.
type Service struct {
	categories []model.Category
	byID       map[string]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(categories []model.Category) *Service {
	byID := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &Service{categories: categories, byID: byID}
}

// All returns all categories.
func (s *Service) All() []model.Category {
	return s.categories
}

// Get returns a category by ID.
func (s *Service) Get(id string) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Exists reports whether a category ID is known.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

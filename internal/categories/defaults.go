package categories

import "github.com/bankfeed-dev/bankfeed/internal/model"

// DefaultCatalog returns the starter set of categories seeded into a new
// project. Users extend it with `bankfeed category add`.
func DefaultCatalog() []model.Category {
	return []model.Category{
		{ID: "cat-income", Name: "Income"},
		{ID: "cat-transfer", Name: "Transfers"},
		{ID: "cat-housing", Name: "Housing & Rent"},
		{ID: "cat-utilities", Name: "Utilities"},
		{ID: "cat-groceries", Name: "Groceries"},
		{ID: "cat-dining", Name: "Dining"},
		{ID: "cat-transport", Name: "Transport"},
		{ID: "cat-health", Name: "Health"},
		{ID: "cat-entertainment", Name: "Entertainment"},
		{ID: "cat-travel", Name: "Travel"},
		{ID: "cat-fees", Name: "Bank Fees & Interest"},
		{ID: "cat-shopping", Name: "Shopping"},
	}
}

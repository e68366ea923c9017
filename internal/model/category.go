package model

// Category is a spending/income category transactions can be split across.
type Category struct {
	ID   string
	Name string
}

package model

import "strings"

// Category is a closed expense classification. Unknown input normalizes to
// CategoryOther so aggregation grouping stays deterministic.
type Category string

const (
	CategoryAuto          Category = "auto"
	CategoryHome          Category = "home"
	CategoryDining        Category = "dining"
	CategoryGroceries     Category = "groceries"
	CategoryPet           Category = "pet"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryAuto:          {},
	CategoryHome:          {},
	CategoryDining:        {},
	CategoryGroceries:     {},
	CategoryPet:           {},
	CategoryEntertainment: {},
	CategoryShopping:      {},
	CategoryOther:         {},
}

// Categories returns all valid categories in declaration order.
func Categories() []Category {
	return []Category{
		CategoryAuto, CategoryHome, CategoryDining, CategoryGroceries,
		CategoryPet, CategoryEntertainment, CategoryShopping, CategoryOther,
	}
}

// NormalizeCategory lowercases the input and maps anything outside the known
// set to CategoryOther.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownCategories[c]; ok {
		return c
	}
	return CategoryOther
}

package constants

import (
	"strings"
)

// Category is the canonical expense taxonomy for receipt extractions.
type Category string

const (
	Groceries      Category = "Groceries"
	Meals          Category = "Meals"
	Lodging        Category = "Lodging"
	Transportation Category = "Transportation"
	Travel         Category = "Travel"
	OfficeSupplies Category = "OfficeSupplies"
	Utilities      Category = "Utilities"
	Healthcare     Category = "Healthcare"
	Entertainment  Category = "Entertainment"
	Other          Category = "Other"
)

var allCategories = []Category{
	Groceries,
	Meals,
	Lodging,
	Transportation,
	Travel,
	OfficeSupplies,
	Utilities,
	Healthcare,
	Entertainment,
	Other,
}

func Categories() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form model label onto the taxonomy. Returns
// (Other, false) when the label does not resolve.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"grocery":       Groceries,
		"supermarket":   Groceries,
		"restaurant":    Meals,
		"dining":        Meals,
		"food":          Meals,
		"hotel":         Lodging,
		"accommodation": Lodging,
		"taxi":          Transportation,
		"uber":          Transportation,
		"lyft":          Transportation,
		"parking":       Transportation,
		"fuel":          Transportation,
		"gas":           Transportation,
		"airline":       Travel,
		"flight":        Travel,
		"office":        OfficeSupplies,
		"stationery":    OfficeSupplies,
		"electricity":   Utilities,
		"internet":      Utilities,
		"phone":         Utilities,
		"pharmacy":      Healthcare,
		"medical":       Healthcare,
		"movies":        Entertainment,
		"streaming":     Entertainment,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}

package model

import (
	"github.com/arampall/intelligent-document-extraction/constants"
)

// BuildSchema returns the JSON-Schema (draft 2020-12 subset) for a doc type
// as a generic map. We send it to the model as a structured output
// constraint and also use it locally to validate the response.
func BuildSchema(docType constants.DocType, allowedCategories []string) map[string]any {
	if docType == constants.Resume {
		return buildResumeSchema()
	}
	return buildReceiptSchema(allowedCategories)
}

func buildReceiptSchema(allowedCategories []string) map[string]any {
	props := map[string]any{
		"merchant_name":  map[string]any{"type": "string", "minLength": 1},
		"tx_date":        map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"tx_time":        map[string]any{"type": "string", "pattern": `^\d{2}:\d{2}$`},
		"address":        map[string]any{"type": "string"},
		"phone":          map[string]any{"type": "string"},
		"subtotal":       decimalProp(),
		"discount":       decimalProp(),
		"tax":            decimalProp(),
		"tip":            decimalProp(),
		"total":          decimalProp(),
		"currency_code":  map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
		"category":       map[string]any{"type": "string"},
		"payment_method": map[string]any{"type": "string"},
		"payment_last4":  map[string]any{"type": "string", "minLength": 4, "maxLength": 4, "pattern": `^\d{4}$`},
		"receipt_number": map[string]any{"type": "string"},
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"name":       map[string]any{"type": "string", "minLength": 1},
					"quantity":   decimalProp(),
					"unit_price": decimalProp(),
				},
				"required": []string{"name"},
			},
		},
		"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}
	required := []string{"merchant_name", "tx_date", "total", "currency_code"}

	// Constrain category if a taxonomy is provided.
	if len(allowedCategories) > 0 {
		props["category"] = map[string]any{
			"type": "string",
			"enum": allowedCategories,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func buildResumeSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"full_name":         map[string]any{"type": "string"},
			"email":             map[string]any{"type": "string"},
			"phone":             map[string]any{"type": "string"},
			"category":          map[string]any{"type": "string", "minLength": 1},
			"years_experience":  decimalProp(),
			"highest_education": map[string]any{"type": "string", "minLength": 1},
			"skills": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"category", "years_experience", "highest_education"},
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`, // allow negatives for discounts
	}
}

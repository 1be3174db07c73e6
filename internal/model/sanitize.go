package model

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/arampall/intelligent-document-extraction/constants"
)

var receiptKeys = map[string]struct{}{
	"merchant_name": {}, "tx_date": {}, "tx_time": {}, "address": {}, "phone": {},
	"subtotal": {}, "discount": {}, "tax": {}, "tip": {}, "total": {},
	"currency_code": {}, "category": {}, "payment_method": {}, "payment_last4": {},
	"receipt_number": {}, "items": {}, "confidence": {},
}

var resumeKeys = map[string]struct{}{
	"full_name": {}, "email": {}, "phone": {}, "category": {},
	"years_experience": {}, "highest_education": {}, "skills": {}, "confidence": {},
}

var receiptMoneyFields = []string{"subtotal", "discount", "tax", "tip", "total"}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (date -> tx_date, Experience -> years_experience, ...)
// - Drops null/empty optionals
// - Coerces numeric -> string for decimal fields
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(docType constants.DocType, raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	coerceDecimal := func(k string) {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case float64:
				m[k] = fmt.Sprintf("%.2f", t)
			case string:
				s := strings.TrimSpace(t)
				if s == "" {
					delete(m, k)
					dropped = append(dropped, k+"(empty)")
				} else {
					m[k] = s
				}
			case nil:
				delete(m, k)
				dropped = append(dropped, k+"(null)")
			default:
				// unexpected type -> drop
				delete(m, k)
				dropped = append(dropped, k+"(type)")
			}
		}
	}

	var allowed map[string]struct{}
	switch docType {
	case constants.Resume:
		allowed = resumeKeys

		// 1) rename synonyms to our schema
		rename("Experience", "years_experience")
		rename("experience", "years_experience")
		rename("education", "highest_education")
		rename("name", "full_name")

		coerceDecimal("years_experience")
	default:
		allowed = receiptKeys

		// 1) rename synonyms to our schema
		rename("date", "tx_date")
		rename("time", "tx_time")
		rename("merchant", "merchant_name")
		rename("currency", "currency_code")
		rename("invoice_number", "receipt_number")
		rename("line_items", "items")

		// 2) drop null / "" for optionals; coerce money fields to strings
		for _, k := range receiptMoneyFields {
			coerceDecimal(k)
		}
		sanitizeItems(m, &dropped)

		// 3) normalize payment fields lightly
		if v, ok := m["payment_method"].(string); ok {
			pm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v), " ", "_"))
			if pm != "" {
				m["payment_method"] = pm
			} else {
				delete(m, "payment_method")
				dropped = append(dropped, "payment_method(empty)")
			}
		}
		if v, ok := m["payment_last4"].(string); ok {
			s := strings.TrimSpace(v)
			// keep only last 4 digits if longer/shorter noise
			if len(s) >= 4 {
				m["payment_last4"] = s[len(s)-4:]
			} else {
				delete(m, "payment_last4")
				dropped = append(dropped, "payment_last4(short)")
			}
		}
	}

	// 4) remove unknown keys
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// 5) trim obvious strings
	trimKeys := []string{
		"merchant_name", "tx_date", "currency_code", "category",
		"full_name", "email", "highest_education",
	}
	for _, k := range trimKeys {
		if v, ok := m[k].(string); ok {
			s := strings.TrimSpace(v)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("model.extract.normalize_sanitize", "doc_type", string(docType), "dropped", dropped)
	}
	return out, dropped, nil
}

// sanitizeItems coerces line item quantity/unit_price to decimal strings and
// drops entries without a name.
func sanitizeItems(m map[string]any, dropped *[]string) {
	rawItems, ok := m["items"].([]any)
	if !ok {
		if _, present := m["items"]; present {
			delete(m, "items")
			*dropped = append(*dropped, "items(type)")
		}
		return
	}

	kept := make([]any, 0, len(rawItems))
	for i, ri := range rawItems {
		item, ok := ri.(map[string]any)
		if !ok {
			*dropped = append(*dropped, fmt.Sprintf("items[%d](type)", i))
			continue
		}
		name, _ := item["name"].(string)
		if strings.TrimSpace(name) == "" {
			*dropped = append(*dropped, fmt.Sprintf("items[%d](no name)", i))
			continue
		}
		item["name"] = strings.TrimSpace(name)
		for _, k := range []string{"quantity", "unit_price", "price"} {
			if v, ok := item[k]; ok {
				switch t := v.(type) {
				case float64:
					item[k] = fmt.Sprintf("%.2f", t)
				case string:
					if strings.TrimSpace(t) == "" {
						delete(item, k)
					}
				case nil:
					delete(item, k)
				}
			}
		}
		// price is a common synonym for unit_price
		if v, ok := item["price"]; ok {
			if _, exists := item["unit_price"]; !exists {
				item["unit_price"] = v
			}
			delete(item, "price")
		}
		for k := range maps.Clone(item) {
			switch k {
			case "name", "quantity", "unit_price":
			default:
				delete(item, k)
			}
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		delete(m, "items")
		return
	}
	m["items"] = kept
}

package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arampall/intelligent-document-extraction/constants"
)

var (
	reLast4   = regexp.MustCompile(`^\d{4}$`)
	reDecimal = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)

	optReceiptMoney = []string{"subtotal", "discount", "tax", "tip"} // optional only
)

// SanitizeOptionalFields removes or normalizes optional fields that don't meet our stricter schema,
// so the overall document can still validate. We only touch OPTIONALS.
func SanitizeOptionalFields(docType constants.DocType, doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var dropped []string

	switch docType {
	case constants.Resume:
		// skills: drop non-string entries rather than failing the document
		if raw, ok := m["skills"].([]any); ok {
			kept := make([]any, 0, len(raw))
			for _, v := range raw {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					kept = append(kept, strings.TrimSpace(s))
				}
			}
			if len(kept) == 0 {
				delete(m, "skills")
				dropped = append(dropped, "skills")
			} else {
				m["skills"] = kept
			}
		}
	default:
		// payment_last4: if present but not 4 digits, drop it
		if v, ok := m["payment_last4"].(string); ok {
			s := strings.TrimSpace(v)
			if !reLast4.MatchString(s) {
				delete(m, "payment_last4")
				dropped = append(dropped, "payment_last4")
			} else {
				m["payment_last4"] = s
			}
		}

		// payment_method: normalize case a bit (optional, not strict)
		if v, ok := m["payment_method"].(string); ok {
			m["payment_method"] = strings.ToUpper(strings.TrimSpace(v))
		}

		// currency_code: required overall; still normalize casing if present
		if v, ok := m["currency_code"].(string); ok {
			m["currency_code"] = strings.ToUpper(strings.TrimSpace(v))
		}

		// tx_time: drop when it doesn't match HH:MM
		if v, ok := m["tx_time"].(string); ok {
			s := strings.TrimSpace(v)
			if len(s) >= 5 && s[2] == ':' {
				m["tx_time"] = s[:5]
			} else {
				delete(m, "tx_time")
				dropped = append(dropped, "tx_time")
			}
		}

		for _, k := range optReceiptMoney {
			d := normalizeDecimalKey(m, k)
			dropped = append(dropped, d...)
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

// normalizeDecimalKey reformats m[k] to a two-decimal string, or deletes it
// when it cannot be parsed. Returns the dropped key names.
func normalizeDecimalKey(m map[string]any, k string) []string {
	v, ok := m[k]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case nil:
		delete(m, k)
		return []string{k}
	case float64:
		m[k] = fmt.Sprintf("%.2f", t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			return []string{k}
		}
		// accept numbers like "7", "7.0", "7.08", or signed
		if !reDecimal.MatchString(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				m[k] = fmt.Sprintf("%.2f", f)
			} else {
				delete(m, k)
				return []string{k}
			}
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			m[k] = fmt.Sprintf("%.2f", f)
		}
	default:
		delete(m, k)
		return []string{k}
	}
	return nil
}

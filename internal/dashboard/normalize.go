package dashboard

import (
	"strconv"
	"strings"
	"time"

	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

// Normalize maps one raw (possibly payment-enriched) row into a canonical
// Transaction. Every field walks its ordered candidate-name chain and falls
// back to a typed default when nothing resolves: numbers to 0, strings to
// empty (or a named placeholder for the product name), enums to a baseline.
// Per-row faults never surface as errors; a bad value degrades that one
// field.
func Normalize(row rowstore.Row, cfg *schema.Config) Transaction {
	tx := Transaction{
		OrderID:         stringField(row, cfg.OrderIDColumns),
		CustomerID:      stringField(row, cfg.CustomerIDColumns),
		NormalizedEmail: strings.ToLower(stringField(row, cfg.EmailColumns)),
		CustomerName:    stringField(row, cfg.CustomerNameColumns),
		SourcePlatform:  stringField(row, cfg.SourceColumns),
		FunnelLabel:     stringField(row, cfg.FunnelColumns),
		PlanName:        stringField(row, cfg.PlanNameColumns),
		Amount:          numberField(row, cfg.AmountColumns),
		TotalPrice:      numberField(row, cfg.TotalPriceColumns),
		UnitPrice:       numberField(row, cfg.UnitPriceColumns),
		Quantity:        int(numberField(row, cfg.QuantityColumns)),
	}

	tx.ProductName = strings.TrimSpace(stringField(row, cfg.ProductNameColumns))
	if tx.ProductName == "" {
		tx.ProductName = UnknownProduct
	}

	if v, ok := schema.ResolveValue(row, cfg.DateColumns); ok {
		if d, ok := ParseDate(v); ok {
			tx.Date = d
		}
	}

	tx.ProductType = normalizeProductType(stringField(row, cfg.ProductTypeColumns))
	tx.EventType = normalizeEventType(stringField(row, cfg.EventTypeColumns), tx.ProductType)

	return tx
}

// stringField walks the candidate chain and returns the first resolvable
// value coerced to a trimmed string, or "".
func stringField(row rowstore.Row, candidates []string) string {
	for _, name := range candidates {
		v, ok := row[name]
		if !ok || v == nil {
			continue
		}
		if s := coerceString(v); s != "" {
			return s
		}
	}
	return ""
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case time.Time:
		return val.UTC().Format("2006-01-02")
	default:
		return ""
	}
}

// numberField walks the candidate chain; the first candidate carrying a
// value decides the field. An unparsable value normalizes to 0, never to
// an error.
func numberField(row rowstore.Row, candidates []string) float64 {
	for _, name := range candidates {
		if !row.Has(name) {
			continue
		}
		f, _ := parseNumber(row[name])
		return f
	}
	return 0
}

// parseNumber coerces a raw value to a float64, stripping currency symbols
// and thousands separators from strings ("$49.00" parses as 49).
func parseNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, val)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseDate coerces a raw date value to UTC time. The boolean is false on
// unparsable input; the loader excludes such rows from the range filter.
func ParseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func normalizeProductType(s string) ProductType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "subscription", "subscriptions", "sub", "membership", "recurring":
		return ProductSubscription
	case "payment_plan", "payment plan", "payment-plan", "plan", "installments":
		return ProductPaymentPlan
	default:
		return ProductOneTime
	}
}

// normalizeEventType maps the canonical spellings, the display labels the
// UI uses, and the older new/recurring/payment_plan scheme onto the event
// enum. Ambiguous values like "new" resolve against the product type.
// Absent values default to the product type's recurring event, so an
// unlabeled subscription bill still counts toward active subscriptions.
func normalizeEventType(s string, pt ProductType) EventType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sub_new", "new subscription":
		return EventSubNew
	case "sub_recurring", "recurring bill", "recurring":
		if pt == ProductPaymentPlan {
			return EventPPInstallment
		}
		return EventSubRecurring
	case "sub_cancel", "cancellation", "cancel", "canceled", "cancelled":
		return EventSubCancel
	case "pp_new", "new plan":
		return EventPPNew
	case "pp_installment", "installment", "payment_plan":
		return EventPPInstallment
	case "one_time", "one-time purchase", "one time":
		return EventOneTime
	case "new":
		switch pt {
		case ProductSubscription:
			return EventSubNew
		case ProductPaymentPlan:
			return EventPPNew
		default:
			return EventOneTime
		}
	default:
		switch pt {
		case ProductSubscription:
			return EventSubRecurring
		case ProductPaymentPlan:
			return EventPPInstallment
		default:
			return EventOneTime
		}
	}
}

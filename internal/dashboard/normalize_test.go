package dashboard

import (
	"testing"
	"time"

	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

func TestNormalizeFallbackChains(t *testing.T) {
	cfg := schema.DefaultConfig()

	tests := []struct {
		name string
		row  rowstore.Row
		want Transaction
	}{
		{
			name: "canonical snake_case row",
			row: rowstore.Row{
				"date":             "2024-12-01",
				"order_id":         "ORD-001",
				"product_name":     "Voice Acting Academy",
				"product_type":     "payment_plan",
				"event_type":       "pp_new",
				"amount":           float64(2500),
				"customer_id":      "CUST-001",
				"normalized_email": "john.smith@email.com",
				"source_platform":  "GHL",
				"funnel_label":     "Main Academy Funnel",
			},
			want: Transaction{
				Date:            time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
				OrderID:         "ORD-001",
				ProductName:     "Voice Acting Academy",
				ProductType:     ProductPaymentPlan,
				EventType:       EventPPNew,
				Amount:          2500,
				CustomerID:      "CUST-001",
				NormalizedEmail: "john.smith@email.com",
				SourcePlatform:  "GHL",
				FunnelLabel:     "Main Academy Funnel",
			},
		},
		{
			name: "camelCase alternates",
			row: rowstore.Row{
				"orderDate":   "2024-12-02",
				"productName": "  LevelUp Lab  ",
				"productType": "subscription",
				"eventType":   "sub_new",
				"price":       "197",
				"customerId":  "CUST-002",
				"Email":       "Jane.Doe@Email.com",
			},
			want: Transaction{
				Date:            time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC),
				ProductName:     "LevelUp Lab",
				ProductType:     ProductSubscription,
				EventType:       EventSubNew,
				Amount:          197,
				CustomerID:      "CUST-002",
				NormalizedEmail: "jane.doe@email.com",
			},
		},
		{
			name: "currency symbol stripped, missing name defaulted",
			row: rowstore.Row{
				"date":          "2024-12-03",
				"product_price": "$49.00",
			},
			want: Transaction{
				Date:        time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC),
				ProductName: UnknownProduct,
				ProductType: ProductOneTime,
				EventType:   EventOneTime,
				Amount:      49,
			},
		},
		{
			name: "unparsable amount defaults to zero",
			row: rowstore.Row{
				"date":         "2024-12-04",
				"product_name": "Widget",
				"amount":       "n/a",
			},
			want: Transaction{
				Date:        time.Date(2024, 12, 4, 0, 0, 0, 0, time.UTC),
				ProductName: "Widget",
				ProductType: ProductOneTime,
				EventType:   EventOneTime,
			},
		},
		{
			name: "legacy new/recurring scheme resolves against product type",
			row: rowstore.Row{
				"date":         "2024-12-05",
				"product_name": "Membership",
				"product_type": "subscription",
				"event_type":   "new",
				"amount":       float64(97),
			},
			want: Transaction{
				Date:        time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC),
				ProductName: "Membership",
				ProductType: ProductSubscription,
				EventType:   EventSubNew,
				Amount:      97,
			},
		},
		{
			name: "missing event type defaults to the recurring event",
			row: rowstore.Row{
				"date":         "2024-12-06",
				"product_name": "Academy",
				"product_type": "payment_plan",
				"amount":       float64(833),
			},
			want: Transaction{
				Date:        time.Date(2024, 12, 6, 0, 0, 0, 0, time.UTC),
				ProductName: "Academy",
				ProductType: ProductPaymentPlan,
				EventType:   EventPPInstallment,
				Amount:      833,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.row, cfg)
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	cfg := schema.DefaultConfig()

	row := rowstore.Row{
		"date":             "2024-12-02",
		"order_id":         "ORD-002",
		"product_name":     "LevelUp Lab",
		"product_type":     "subscription",
		"event_type":       "sub_recurring",
		"amount":           float64(197),
		"total_price":      float64(197),
		"unit_price":       float64(197),
		"quantity":         float64(1),
		"customer_id":      "CUST-002",
		"normalized_email": "jane.doe@email.com",
		"customer_name":    "Jane Doe",
		"source_platform":  "Hyros",
		"funnel_label":     "LevelUp Lab Subscription",
		"plan_name":        "",
	}

	first := Normalize(row, cfg)

	// Re-express the canonical record as a raw row with canonical names.
	reexpressed := rowstore.Row{
		"date":             first.Date.Format("2006-01-02"),
		"order_id":         first.OrderID,
		"product_name":     first.ProductName,
		"product_type":     string(first.ProductType),
		"event_type":       string(first.EventType),
		"amount":           first.Amount,
		"total_price":      first.TotalPrice,
		"unit_price":       first.UnitPrice,
		"quantity":         float64(first.Quantity),
		"customer_id":      first.CustomerID,
		"normalized_email": first.NormalizedEmail,
		"customer_name":    first.CustomerName,
		"source_platform":  first.SourcePlatform,
		"funnel_label":     first.FunnelLabel,
	}

	second := Normalize(reexpressed, cfg)
	if second != first {
		t.Errorf("Normalize not idempotent:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestRevenueRule(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want float64
	}{
		{"positive total price wins", Transaction{Amount: 100, TotalPrice: 120}, 120},
		{"zero total price falls back to amount", Transaction{Amount: 49, TotalPrice: 0}, 49},
		{"negative total price falls back to amount", Transaction{Amount: 49, TotalPrice: -1}, 49},
		{"both zero", Transaction{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.Revenue(); got != tt.want {
				t.Errorf("Revenue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		wantOK bool
	}{
		{"plain date", "2024-12-01", true},
		{"rfc3339", "2024-12-01T10:30:00Z", true},
		{"datetime", "2024-12-01 10:30:00", true},
		{"us style", "12/01/2024", true},
		{"time value", time.Now(), true},
		{"garbage", "not-a-date", false},
		{"number", float64(42), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDate(tt.in)
			if ok != tt.wantOK {
				t.Errorf("ParseDate(%v) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{"$49.00", 49, true},
		{"1,299.95", 1299.95, true},
		{"-12.50", -12.5, true},
		{float64(7), 7, true},
		{int64(3), 3, true},
		{"free", 0, false},
		{"", 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseNumber(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

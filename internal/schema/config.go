package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the ordered candidate lists used to locate tables and
// columns in the row store. Deployments whose schemas drift can ship a
// JSON override file instead of changing code; order is priority order.
type Config struct {
	TransactionTables []string `json:"transaction_tables"`
	PaymentTables     []string `json:"payment_tables"`

	TransactionIDColumns []string `json:"transaction_id_columns"`
	DateColumns          []string `json:"date_columns"`
	ProductNameColumns   []string `json:"product_name_columns"`
	ProductTypeColumns   []string `json:"product_type_columns"`
	EventTypeColumns     []string `json:"event_type_columns"`
	AmountColumns        []string `json:"amount_columns"`
	TotalPriceColumns    []string `json:"total_price_columns"`
	UnitPriceColumns     []string `json:"unit_price_columns"`
	QuantityColumns      []string `json:"quantity_columns"`
	OrderIDColumns       []string `json:"order_id_columns"`
	CustomerIDColumns    []string `json:"customer_id_columns"`
	EmailColumns         []string `json:"email_columns"`
	CustomerNameColumns  []string `json:"customer_name_columns"`
	SourceColumns        []string `json:"source_columns"`
	FunnelColumns        []string `json:"funnel_columns"`
	PlanNameColumns      []string `json:"plan_name_columns"`
}

// DefaultConfig returns the candidate lists that match the schemas seen in
// production so far. Spellings cover snake_case, camelCase and the display
// labels that CSV imports tend to leave behind.
func DefaultConfig() *Config {
	return &Config{
		TransactionTables: []string{"transaction", "transactions"},
		PaymentTables:     []string{"payment", "payments", "payment_detail", "payment_details"},

		TransactionIDColumns: []string{"TransactionID", "Transaction ID", "transaction_id", "transactionId", "tx_id", "txId", "id"},
		DateColumns:          []string{"date", "created_at", "timestamp", "order_date", "orderDate"},
		ProductNameColumns:   []string{"product_name", "productName", "name"},
		ProductTypeColumns:   []string{"product_type", "productType", "type"},
		EventTypeColumns:     []string{"event_type", "eventType", "event", "transaction_type"},
		AmountColumns:        []string{"amount", "price", "product_price", "totalamount", "total_amount", "amount_total"},
		TotalPriceColumns:    []string{"total_price", "totalPrice", "total"},
		UnitPriceColumns:     []string{"unit_price", "unitPrice"},
		QuantityColumns:      []string{"quantity", "qty"},
		OrderIDColumns:       []string{"order_id", "orderId", "order"},
		CustomerIDColumns:    []string{"customer_id", "customerId"},
		EmailColumns:         []string{"normalized_email", "email", "Email"},
		CustomerNameColumns:  []string{"customer_name", "buyer_name", "full_name", "fullname", "Full Name"},
		SourceColumns:        []string{"source_platform", "platform", "source"},
		FunnelColumns:        []string{"funnel_label", "funnel"},
		PlanNameColumns:      []string{"plan_name", "planName", "plan"},
	}
}

// LoadFile reads a Config from a JSON file. Lists left empty in the file
// keep their defaults, so an override file only needs the lists that
// actually drifted.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}

	var overrides Config
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("LoadFile: parsing %s: %w", path, err)
	}

	cfg := DefaultConfig()
	cfg.merge(&overrides)
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&c.TransactionTables, o.TransactionTables)
	replace(&c.PaymentTables, o.PaymentTables)
	replace(&c.TransactionIDColumns, o.TransactionIDColumns)
	replace(&c.DateColumns, o.DateColumns)
	replace(&c.ProductNameColumns, o.ProductNameColumns)
	replace(&c.ProductTypeColumns, o.ProductTypeColumns)
	replace(&c.EventTypeColumns, o.EventTypeColumns)
	replace(&c.AmountColumns, o.AmountColumns)
	replace(&c.TotalPriceColumns, o.TotalPriceColumns)
	replace(&c.UnitPriceColumns, o.UnitPriceColumns)
	replace(&c.QuantityColumns, o.QuantityColumns)
	replace(&c.OrderIDColumns, o.OrderIDColumns)
	replace(&c.CustomerIDColumns, o.CustomerIDColumns)
	replace(&c.EmailColumns, o.EmailColumns)
	replace(&c.CustomerNameColumns, o.CustomerNameColumns)
	replace(&c.SourceColumns, o.SourceColumns)
	replace(&c.FunnelColumns, o.FunnelColumns)
	replace(&c.PlanNameColumns, o.PlanNameColumns)
}

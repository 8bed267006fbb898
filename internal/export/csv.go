package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"revdash/internal/dashboard"
)

// Document names one of the CSV documents the dashboard can export.
type Document string

const (
	DocTransactions Document = "transactions"
	DocProducts     Document = "products"
	DocSummary      Document = "summary"
)

// Filename returns the download filename for the document.
func (d Document) Filename() string {
	switch d {
	case DocProducts:
		return "product-summary.csv"
	case DocSummary:
		return "dashboard-summary.csv"
	default:
		return "transactions.csv"
	}
}

// ParseDocument maps a URL path segment like "products.csv" to a Document.
func ParseDocument(name string) (Document, error) {
	switch name {
	case "transactions.csv", "transactions":
		return DocTransactions, nil
	case "products.csv", "products":
		return DocProducts, nil
	case "summary.csv", "summary":
		return DocSummary, nil
	}
	return "", fmt.Errorf("ParseDocument: unknown document %q", name)
}

// Render writes the named document for the snapshot and returns its bytes.
func Render(doc Document, snap *dashboard.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch doc {
	case DocTransactions:
		err = WriteTransactions(&buf, snap.Transactions)
	case DocProducts:
		err = WriteProducts(&buf, snap.Aggregates)
	case DocSummary:
		err = WriteSummary(&buf, snap.Aggregates)
	default:
		return nil, fmt.Errorf("Render: unknown document %q", doc)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTransactions writes one row per transaction.
func WriteTransactions(w io.Writer, txs []dashboard.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Product", "Type", "Event", "Amount", "Date", "Customer"}); err != nil {
		return fmt.Errorf("WriteTransactions: %w", err)
	}
	for _, tx := range txs {
		customer := tx.CustomerName
		if customer == "" {
			customer = tx.NormalizedEmail
		}
		rec := []string{
			tx.OrderID,
			tx.ProductName,
			string(tx.ProductType),
			string(tx.EventType),
			formatAmount(tx.Revenue()),
			tx.Date.UTC().Format("2006-01-02"),
			customer,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("WriteTransactions: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProducts writes one row per product summary. Variant counters are
// flattened into shared columns: New covers new subscriptions, new plan
// starts or new customers depending on the product type, Recurring covers
// recurring bills and continuing installments.
func WriteProducts(w io.Writer, agg *dashboard.Aggregates) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Product Name", "Type", "MTD Revenue", "Transactions", "New", "Recurring", "Cancellations"}); err != nil {
		return fmt.Errorf("WriteProducts: %w", err)
	}
	for _, p := range agg.Products {
		if err := cw.Write(productRecord(p)); err != nil {
			return fmt.Errorf("WriteProducts: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func productRecord(p dashboard.ProductSummary) []string {
	var newCount, recurring, cancels int
	switch {
	case p.Subscription != nil:
		newCount = p.Subscription.NewSubs
		recurring = p.Subscription.RecurringBills
		cancels = p.Subscription.Cancellations
	case p.PaymentPlan != nil:
		newCount = p.PaymentPlan.NewPlansStarted
		recurring = p.PaymentPlan.ContinuingInstallments
	case p.OneTime != nil:
		newCount = p.OneTime.NewCustomers
	}
	return []string{
		p.Name,
		string(p.Type),
		formatAmount(p.MTDRevenue),
		strconv.Itoa(p.Transactions),
		strconv.Itoa(newCount),
		strconv.Itoa(recurring),
		strconv.Itoa(cancels),
	}
}

// WriteSummary writes the metric/value section followed by the product
// breakdown section.
func WriteSummary(w io.Writer, agg *dashboard.Aggregates) error {
	cw := csv.NewWriter(w)

	totalTx := 0
	for _, p := range agg.Products {
		totalTx += p.Transactions
	}

	g := agg.Global
	rows := [][]string{
		{"Metric", "Value"},
		{"MTD Revenue", "$" + formatAmount(g.MTDRevenue)},
		{"Active Subscriptions", strconv.Itoa(g.ActiveSubscriptions)},
		{"Active Payment Plans", strconv.Itoa(g.ActivePaymentPlans)},
		{"Churn Rate", formatPercent(g.ChurnRate)},
		{"New Customers", strconv.Itoa(g.NewCustomers)},
		{"New Payment Plans Started", strconv.Itoa(g.NewPaymentPlansStarted)},
		{"New Payment Plans Revenue", "$" + formatAmount(g.NewPaymentPlansRevenue)},
		{"Subscription Net Change", strconv.Itoa(g.SubscriptionNetChange)},
		{"Total Transactions", strconv.Itoa(totalTx)},
		{""},
		{"Product Breakdown:"},
		{"Product Name", "Type", "MTD Revenue", "Transactions", "New", "Recurring", "Cancellations"},
	}
	for _, rec := range rows {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("WriteSummary: %w", err)
		}
	}
	for _, p := range agg.Products {
		rec := productRecord(p)
		rec[2] = "$" + rec[2]
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("WriteSummary: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

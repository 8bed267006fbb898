package dashboard

import (
	"time"

	"cloud.google.com/go/civil"
)

// ProductType classifies a product line.
type ProductType string

const (
	ProductSubscription ProductType = "subscription"
	ProductPaymentPlan  ProductType = "payment_plan"
	ProductOneTime      ProductType = "one_time"
)

// EventType classifies a single transaction within its product type.
type EventType string

const (
	EventSubNew        EventType = "sub_new"
	EventSubRecurring  EventType = "sub_recurring"
	EventSubCancel     EventType = "sub_cancel"
	EventPPNew         EventType = "pp_new"
	EventPPInstallment EventType = "pp_installment"
	EventOneTime       EventType = "one_time"
)

// Known source platforms. The field stays a free string because upstream
// systems occasionally add new ones.
const (
	SourceGHL   = "GHL"
	SourceHyros = "Hyros"
	SourceOCR   = "OCR"
)

// UnknownProduct is the display name used when no product name column
// resolves for a row.
const UnknownProduct = "Unknown Product"

// Transaction is one normalized transaction. It is built fresh from raw
// rows on every load cycle and never mutated afterwards.
type Transaction struct {
	Date            time.Time   `json:"date"`
	OrderID         string      `json:"order_id"`
	ProductName     string      `json:"product_name"`
	ProductType     ProductType `json:"product_type"`
	EventType       EventType   `json:"event_type"`
	Amount          float64     `json:"amount"`
	CustomerID      string      `json:"customer_id"`
	NormalizedEmail string      `json:"normalized_email"`
	CustomerName    string      `json:"customer_name,omitempty"`
	Quantity        int         `json:"quantity,omitempty"`
	UnitPrice       float64     `json:"unit_price,omitempty"`
	TotalPrice      float64     `json:"total_price,omitempty"`
	SourcePlatform  string      `json:"source_platform"`
	FunnelLabel     string      `json:"funnel_label"`
	PlanName        string      `json:"plan_name,omitempty"`
}

// Revenue is the amount used everywhere revenue is summed: the total price
// when it is a positive number, the amount otherwise.
func (t Transaction) Revenue() float64 {
	if t.TotalPrice > 0 {
		return t.TotalPrice
	}
	return t.Amount
}

// CustomerKey identifies a distinct customer: the customer id when
// present, the normalized email otherwise. Empty means unidentifiable.
func (t Transaction) CustomerKey() string {
	if t.CustomerID != "" {
		return t.CustomerID
	}
	return t.NormalizedEmail
}

// GlobalMetrics are the top-level dashboard cards. Active counts are
// proxies: billing events observed within the range, not live statuses.
type GlobalMetrics struct {
	MTDRevenue             float64 `json:"mtd_revenue"`
	ActiveSubscriptions    int     `json:"active_subscriptions"`
	ActivePaymentPlans     int     `json:"active_payment_plans"`
	ChurnRate              float64 `json:"churn_rate"`
	NewCustomers           int     `json:"new_customers"`
	NewPaymentPlansStarted int     `json:"new_payment_plans_started"`
	NewPaymentPlansRevenue float64 `json:"new_payment_plans_revenue"`
	SubscriptionNetChange  int     `json:"subscription_net_change"`
}

// SubscriptionBreakdown partitions the subscription group by event type.
type SubscriptionBreakdown struct {
	NewSubs             int     `json:"new_subs"`
	RecurringBills      int     `json:"recurring_bills"`
	Cancellations       int     `json:"cancellations"`
	ChurnRate           float64 `json:"churn_rate"`
	SubscriptionRevenue float64 `json:"subscription_revenue"`
}

// PaymentPlanBreakdown partitions the payment plan group by event type.
type PaymentPlanBreakdown struct {
	NewPlansStarted        int     `json:"new_plans_started"`
	NewPlansRevenue        float64 `json:"new_plans_revenue"`
	ContinuingInstallments int     `json:"continuing_installments"`
	ContinuingRevenue      float64 `json:"continuing_revenue"`
	PaymentPlanRevenue     float64 `json:"payment_plan_revenue"`
}

// PlanBreakdown is one row of a payment plan product's per-plan table.
type PlanBreakdown struct {
	Name                string  `json:"name"`
	NewStarts           int     `json:"new_starts"`
	Installments        int     `json:"installments"`
	RevenueNew          float64 `json:"revenue_new"`
	RevenueInstallments float64 `json:"revenue_installments"`
}

// SubscriptionStats is the subscription variant of a product summary.
type SubscriptionStats struct {
	ActiveSubs     int     `json:"active_subs"`
	NewSubs        int     `json:"new_subs"`
	RecurringBills int     `json:"recurring_bills"`
	Cancellations  int     `json:"cancellations"`
	ChurnRate      float64 `json:"churn_rate"`
}

// PaymentPlanStats is the payment plan variant of a product summary.
type PaymentPlanStats struct {
	NewPlansStarted        int             `json:"new_plans_started"`
	NewPlansRevenue        float64         `json:"new_plans_revenue"`
	ContinuingInstallments int             `json:"continuing_installments"`
	ContinuingRevenue      float64         `json:"continuing_revenue"`
	NewCustomers           int             `json:"new_customers"`
	Plans                  []PlanBreakdown `json:"plans,omitempty"`
}

// OneTimeStats is the one-time purchase variant of a product summary.
type OneTimeStats struct {
	NewCustomers int     `json:"new_customers"`
	AOV          float64 `json:"aov"`
}

// ProductSummary is one dashboard card per distinct (name, type) pair.
// Exactly one of the variant payloads is non-nil, selected by Type, so the
// presentation layer can tell "not applicable" from "zero activity".
type ProductSummary struct {
	Name         string      `json:"name"`
	Type         ProductType `json:"type"`
	MTDRevenue   float64     `json:"mtd_revenue"`
	Transactions int         `json:"transactions"`

	Subscription *SubscriptionStats `json:"subscription,omitempty"`
	PaymentPlan  *PaymentPlanStats  `json:"payment_plan,omitempty"`
	OneTime      *OneTimeStats      `json:"one_time,omitempty"`
}

// Aggregates is the fixed output shape consumed by the presentation and
// export layers.
type Aggregates struct {
	Global        GlobalMetrics         `json:"global"`
	Subscriptions SubscriptionBreakdown `json:"subscriptions"`
	PaymentPlans  PaymentPlanBreakdown  `json:"payment_plans"`
	Products      []ProductSummary      `json:"products"`
}

// DailyPoint is one calendar-day bucket of a product's revenue series.
// Days with no transactions produce no point.
type DailyPoint struct {
	Date    civil.Date `json:"date"`
	Revenue float64    `json:"revenue"`
	Count   int        `json:"count"`
}

package dashboard

import (
	"math"
	"sort"
)

type productKey struct {
	name string
	typ  ProductType
}

// productAcc accumulates one product's summary while folding.
type productAcc struct {
	summary   ProductSummary
	customers map[string]bool
	planOrder []string
	plans     map[string]*PlanBreakdown
}

// Aggregate folds an ordered transaction list into the dashboard's derived
// aggregates. It is pure: the same input always produces the same output,
// and nothing is cached between calls. Every load cycle recomputes from
// scratch.
func Aggregate(txs []Transaction) *Aggregates {
	agg := &Aggregates{}

	globalCustomers := make(map[string]bool)

	var order []productKey
	products := make(map[productKey]*productAcc)

	for _, tx := range txs {
		rev := tx.Revenue()
		agg.Global.MTDRevenue += rev

		if key := tx.CustomerKey(); key != "" {
			globalCustomers[key] = true
		}

		switch tx.EventType {
		case EventSubNew:
			agg.Subscriptions.NewSubs++
		case EventSubRecurring:
			agg.Subscriptions.RecurringBills++
		case EventSubCancel:
			agg.Subscriptions.Cancellations++
		case EventPPNew:
			agg.PaymentPlans.NewPlansStarted++
			agg.PaymentPlans.NewPlansRevenue += rev
		case EventPPInstallment:
			agg.PaymentPlans.ContinuingInstallments++
			agg.PaymentPlans.ContinuingRevenue += rev
		}

		switch tx.ProductType {
		case ProductSubscription:
			agg.Subscriptions.SubscriptionRevenue += rev
		case ProductPaymentPlan:
			agg.PaymentPlans.PaymentPlanRevenue += rev
		}

		// Per-product accumulation. The key is the (name, type) pair: a
		// product sold both as a subscription and one-time yields two
		// separate summaries.
		key := productKey{name: tx.ProductName, typ: tx.ProductType}
		acc, ok := products[key]
		if !ok {
			acc = &productAcc{
				summary: ProductSummary{Name: tx.ProductName, Type: tx.ProductType},
			}
			switch tx.ProductType {
			case ProductSubscription:
				acc.summary.Subscription = &SubscriptionStats{}
			case ProductPaymentPlan:
				acc.summary.PaymentPlan = &PaymentPlanStats{}
				acc.customers = make(map[string]bool)
				acc.plans = make(map[string]*PlanBreakdown)
			case ProductOneTime:
				acc.summary.OneTime = &OneTimeStats{}
				acc.customers = make(map[string]bool)
			}
			products[key] = acc
			order = append(order, key)
		}

		acc.summary.MTDRevenue += rev
		acc.summary.Transactions++

		switch tx.ProductType {
		case ProductSubscription:
			s := acc.summary.Subscription
			switch tx.EventType {
			case EventSubNew:
				s.NewSubs++
			case EventSubRecurring:
				s.RecurringBills++
			case EventSubCancel:
				s.Cancellations++
			}
		case ProductPaymentPlan:
			p := acc.summary.PaymentPlan
			plan := acc.plan(tx)
			switch tx.EventType {
			case EventPPNew:
				p.NewPlansStarted++
				p.NewPlansRevenue += rev
				plan.NewStarts++
				plan.RevenueNew += rev
				if key := tx.CustomerKey(); key != "" {
					acc.customers[key] = true
				}
			case EventPPInstallment:
				p.ContinuingInstallments++
				p.ContinuingRevenue += rev
				plan.Installments++
				plan.RevenueInstallments += rev
			}
		case ProductOneTime:
			if key := tx.CustomerKey(); key != "" {
				acc.customers[key] = true
			}
		}
	}

	agg.Subscriptions.ChurnRate = churnRate(
		agg.Subscriptions.Cancellations,
		agg.Subscriptions.NewSubs,
		agg.Subscriptions.RecurringBills,
	)

	agg.Global.ActiveSubscriptions = agg.Subscriptions.RecurringBills
	agg.Global.ActivePaymentPlans = agg.PaymentPlans.ContinuingInstallments
	agg.Global.ChurnRate = agg.Subscriptions.ChurnRate
	agg.Global.NewCustomers = len(globalCustomers)
	agg.Global.NewPaymentPlansStarted = agg.PaymentPlans.NewPlansStarted
	agg.Global.NewPaymentPlansRevenue = agg.PaymentPlans.NewPlansRevenue
	agg.Global.SubscriptionNetChange = agg.Subscriptions.NewSubs - agg.Subscriptions.Cancellations

	agg.Products = make([]ProductSummary, 0, len(order))
	for _, key := range order {
		acc := products[key]
		s := acc.summary

		switch key.typ {
		case ProductSubscription:
			sub := s.Subscription
			sub.ActiveSubs = sub.NewSubs + sub.RecurringBills
			sub.ChurnRate = churnRate(sub.Cancellations, sub.NewSubs, sub.RecurringBills)
		case ProductPaymentPlan:
			p := s.PaymentPlan
			p.NewCustomers = len(acc.customers)
			for _, name := range acc.planOrder {
				p.Plans = append(p.Plans, *acc.plans[name])
			}
		case ProductOneTime:
			o := s.OneTime
			o.NewCustomers = len(acc.customers)
			if s.Transactions > 0 {
				o.AOV = s.MTDRevenue / float64(s.Transactions)
			}
		}

		agg.Products = append(agg.Products, s)
	}

	sort.SliceStable(agg.Products, func(i, j int) bool {
		return agg.Products[i].MTDRevenue > agg.Products[j].MTDRevenue
	})

	return agg
}

// plan returns the per-plan accumulator for a payment plan transaction,
// creating it on first sight. Rows without a plan name group under the
// product name itself.
func (acc *productAcc) plan(tx Transaction) *PlanBreakdown {
	name := tx.PlanName
	if name == "" {
		name = tx.ProductName
	}
	if p, ok := acc.plans[name]; ok {
		return p
	}
	p := &PlanBreakdown{Name: name}
	acc.plans[name] = p
	acc.planOrder = append(acc.planOrder, name)
	return p
}

// churnRate is cancellations over new plus recurring billing events, as a
// percentage rounded to one decimal and clamped to [0, 100]. Zero
// denominator means zero churn regardless of cancellation count.
func churnRate(cancellations, newSubs, recurring int) float64 {
	denom := newSubs + recurring
	if denom <= 0 {
		return 0
	}
	rate := math.Round(float64(cancellations)/float64(denom)*1000) / 10
	if rate > 100 {
		return 100
	}
	return rate
}

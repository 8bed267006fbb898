package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"revdash/internal/dashboard"
)

// ProductToNotionProperties converts a product summary to the properties of
// its Notion page. The Product title plus the Type select form the upsert
// key; variant counters map to number columns that stay empty for the other
// product types.
func ProductToNotionProperties(p dashboard.ProductSummary, syncedAt time.Time) notionapi.Properties {
	props := notionapi.Properties{
		"Product": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: p.Name,
					},
				},
			},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(p.Type),
			},
		},
		"MTD Revenue":  numberProp(p.MTDRevenue),
		"Transactions": numberProp(float64(p.Transactions)),
		"Synced At": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: notionDate(syncedAt),
			},
		},
	}

	switch {
	case p.Subscription != nil:
		props["Active Subs"] = numberProp(float64(p.Subscription.ActiveSubs))
		props["New Subs"] = numberProp(float64(p.Subscription.NewSubs))
		props["Recurring Bills"] = numberProp(float64(p.Subscription.RecurringBills))
		props["Cancellations"] = numberProp(float64(p.Subscription.Cancellations))
		props["Churn Rate"] = numberProp(p.Subscription.ChurnRate)
	case p.PaymentPlan != nil:
		props["New Plans Started"] = numberProp(float64(p.PaymentPlan.NewPlansStarted))
		props["New Plans Revenue"] = numberProp(p.PaymentPlan.NewPlansRevenue)
		props["Continuing Installments"] = numberProp(float64(p.PaymentPlan.ContinuingInstallments))
		props["Continuing Revenue"] = numberProp(p.PaymentPlan.ContinuingRevenue)
		props["New Customers"] = numberProp(float64(p.PaymentPlan.NewCustomers))
	case p.OneTime != nil:
		props["New Customers"] = numberProp(float64(p.OneTime.NewCustomers))
		props["AOV"] = numberProp(p.OneTime.AOV)
	}

	return props
}

func numberProp(v float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: v}
}

func notionDate(t time.Time) *notionapi.Date {
	d := notionapi.Date(t.UTC())
	return &d
}

// extractProductKey reads the Product title and Type select back from a
// Notion page. Empty name means the page was not created by this sync.
func extractProductKey(page notionapi.Page) (name, typ string) {
	if prop, ok := page.Properties["Product"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok && len(title.Title) > 0 {
			name = title.Title[0].PlainText
			if name == "" && title.Title[0].Text != nil {
				name = title.Title[0].Text.Content
			}
		}
	}
	if prop, ok := page.Properties["Type"]; ok {
		if sel, ok := prop.(*notionapi.SelectProperty); ok {
			typ = sel.Select.Name
		}
	}
	return name, typ
}

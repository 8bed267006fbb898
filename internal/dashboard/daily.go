package dashboard

import (
	"sort"

	"cloud.google.com/go/civil"
)

// DailySeries folds a product's transactions into a date-bucketed revenue
// and count series. Buckets are UTC calendar days, emitted in ascending
// date order with no gap-filling: a day with no transactions has no point.
func DailySeries(txs []Transaction, productName string) []DailyPoint {
	buckets := make(map[civil.Date]*DailyPoint)

	for _, tx := range txs {
		if tx.ProductName != productName {
			continue
		}
		day := civil.DateOf(tx.Date.UTC())
		point, ok := buckets[day]
		if !ok {
			point = &DailyPoint{Date: day}
			buckets[day] = point
		}
		point.Revenue += tx.Revenue()
		point.Count++
	}

	series := make([]DailyPoint, 0, len(buckets))
	for _, point := range buckets {
		series = append(series, *point)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	return series
}

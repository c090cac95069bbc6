package stats

import (
	"sort"
	"time"
)

// MonthLayout formats the bucket key of a month.
const MonthLayout = "2006-01"

// MonthCount is the number of hits recorded in one calendar month.
type MonthCount struct {
	Month string `json:"month"`
	Hits  int    `json:"hits"`
}

// Monthly groups timestamps by calendar month in loc and returns the buckets
// in chronological order. Months without hits are omitted.
func Monthly(times []time.Time, loc *time.Location) []MonthCount {
	if loc == nil {
		loc = time.UTC
	}
	counts := make(map[string]int)
	for _, ts := range times {
		if ts.IsZero() {
			continue
		}
		counts[ts.In(loc).Format(MonthLayout)]++
	}

	months := make([]MonthCount, 0, len(counts))
	for month, hits := range counts {
		months = append(months, MonthCount{Month: month, Hits: hits})
	}
	// The layout sorts lexically in chronological order.
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

package airtable

import "time"

// dateFilterLayout is the upstream's native date-filter format (MM/DD/YY).
const dateFilterLayout = "01/02/06"

// DatesBefore lists the n dates before t, nearest first, in the upstream's
// date-filter format.
func DatesBefore(t time.Time, n int) []string {
	dates := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		dates = append(dates, t.AddDate(0, 0, -i).Format(dateFilterLayout))
	}
	return dates
}

// LookbackWindow returns the dates to fetch for a trigger time: only the 6th
// and 7th days before it. The upstream's satellite precipitation columns lag
// roughly five days behind submission, so earlier days are not ready yet.
func LookbackWindow(t time.Time) []string {
	dates := DatesBefore(t, 7)
	return dates[len(dates)-2:]
}

package scorer

import (
	"slices"

	"github.com/sells-group/occr-cli/internal/model"
)

// CreditEventClustering returns the fraction of credit events (from the second
// onward, in date order) that are both at or above the average amount and
// issued within the average gap of the previous event. Averages are taken
// over the whole series. Fewer than two events score 0.
func CreditEventClustering(events []model.CreditEvent) float64 {
	if len(events) < 2 {
		return 0
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.CreditEvent) int {
		return a.IssueDate.Compare(b.IssueDate)
	})

	gaps := make([]float64, len(sorted)-1)
	var gapSum, amountSum float64
	for i, ev := range sorted {
		amountSum += ev.Amount
		if i > 0 {
			gaps[i-1] = float64(daysBetween(sorted[i-1].IssueDate, ev.IssueDate))
			gapSum += gaps[i-1]
		}
	}
	avgGap := gapSum / float64(len(gaps))
	avgAmount := amountSum / float64(len(sorted))

	var flagged int
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Amount >= avgAmount && gaps[i-1] <= avgGap {
			flagged++
		}
	}
	return float64(flagged) / float64(len(gaps))
}

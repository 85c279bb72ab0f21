package cohort

import (
	"sort"

	"github.com/sells-group/occr-cli/internal/model"
)

// GroupSummary holds per-group averages of the sub-scores and OCCR values.
type GroupSummary struct {
	Key              string   `json:"key"`
	Count            int      `json:"count"`
	Historical       float64  `json:"historical"`
	StressedSolvency float64  `json:"stressed_solvency"`
	Utilization      float64  `json:"utilization"`
	Transaction      float64  `json:"transaction"`
	Clustering       float64  `json:"clustering"`
	RawScore         float64  `json:"raw_score"`
	NormalizedScore  *float64 `json:"normalized_score,omitempty"` // nil when no member has one
}

// Summarize averages successful results per group, ordered by key. Failed
// results are skipped.
func Summarize(results []model.CompanyResult, key func(model.CompanyResult) string) []GroupSummary {
	type acc struct {
		sum       GroupSummary
		normSum   float64
		normCount int
	}
	groups := make(map[string]*acc)

	for _, r := range results {
		if r.Failed() {
			continue
		}
		k := key(r)
		a, ok := groups[k]
		if !ok {
			a = &acc{sum: GroupSummary{Key: k}}
			groups[k] = a
		}
		a.sum.Count++
		a.sum.Historical += r.Scores.Historical
		a.sum.StressedSolvency += r.Scores.StressedSolvency
		a.sum.Utilization += r.Scores.Utilization
		a.sum.Transaction += r.Scores.Transaction
		a.sum.Clustering += r.Scores.Clustering
		a.sum.RawScore += r.RawScore
		if r.NormalizedScore != nil {
			a.normSum += *r.NormalizedScore
			a.normCount++
		}
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, a := range groups {
		s := a.sum
		n := float64(s.Count)
		s.Historical /= n
		s.StressedSolvency /= n
		s.Utilization /= n
		s.Transaction /= n
		s.Clustering /= n
		s.RawScore /= n
		if a.normCount > 0 {
			avg := a.normSum / float64(a.normCount)
			s.NormalizedScore = &avg
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SummaryKey returns the key function for a summary table. Sector summaries
// group by sector label; size summaries group by enterprise-value quartile
// over the successful results.
func SummaryKey(g model.Grouping, results []model.CompanyResult) func(model.CompanyResult) string {
	switch g {
	case model.GroupingSector:
		return func(r model.CompanyResult) string { return SectorLabel(r.Sector) }
	case model.GroupingSize:
		values := make(map[string]float64)
		for _, r := range results {
			if !r.Failed() {
				values[r.Ticker] = r.EnterpriseValue
			}
		}
		labels := SizeQuartiles(values)
		return func(r model.CompanyResult) string { return labels[r.Ticker] }
	default:
		return func(model.CompanyResult) string { return AllKey }
	}
}

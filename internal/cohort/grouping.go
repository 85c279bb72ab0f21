package cohort

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/occr-cli/internal/model"
)

// UnknownSector labels companies without a sector.
const UnknownSector = "Unknown"

// BySector partitions entries by the sector of the matching ticker.
func BySector(sectors map[string]string) KeyFunc {
	return func(e Entry) string {
		return SectorLabel(sectors[e.ID])
	}
}

// SectorLabel returns the display label for a sector value.
func SectorLabel(sector string) string {
	if s := strings.TrimSpace(sector); s != "" {
		return s
	}
	return UnknownSector
}

// BySizeQuartile partitions entries by enterprise-value quartile, computed
// over the tickers present in values.
func BySizeQuartile(values map[string]float64) KeyFunc {
	labels := SizeQuartiles(values)
	return func(e Entry) string {
		return labels[e.ID]
	}
}

// SizeQuartiles assigns each ID a quartile label Q1 (smallest) to Q4 by rank
// of its value. Tied values share the quartile of the first of them.
func SizeQuartiles(values map[string]float64) map[string]string {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if values[ids[i]] != values[ids[j]] {
			return values[ids[i]] < values[ids[j]]
		}
		return ids[i] < ids[j]
	})

	labels := make(map[string]string, len(ids))
	n := len(ids)
	var q int
	for rank, id := range ids {
		if rank == 0 || values[id] != values[ids[rank-1]] {
			q = rank*4/n + 1
		}
		labels[id] = fmt.Sprintf("Q%d", q)
	}
	return labels
}

// KeyFor returns the KeyFunc for a grouping over the given successful results.
// GroupingNone returns nil.
func KeyFor(g model.Grouping, results []model.CompanyResult) KeyFunc {
	switch g {
	case model.GroupingSector:
		sectors := make(map[string]string, len(results))
		for _, r := range results {
			sectors[r.Ticker] = r.Sector
		}
		return BySector(sectors)
	case model.GroupingSize:
		values := make(map[string]float64, len(results))
		for _, r := range results {
			values[r.Ticker] = r.EnterpriseValue
		}
		return BySizeQuartile(values)
	default:
		return nil
	}
}

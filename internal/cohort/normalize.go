// Package cohort normalizes raw OCCR scores across a set of companies and
// builds the grouped summary tables.
package cohort

import (
	"fmt"
	"math"

	"github.com/sells-group/occr-cli/internal/model"
)

// AllKey is the partition key used when no grouping function is given.
const AllKey = "all"

// Entry is one company's raw score keyed by a unique ID (the ticker).
type Entry struct {
	ID  string
	Raw float64
}

// KeyFunc assigns an entry to a partition.
type KeyFunc func(Entry) string

// DegenerateCohortError reports a partition whose scores are all equal, so
// min-max normalization is undefined.
type DegenerateCohortError struct {
	Key   string
	Count int
	Value float64
}

func (e *DegenerateCohortError) Error() string {
	return fmt.Sprintf("degenerate cohort %q: all %d raw scores equal %g", e.Key, e.Count, e.Value)
}

// Normalization is the result of Normalize.
type Normalization struct {
	// Values maps entry ID to its normalized score. Entries of degenerate
	// partitions are absent.
	Values map[string]float64
	// Groups maps entry ID to its partition key.
	Groups map[string]string
	// Partitions lists partition stats in order of first appearance.
	Partitions []model.PartitionStats
	// Degenerate holds one error per degenerate partition.
	Degenerate []*DegenerateCohortError
}

// Normalize min-max rescales raw scores within each partition:
//
//	normalized = (raw - min) / (max - min)
//
// A nil key puts every entry into one partition. A partition with max == min
// (including a single entry) yields a DegenerateCohortError and no values;
// other partitions are unaffected.
func Normalize(entries []Entry, key KeyFunc) Normalization {
	n := Normalization{
		Values: make(map[string]float64, len(entries)),
		Groups: make(map[string]string, len(entries)),
	}

	var order []string
	members := make(map[string][]Entry)
	for _, e := range entries {
		k := AllKey
		if key != nil {
			k = key(e)
		}
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], e)
		n.Groups[e.ID] = k
	}

	for _, k := range order {
		part := members[k]
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, e := range part {
			lo = math.Min(lo, e.Raw)
			hi = math.Max(hi, e.Raw)
		}

		stats := model.PartitionStats{Key: k, Count: len(part), Min: lo, Max: hi}
		if hi == lo {
			derr := &DegenerateCohortError{Key: k, Count: len(part), Value: lo}
			stats.Error = derr.Error()
			n.Degenerate = append(n.Degenerate, derr)
			n.Partitions = append(n.Partitions, stats)
			continue
		}

		span := hi - lo
		for _, e := range part {
			n.Values[e.ID] = (e.Raw - lo) / span
		}
		n.Partitions = append(n.Partitions, stats)
	}

	return n
}

package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/occr-cli/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }

func TestNormalize_WholeCohort(t *testing.T) {
	entries := []Entry{
		{ID: "A", Raw: 0.31},
		{ID: "B", Raw: 0.12},
		{ID: "C", Raw: 0.47},
		{ID: "D", Raw: 0.20},
	}

	n := Normalize(entries, nil)

	assert.Equal(t, 1.0, n.Values["C"])
	assert.Equal(t, 0.0, n.Values["B"])
	assert.InDelta(t, (0.31-0.12)/(0.47-0.12), n.Values["A"], 1e-12)
	assert.InDelta(t, (0.20-0.12)/(0.47-0.12), n.Values["D"], 1e-12)

	require.Len(t, n.Partitions, 1)
	p := n.Partitions[0]
	assert.Equal(t, AllKey, p.Key)
	assert.Equal(t, 4, p.Count)
	assert.Equal(t, 0.12, p.Min)
	assert.Equal(t, 0.47, p.Max)
	assert.Empty(t, p.Error)
	assert.Empty(t, n.Degenerate)
	assert.Equal(t, AllKey, n.Groups["A"])
}

func TestNormalize_NegativeRawScores(t *testing.T) {
	n := Normalize([]Entry{{ID: "A", Raw: -0.4}, {ID: "B", Raw: 0.1}, {ID: "C", Raw: -0.15}}, nil)
	assert.Equal(t, 0.0, n.Values["A"])
	assert.Equal(t, 1.0, n.Values["B"])
	assert.InDelta(t, 0.5, n.Values["C"], 1e-12)
}

func TestNormalize_Partitioned(t *testing.T) {
	sectors := map[string]string{"A": "Tech", "B": "Tech", "C": "Energy", "D": "Energy", "E": ""}
	entries := []Entry{
		{ID: "A", Raw: 0.5},
		{ID: "C", Raw: 0.2},
		{ID: "B", Raw: 0.1},
		{ID: "D", Raw: 0.9},
		{ID: "E", Raw: 0.3},
	}

	n := Normalize(entries, BySector(sectors))

	assert.Equal(t, 1.0, n.Values["A"])
	assert.Equal(t, 0.0, n.Values["B"])
	assert.Equal(t, 0.0, n.Values["C"])
	assert.Equal(t, 1.0, n.Values["D"])

	// Single-member partition is degenerate and gets no value.
	_, ok := n.Values["E"]
	assert.False(t, ok)
	assert.Equal(t, UnknownSector, n.Groups["E"])

	require.Len(t, n.Partitions, 3)
	assert.Equal(t, "Tech", n.Partitions[0].Key)
	assert.Equal(t, "Energy", n.Partitions[1].Key)
	assert.Equal(t, UnknownSector, n.Partitions[2].Key)
	assert.Contains(t, n.Partitions[2].Error, "degenerate cohort")

	require.Len(t, n.Degenerate, 1)
	assert.Equal(t, UnknownSector, n.Degenerate[0].Key)
	assert.Equal(t, 1, n.Degenerate[0].Count)
}

func TestNormalize_AllEqual(t *testing.T) {
	n := Normalize([]Entry{{ID: "A", Raw: 0.25}, {ID: "B", Raw: 0.25}}, nil)
	assert.Empty(t, n.Values)
	require.Len(t, n.Degenerate, 1)
	assert.Equal(t, 0.25, n.Degenerate[0].Value)
	assert.Equal(t, `degenerate cohort "all": all 2 raw scores equal 0.25`, n.Degenerate[0].Error())
}

func TestNormalize_Empty(t *testing.T) {
	n := Normalize(nil, nil)
	assert.Empty(t, n.Values)
	assert.Empty(t, n.Partitions)
}

func TestSizeQuartiles(t *testing.T) {
	values := map[string]float64{
		"A": 100, "B": 400, "C": 200, "D": 800,
		"E": 50, "F": 1600, "G": 3200, "H": 25,
	}
	labels := SizeQuartiles(values)

	assert.Equal(t, "Q1", labels["H"])
	assert.Equal(t, "Q1", labels["E"])
	assert.Equal(t, "Q2", labels["A"])
	assert.Equal(t, "Q2", labels["C"])
	assert.Equal(t, "Q3", labels["B"])
	assert.Equal(t, "Q3", labels["D"])
	assert.Equal(t, "Q4", labels["F"])
	assert.Equal(t, "Q4", labels["G"])
}

func TestSizeQuartiles_TiesShareQuartile(t *testing.T) {
	labels := SizeQuartiles(map[string]float64{"A": 10, "B": 10, "C": 10, "D": 20})
	assert.Equal(t, "Q1", labels["A"])
	assert.Equal(t, "Q1", labels["B"])
	assert.Equal(t, "Q1", labels["C"])
	assert.Equal(t, "Q4", labels["D"])
}

func TestSizeQuartiles_Small(t *testing.T) {
	labels := SizeQuartiles(map[string]float64{"A": 1, "B": 2})
	assert.Equal(t, "Q1", labels["A"])
	assert.Equal(t, "Q3", labels["B"])
	assert.Empty(t, SizeQuartiles(nil))
}

func TestKeyFor(t *testing.T) {
	results := []model.CompanyResult{
		{Ticker: "A", Sector: "Tech", EnterpriseValue: 10},
		{Ticker: "B", Sector: "Energy", EnterpriseValue: 40},
	}

	assert.Nil(t, KeyFor(model.GroupingNone, results))
	assert.Equal(t, "Energy", KeyFor(model.GroupingSector, results)(Entry{ID: "B"}))
	assert.Equal(t, "Q1", KeyFor(model.GroupingSize, results)(Entry{ID: "A"}))
	assert.Equal(t, "Q3", KeyFor(model.GroupingSize, results)(Entry{ID: "B"}))
}

func TestSummarize(t *testing.T) {
	results := []model.CompanyResult{
		{Ticker: "A", Sector: "Tech", Scores: model.ScoreVector{Historical: 0.1, Transaction: 0.4}, RawScore: 0.2, NormalizedScore: ptrFloat64(1)},
		{Ticker: "B", Sector: "Tech", Scores: model.ScoreVector{Historical: 0.3, Transaction: -0.2}, RawScore: 0.4},
		{Ticker: "C", Sector: "Energy", Scores: model.ScoreVector{Utilization: 0.5}, RawScore: 0.1, NormalizedScore: ptrFloat64(0)},
		{Ticker: "D", Sector: "Energy", Error: "invalid ebitda: must be positive, got 0"},
	}

	got := Summarize(results, SummaryKey(model.GroupingSector, results))
	require.Len(t, got, 2)

	energy := got[0]
	assert.Equal(t, "Energy", energy.Key)
	assert.Equal(t, 1, energy.Count)
	assert.InDelta(t, 0.5, energy.Utilization, 1e-12)
	require.NotNil(t, energy.NormalizedScore)
	assert.Equal(t, 0.0, *energy.NormalizedScore)

	tech := got[1]
	assert.Equal(t, "Tech", tech.Key)
	assert.Equal(t, 2, tech.Count)
	assert.InDelta(t, 0.2, tech.Historical, 1e-12)
	assert.InDelta(t, 0.1, tech.Transaction, 1e-12)
	assert.InDelta(t, 0.3, tech.RawScore, 1e-12)
	require.NotNil(t, tech.NormalizedScore)
	assert.Equal(t, 1.0, *tech.NormalizedScore)
}

func TestSummarize_SizeAndAll(t *testing.T) {
	results := []model.CompanyResult{
		{Ticker: "A", EnterpriseValue: 10, RawScore: 0.2},
		{Ticker: "B", EnterpriseValue: 20, RawScore: 0.4},
		{Ticker: "C", EnterpriseValue: 30, RawScore: 0.6},
		{Ticker: "D", EnterpriseValue: 40, RawScore: 0.8},
	}

	bySize := Summarize(results, SummaryKey(model.GroupingSize, results))
	require.Len(t, bySize, 4)
	assert.Equal(t, "Q1", bySize[0].Key)
	assert.InDelta(t, 0.2, bySize[0].RawScore, 1e-12)
	assert.Nil(t, bySize[0].NormalizedScore)

	all := Summarize(results, SummaryKey(model.GroupingNone, results))
	require.Len(t, all, 1)
	assert.Equal(t, 4, all[0].Count)
	assert.InDelta(t, 0.5, all[0].RawScore, 1e-12)
}

package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Grouping selects how a cohort is partitioned before normalization.
type Grouping string

const (
	GroupingNone   Grouping = "none"   // whole cohort
	GroupingSector Grouping = "sector" // one partition per sector
	GroupingSize   Grouping = "size"   // enterprise-value quartiles
)

// ParseGrouping converts a user-supplied grouping name. An empty string means GroupingNone.
func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(strings.ToLower(strings.TrimSpace(s))); g {
	case "", GroupingNone:
		return GroupingNone, nil
	case GroupingSector, GroupingSize:
		return g, nil
	default:
		return "", eris.Errorf("model: unknown grouping %q (want none, sector or size)", s)
	}
}

// CompanyResult is the scoring outcome for one company. Failed companies carry
// Error and zero scores.
type CompanyResult struct {
	Ticker          string      `json:"ticker"`
	Name            string      `json:"name"`
	Sector          string      `json:"sector"`
	EnterpriseValue float64     `json:"enterprise_value"`
	Scores          ScoreVector `json:"scores"`
	RawScore        float64     `json:"raw_score"`

	// NormalizedScore is relative to the partition named by Group. It is nil
	// for failed companies and for members of a degenerate partition.
	NormalizedScore *float64 `json:"normalized_score,omitempty"`
	Group           string   `json:"group,omitempty"`

	Error string `json:"error,omitempty"`
}

// Failed reports whether the company could not be scored.
func (r CompanyResult) Failed() bool {
	return r.Error != ""
}

// FailedResult builds a CompanyResult for a company that could not be scored.
func FailedResult(p CompanyProfile, err error) CompanyResult {
	return CompanyResult{
		Ticker:          p.Ticker,
		Name:            p.Name,
		Sector:          p.Sector,
		EnterpriseValue: p.EnterpriseValue,
		Error:           err.Error(),
	}
}

// PartitionStats describes one normalization partition.
type PartitionStats struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Error string  `json:"error,omitempty"`
}

// Cohort is the set of companies handed to a scoring run. Failures holds
// companies whose input could not be loaded.
type Cohort struct {
	AsOf     time.Time        `json:"as_of,omitempty"`
	Profiles []CompanyProfile `json:"profiles"`
	Failures []CompanyResult  `json:"failures,omitempty"`
}

// ScoreRun is a complete scoring run over a cohort.
type ScoreRun struct {
	ID         string           `json:"id"`
	AsOf       time.Time        `json:"as_of"`
	Grouping   Grouping         `json:"grouping"`
	Companies  int              `json:"companies"`
	Failed     int              `json:"failed"`
	Results    []CompanyResult  `json:"results,omitempty"`
	Partitions []PartitionStats `json:"partitions,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Succeeded returns the results that were scored without error.
func (r *ScoreRun) Succeeded() []CompanyResult {
	var out []CompanyResult
	for _, res := range r.Results {
		if !res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Failures returns the results that carry an error.
func (r *ScoreRun) Failures() []CompanyResult {
	var out []CompanyResult
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Package model defines the domain types shared by the scoring, cohort, loader and store packages.
package model

import "time"

// DebtInstrument is one outstanding debt instrument of a company.
type DebtInstrument struct {
	OutstandingAmount    float64   `json:"outstanding_amount"`
	DefaultProbability1Y float64   `json:"one_year_default_probability"` // 0.0-1.0
	MaturityDate         time.Time `json:"maturity_date"`
}

// CreditEvent is a single credit issuance event.
type CreditEvent struct {
	IssueDate time.Time `json:"issue_date"`
	Amount    float64   `json:"amount"`
}

// CompanyProfile holds the financial inputs for scoring one company.
// Profiles are treated as read-only once loaded.
type CompanyProfile struct {
	Ticker          string  `json:"ticker"`
	Name            string  `json:"name"`
	Sector          string  `json:"sector"`
	EnterpriseValue float64 `json:"enterprise_value"`
	TotalDebt       float64 `json:"total_debt"`
	EBITDA          float64 `json:"ebitda"`
	MaxLeverage     float64 `json:"max_leverage,omitempty"` // 0 = use the configured default

	// CashFlows is ordered oldest to newest.
	CashFlows       []float64 `json:"cash_flows"`
	CashFlowWeights []float64 `json:"cash_flow_weights,omitempty"`

	DebtInstruments []DebtInstrument `json:"debt_instruments"`
	CreditEvents    []CreditEvent    `json:"credit_events"`
}

// ScoreVector holds the five OCCR sub-scores for one company.
type ScoreVector struct {
	Historical       float64 `json:"historical"`        // 0.0-1.0
	StressedSolvency float64 `json:"stressed_solvency"` // 0.0-1.0, empirical probability
	Utilization      float64 `json:"utilization"`       // policy dependent, see scorer.Utilization
	Transaction      float64 `json:"transaction"`       // -1.0-1.0
	Clustering       float64 `json:"clustering"`        // 0.0-1.0
}

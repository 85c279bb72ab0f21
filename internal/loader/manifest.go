// Package loader reads a cohort manifest and the per-company debt-instrument
// and credit-event tables it references.
package loader

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest is the top-level cohort file.
type Manifest struct {
	AsOf      *Date          `yaml:"as_of"`
	Companies []CompanyEntry `yaml:"companies"`
}

// CompanyEntry describes one company. Table paths are relative to the
// manifest directory. Inline rows are appended after rows read from files.
type CompanyEntry struct {
	Ticker          string  `yaml:"ticker"`
	Name            string  `yaml:"name"`
	Sector          string  `yaml:"sector"`
	EnterpriseValue Money   `yaml:"enterprise_value"`
	TotalDebt       Money   `yaml:"total_debt"`
	EBITDA          Money   `yaml:"ebitda"`
	MaxLeverage     float64 `yaml:"max_leverage"`

	CashFlows       []Money   `yaml:"cash_flows"`
	CashFlowWeights []float64 `yaml:"cash_flow_weights"`

	DebtInstruments string `yaml:"debt_instruments"`
	CreditEvents    string `yaml:"credit_events"`
	Sheet           string `yaml:"sheet"`

	DebtInstrumentRows []DebtRow  `yaml:"debt_instrument_rows"`
	CreditEventRows    []EventRow `yaml:"credit_event_rows"`
}

// DebtRow is an inline debt instrument.
type DebtRow struct {
	OutstandingAmount    Money       `yaml:"outstanding_amount"`
	DefaultProbability1Y Probability `yaml:"one_year_default_probability"`
	MaturityDate         Date        `yaml:"maturity_date"`
}

// EventRow is an inline credit event.
type EventRow struct {
	IssueDate Date  `yaml:"issue_date"`
	Amount    Money `yaml:"amount"`
}

// ParseManifest decodes and checks a manifest. Tickers must be present and
// unique (case-insensitive).
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "loader: parse manifest")
	}

	if len(m.Companies) == 0 {
		return nil, eris.New("loader: manifest lists no companies")
	}

	seen := make(map[string]int, len(m.Companies))
	for i := range m.Companies {
		c := &m.Companies[i]
		c.Ticker = strings.TrimSpace(c.Ticker)
		if c.Ticker == "" {
			return nil, eris.Errorf("loader: company %d has no ticker", i+1)
		}
		key := strings.ToUpper(c.Ticker)
		if prev, dup := seen[key]; dup {
			return nil, eris.Errorf("loader: duplicate ticker %q (companies %d and %d)", c.Ticker, prev+1, i+1)
		}
		seen[key] = i
	}

	return &m, nil
}

// ReadManifest reads and parses a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read manifest %s", path)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: %s", path)
	}
	return m, nil
}

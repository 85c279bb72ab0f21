package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeXLSX(t *testing.T, dir, name, sheetName string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(filepath.Join(dir, name)))
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
as_of: 31/12/2024
companies:
  - ticker: ACME
    name: Acme Corp
    sector: Industrials
    enterprise_value: "2,400,000,000"
    total_debt: 800000000
    ebitda: 600000000
    max_leverage: 3.25
    cash_flows: [120, "-30", "1,090"]
    debt_instruments: acme_debt.xlsx
    sheet: Debt
`))
	require.NoError(t, err)
	require.NotNil(t, m.AsOf)
	assert.True(t, date(2024, time.December, 31).Equal(m.AsOf.Time))
	require.Len(t, m.Companies, 1)

	c := m.Companies[0]
	assert.Equal(t, "ACME", c.Ticker)
	assert.InDelta(t, 2.4e9, c.EnterpriseValue.Float64(), 1e-3)
	assert.Equal(t, 3.25, c.MaxLeverage)
	require.Len(t, c.CashFlows, 3)
	assert.Equal(t, -30.0, c.CashFlows[1].Float64())
	assert.Equal(t, 1090.0, c.CashFlows[2].Float64())
	assert.Equal(t, "Debt", c.Sheet)
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"not yaml", "companies: [", "loader: parse manifest"},
		{"no companies", "as_of: 2024-01-01\n", "lists no companies"},
		{"missing ticker", "companies:\n  - name: Nameless\n", "company 1 has no ticker"},
		{"duplicate ticker", "companies:\n  - ticker: ACME\n  - ticker: acme\n", `duplicate ticker "acme"`},
		{"bad amount", "companies:\n  - ticker: ACME\n    ebitda: lots\n", "invalid amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCohort(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, dir, "acme_debt.xlsx", "Debt", [][]string{
		{"Outstanding Amount", "One Year Default Probability", "Maturity Date"},
		{"100", "0.05", "31/12/2026"},
		{"200", "2%", "30/06/2027"},
	})
	writeFile(t, dir, "acme_events.csv", "Issue Date,Amount\n01/01/2024,100\n11/01/2024,50\n")
	writeFile(t, dir, "globex_debt.csv", "amount,maturity\n10,2026-01-01\n")
	manifest := writeFile(t, dir, "cohort.yaml", `
as_of: 2024-12-31
companies:
  - ticker: ACME
    name: Acme Corp
    sector: Industrials
    enterprise_value: 1000
    total_debt: 300
    ebitda: 120
    cash_flows: [10, 20, 30]
    debt_instruments: acme_debt.xlsx
    credit_events: acme_events.csv
    sheet: Debt
  - ticker: GLBX
    name: Globex
    sector: Energy
    enterprise_value: 500
    total_debt: 10
    ebitda: 50
    debt_instruments: globex_debt.csv
  - ticker: INIT
    sector: Energy
    enterprise_value: 900
    total_debt: 100
    ebitda: 80
    debt_instrument_rows:
      - outstanding_amount: "1,000"
        one_year_default_probability: 1%
        maturity_date: 2027-01-01
    credit_event_rows:
      - issue_date: 05/03/2024
        amount: 25
  - ticker: MISS
    enterprise_value: 100
    debt_instruments: nowhere.xlsx
`)

	c, err := LoadCohort(context.Background(), manifest)
	require.NoError(t, err)
	assert.True(t, date(2024, time.December, 31).Equal(c.AsOf))

	require.Len(t, c.Profiles, 2)
	acme := c.Profiles[0]
	assert.Equal(t, "ACME", acme.Ticker)
	require.Len(t, acme.DebtInstruments, 2)
	assert.InDelta(t, 0.02, acme.DebtInstruments[1].DefaultProbability1Y, 1e-12)
	require.Len(t, acme.CreditEvents, 2)
	assert.Equal(t, []float64{10, 20, 30}, acme.CashFlows)

	inline := c.Profiles[1]
	assert.Equal(t, "INIT", inline.Ticker)
	require.Len(t, inline.DebtInstruments, 1)
	assert.Equal(t, 1000.0, inline.DebtInstruments[0].OutstandingAmount)
	require.Len(t, inline.CreditEvents, 1)
	assert.True(t, date(2024, time.March, 5).Equal(inline.CreditEvents[0].IssueDate))

	require.Len(t, c.Failures, 2)
	assert.Equal(t, "GLBX", c.Failures[0].Ticker)
	assert.Equal(t, "Energy", c.Failures[0].Sector)
	assert.Contains(t, c.Failures[0].Error, "missing required column")
	assert.Equal(t, "MISS", c.Failures[1].Ticker)
	assert.Contains(t, c.Failures[1].Error, "xlsx: open file")
}

func TestLoadCohort_NoDebtInstruments(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "cohort.yaml", "companies:\n  - ticker: EMPTY\n    enterprise_value: 10\n")

	c, err := LoadCohort(context.Background(), manifest)
	require.NoError(t, err)
	assert.True(t, c.AsOf.IsZero())
	assert.Empty(t, c.Profiles)
	require.Len(t, c.Failures, 1)
	assert.Contains(t, c.Failures[0].Error, "no debt instruments")
}

func TestLoadCohort_MissingManifest(t *testing.T) {
	_, err := LoadCohort(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader: read manifest")
}

func TestLoadCohort_Cancelled(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "cohort.yaml", "companies:\n  - ticker: A\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadCohort(ctx, manifest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestCompanyEntryProfile_MissingFields(t *testing.T) {
	const base = `
companies:
  - ticker: ACME
    enterprise_value: 1000
    total_debt: 300
    ebitda: 120
    debt_instrument_rows:
      - {outstanding_amount: 100, one_year_default_probability: 5%, maturity_date: 31/12/2026}
`
	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{"total debt", `
companies:
  - ticker: ACME
    enterprise_value: 1000
    ebitda: 120
    debt_instrument_rows:
      - {outstanding_amount: 100, one_year_default_probability: 5%, maturity_date: 31/12/2026}
`, "total_debt"},
		{"enterprise value", `
companies:
  - ticker: ACME
    total_debt: 300
    ebitda: 120
    debt_instrument_rows:
      - {outstanding_amount: 100, one_year_default_probability: 5%, maturity_date: 31/12/2026}
`, "enterprise_value"},
		{"ebitda", `
companies:
  - ticker: ACME
    enterprise_value: 1000
    total_debt: 300
    debt_instrument_rows:
      - {outstanding_amount: 100, one_year_default_probability: 5%, maturity_date: 31/12/2026}
`, "ebitda"},
		{"outstanding amount", `
companies:
  - ticker: ACME
    enterprise_value: 1000
    total_debt: 300
    ebitda: 120
    debt_instrument_rows:
      - {one_year_default_probability: 5%, maturity_date: 31/12/2026}
`, "debt_instrument_rows[0].outstanding_amount"},
		{"default probability", `
companies:
  - ticker: ACME
    enterprise_value: 1000
    total_debt: 300
    ebitda: 120
    debt_instrument_rows:
      - {outstanding_amount: 100, maturity_date: 31/12/2026}
      - {outstanding_amount: 100, one_year_default_probability: ~, maturity_date: 31/12/2026}
`, "debt_instrument_rows[0].one_year_default_probability"},
		{"maturity date", `
companies:
  - ticker: ACME
    enterprise_value: 1000
    total_debt: 300
    ebitda: 120
    debt_instrument_rows:
      - {outstanding_amount: 100, one_year_default_probability: 5%}
`, "debt_instrument_rows[0].maturity_date"},
		{"event amount", base + `    credit_event_rows:
      - {issue_date: 01/01/2024}
`, "credit_event_rows[0].amount"},
		{"event date", base + `    credit_event_rows:
      - {amount: 10}
`, "credit_event_rows[0].issue_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.doc))
			require.NoError(t, err)

			c, err := m.Cohort(context.Background(), t.TempDir())
			require.NoError(t, err)
			assert.Empty(t, c.Profiles)
			require.Len(t, c.Failures, 1)
			assert.Equal(t, "ACME", c.Failures[0].Ticker)
			assert.Contains(t, c.Failures[0].Error, "invalid "+tt.wantField+": missing")
		})
	}

	m, err := ParseManifest([]byte(base))
	require.NoError(t, err)
	p, err := m.Companies[0].Profile(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 300.0, p.TotalDebt)
	assert.InDelta(t, 0.05, p.DebtInstruments[0].DefaultProbability1Y, 1e-12)
}

func TestCompanyEntryProfile_ExplicitZeroDebt(t *testing.T) {
	m, err := ParseManifest([]byte(`
companies:
  - ticker: CASH
    enterprise_value: 1000
    total_debt: 0
    ebitda: 120
    debt_instrument_rows:
      - {outstanding_amount: 0, one_year_default_probability: 0, maturity_date: 31/12/2026}
`))
	require.NoError(t, err)

	p, err := m.Companies[0].Profile(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, p.TotalDebt)
	require.Len(t, p.DebtInstruments, 1)
}

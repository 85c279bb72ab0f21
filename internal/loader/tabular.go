package loader

import (
	"fmt"
	"strings"

	"github.com/sells-group/occr-cli/internal/model"
)

type column struct {
	name    string
	aliases []string
}

var (
	colOutstanding = column{name: "outstanding_amount", aliases: []string{"outstanding_amount", "amount_outstanding", "outstanding"}}
	colDefaultProb = column{name: "one_year_default_probability", aliases: []string{"one_year_default_probability", "pd_1y", "1y_default_probability", "default_probability"}}
	colMaturity    = column{name: "maturity_date", aliases: []string{"maturity_date", "maturity"}}
	colIssueDate   = column{name: "issue_date", aliases: []string{"issue_date", "date"}}
	colEventAmount = column{name: "amount", aliases: []string{"outstanding_amount", "amount"}}
)

// normalizeHeader lowercases a header cell and folds runs of spaces, dashes
// and underscores into a single underscore.
func normalizeHeader(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// locateColumns maps each required column to its index in header.
func locateColumns(header []string, field string, cols ...column) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	out := make(map[string]int, len(cols))
	var missing []string
	for _, c := range cols {
		found := false
		for _, alias := range c.aliases {
			if i, ok := index[alias]; ok {
				out[c.name] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, model.NewValidationError(field, "missing required column(s) %s (header: %s)",
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ParseDebtRows converts a debt-instrument table (header first) into instruments.
// Blank rows are skipped. Row numbers in errors are 1-based and include the header.
func ParseDebtRows(rows [][]string) ([]model.DebtInstrument, error) {
	if len(rows) == 0 {
		return nil, model.NewValidationError("debt_instruments", "table has no header row")
	}
	cols, err := locateColumns(rows[0], "debt_instruments", colOutstanding, colDefaultProb, colMaturity)
	if err != nil {
		return nil, err
	}

	var out []model.DebtInstrument
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rowField := fmt.Sprintf("debt_instruments row %d", i+2)

		amount, err := ParseAmount(cell(row, cols[colOutstanding.name]))
		if err != nil {
			return nil, model.NewValidationError(rowField+" "+colOutstanding.name, "%v", err)
		}
		pd, err := ParseProbability(cell(row, cols[colDefaultProb.name]))
		if err != nil {
			return nil, model.NewValidationError(rowField+" "+colDefaultProb.name, "%v", err)
		}
		maturity, err := ParseDate(cell(row, cols[colMaturity.name]))
		if err != nil {
			return nil, model.NewValidationError(rowField+" "+colMaturity.name, "%v", err)
		}

		out = append(out, model.DebtInstrument{
			OutstandingAmount:    amount,
			DefaultProbability1Y: pd,
			MaturityDate:         maturity,
		})
	}
	return out, nil
}

// ParseEventRows converts a credit-event table (header first) into events.
func ParseEventRows(rows [][]string) ([]model.CreditEvent, error) {
	if len(rows) == 0 {
		return nil, model.NewValidationError("credit_events", "table has no header row")
	}
	cols, err := locateColumns(rows[0], "credit_events", colIssueDate, colEventAmount)
	if err != nil {
		return nil, err
	}

	var out []model.CreditEvent
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rowField := fmt.Sprintf("credit_events row %d", i+2)

		issued, err := ParseDate(cell(row, cols[colIssueDate.name]))
		if err != nil {
			return nil, model.NewValidationError(rowField+" "+colIssueDate.name, "%v", err)
		}
		amount, err := ParseAmount(cell(row, cols[colEventAmount.name]))
		if err != nil {
			return nil, model.NewValidationError(rowField+" "+colEventAmount.name, "%v", err)
		}

		out = append(out, model.CreditEvent{IssueDate: issued, Amount: amount})
	}
	return out, nil
}

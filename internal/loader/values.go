package loader

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Accepted date layouts. Slash and dash forms are day/month/year.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
}

// Excel stores dates as days since 1899-12-30.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses a day/month/year or ISO date. A plain number is treated
// as an Excel serial date. The result is a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, eris.New("loader: empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 2958466 {
		return excelEpoch.AddDate(0, 0, int(serial)), nil
	}

	return time.Time{}, eris.Errorf("loader: unrecognized date %q (want DD/MM/YYYY or YYYY-MM-DD)", s)
}

// ParseAmount parses a monetary amount. Thousands separators, currency
// symbols and spaces are ignored; "(1,000)" is negative.
func ParseAmount(s string) (float64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	clean := strings.NewReplacer(",", "", "$", "", " ", "", "_", "").Replace(raw)
	negative := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}
	if clean == "" {
		return decimal.Zero, eris.New("loader: empty amount")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, eris.Errorf("loader: invalid amount %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseProbability parses a probability given as a fraction ("0.05") or a
// percentage ("5%").
func ParseProbability(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, eris.New("loader: empty probability")
	}

	clean, percent := strings.CutSuffix(raw, "%")
	d, err := decimal.NewFromString(strings.TrimSpace(clean))
	if err != nil {
		return 0, eris.Errorf("loader: invalid probability %q", raw)
	}
	if percent {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d.InexactFloat64(), nil
}

// Money is a monetary YAML scalar. It accepts plain numbers and strings with
// thousands separators such as "2,400,000,000".
type Money struct {
	decimal.Decimal
	set bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Money) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("loader: line %d: amount must be a scalar", node.Line)
	}
	d, err := parseDecimal(node.Value)
	if err != nil {
		return eris.Wrapf(err, "loader: line %d", node.Line)
	}
	m.Decimal = d
	m.set = true
	return nil
}

// IsSet reports whether the amount was present in the document.
func (m Money) IsSet() bool {
	return m.set
}

// Float64 returns the amount as a float64.
func (m Money) Float64() float64 {
	return m.InexactFloat64()
}

// Date is a YAML date scalar parsed with ParseDate.
type Date struct {
	time.Time
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("loader: line %d: date must be a scalar", node.Line)
	}
	t, err := ParseDate(node.Value)
	if err != nil {
		return eris.Wrapf(err, "loader: line %d", node.Line)
	}
	d.Time = t
	return nil
}

// Probability is a YAML probability scalar parsed with ParseProbability.
type Probability struct {
	value float64
	set   bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Probability) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("loader: line %d: probability must be a scalar", node.Line)
	}
	v, err := ParseProbability(node.Value)
	if err != nil {
		return eris.Wrapf(err, "loader: line %d", node.Line)
	}
	p.value, p.set = v, true
	return nil
}

// Float64 returns the probability as a fraction.
func (p Probability) Float64() float64 {
	return p.value
}

// IsSet reports whether the probability was present in the document.
func (p Probability) IsSet() bool {
	return p.set
}

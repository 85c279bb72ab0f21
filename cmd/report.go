package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/occr-cli/internal/cohort"
	"github.com/sells-group/occr-cli/internal/model"
)

// Output formats.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
	formatXLSX  = "xlsx"
)

// scoreReport is everything the score command prints.
type scoreReport struct {
	Run       *model.ScoreRun       `json:"run"`
	SummaryBy model.Grouping        `json:"summary_by,omitempty"`
	Summaries []cohort.GroupSummary `json:"summaries,omitempty"`
}

var resultHeader = []string{
	"ticker", "name", "sector", "enterprise_value",
	"historical", "stressed_solvency", "utilization", "transaction", "clustering",
	"raw_occr", "normalized_occr", "group", "error",
}

var summaryHeader = []string{
	"group", "count",
	"historical", "stressed_solvency", "utilization", "transaction", "clustering",
	"raw_occr", "normalized_occr",
}

// writeReport renders the report in the given format to outputPath, or
// stdout when outputPath is empty. XLSX output requires a path.
func writeReport(rep scoreReport, format, outputPath string) error {
	if format == formatXLSX {
		if outputPath == "" {
			return eris.New("score: --output is required for xlsx format")
		}
		return writeReportXLSX(rep, outputPath)
	}

	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case formatTable:
		return writeReportTable(w, rep)
	case formatCSV:
		return writeReportCSV(w, rep)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rep), "score: write json")
	default:
		return eris.Errorf("score: unsupported format %q", format)
	}
}

func resultRow(r model.CompanyResult) []string {
	if r.Failed() {
		return []string{r.Ticker, r.Name, r.Sector, formatAmount(r.EnterpriseValue),
			"", "", "", "", "", "", "", "", r.Error}
	}
	return []string{
		r.Ticker, r.Name, r.Sector, formatAmount(r.EnterpriseValue),
		formatScore(r.Scores.Historical),
		formatScore(r.Scores.StressedSolvency),
		formatScore(r.Scores.Utilization),
		formatScore(r.Scores.Transaction),
		formatScore(r.Scores.Clustering),
		formatScore(r.RawScore),
		formatOptional(r.NormalizedScore),
		r.Group,
		"",
	}
}

func summaryRow(s cohort.GroupSummary) []string {
	return []string{
		s.Key, strconv.Itoa(s.Count),
		formatScore(s.Historical),
		formatScore(s.StressedSolvency),
		formatScore(s.Utilization),
		formatScore(s.Transaction),
		formatScore(s.Clustering),
		formatScore(s.RawScore),
		formatOptional(s.NormalizedScore),
	}
}

func writeReportTable(out io.Writer, rep scoreReport) error {
	run := rep.Run
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Run %s  as of %s  grouping %s\n\n", truncateID(run.ID), run.AsOf.Format("2006-01-02"), run.Grouping)
	_, _ = fmt.Fprintln(w, "TICKER\tNAME\tSECTOR\tEV\tHIST\tSTRESS\tUTIL\tTXN\tCLUST\tRAW\tNORM\tGROUP")
	for _, r := range run.Succeeded() {
		row := resultRow(r)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row[0], truncate(row[1], 30), row[2], row[3], row[4], row[5], row[6], row[7], row[8], row[9], row[10], row[11])
	}

	if len(run.Partitions) > 0 {
		_, _ = fmt.Fprintln(w, "\nPARTITION\tCOUNT\tMIN\tMAX\tNOTE")
		for _, p := range run.Partitions {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", p.Key, p.Count, formatScore(p.Min), formatScore(p.Max), p.Error)
		}
	}

	if failures := run.Failures(); len(failures) > 0 {
		_, _ = fmt.Fprintf(w, "\nFAILED (%d)\tERROR\n", len(failures))
		for _, r := range failures {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", r.Ticker, r.Error)
		}
	}

	if len(rep.Summaries) > 0 {
		_, _ = fmt.Fprintf(w, "\nSUMMARY BY %s\tCOUNT\tHIST\tSTRESS\tUTIL\tTXN\tCLUST\tRAW\tNORM\n", rep.SummaryBy)
		for _, s := range rep.Summaries {
			row := summaryRow(s)
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				row[0], row[1], row[2], row[3], row[4], row[5], row[6], row[7], row[8])
		}
	}

	return eris.Wrap(w.Flush(), "score: write table")
}

// writeReportCSV writes the per-company rows only. Summaries are available
// through the table, json and xlsx formats.
func writeReportCSV(w io.Writer, rep scoreReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	for _, r := range rep.Run.Results {
		if err := cw.Write(resultRow(r)); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "score: flush CSV")
}

func writeReportXLSX(rep scoreReport, path string) error {
	f := xlsx.NewFile()

	if err := addSheet(f, "Results", resultHeader, len(rep.Run.Results), func(i int) []string {
		return resultRow(rep.Run.Results[i])
	}); err != nil {
		return err
	}

	partitionHeader := []string{"partition", "count", "min", "max", "note"}
	if err := addSheet(f, "Partitions", partitionHeader, len(rep.Run.Partitions), func(i int) []string {
		p := rep.Run.Partitions[i]
		return []string{p.Key, strconv.Itoa(p.Count), formatScore(p.Min), formatScore(p.Max), p.Error}
	}); err != nil {
		return err
	}

	if len(rep.Summaries) > 0 {
		if err := addSheet(f, "Summary", summaryHeader, len(rep.Summaries), func(i int) []string {
			return summaryRow(rep.Summaries[i])
		}); err != nil {
			return err
		}
	}

	return eris.Wrapf(f.Save(path), "score: save xlsx %s", path)
}

func addSheet(f *xlsx.File, name string, header []string, n int, row func(int) []string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "score: add sheet %s", name)
	}
	addRow(sheet, header)
	for i := range n {
		addRow(sheet, row(i))
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

var moneyPrinter = message.NewPrinter(language.English)

// formatAmount renders a monetary amount rounded to whole units with
// thousands separators.
func formatAmount(v float64) string {
	return moneyPrinter.Sprintf("%d", decimal.NewFromFloat(v).Round(0).IntPart())
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatScore(*v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

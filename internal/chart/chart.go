package chart

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/gridbill/gridbill/internal/model"
)

// Row is one charted invoice: the billing period plus the numeric series.
type Row struct {
	Period     string
	Usage      float64
	Tier1Units float64
	Tier2Units float64
	Tier3Units float64
	GrandTotal float64
	HasTotal   bool
}

// ReadRows loads chartable rows from an extraction CSV, sorted by period.
// Failed rows and rows without a billing period cannot be charted; the second
// return value counts them so callers can report the gap.
func ReadRows(path string) ([]Row, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("%s: empty CSV", path)
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[name] = i
	}
	periodCol, ok := idx[string(model.FieldBillingPeriod)]
	if !ok {
		return nil, 0, fmt.Errorf("%s: no %s column", path, model.FieldBillingPeriod)
	}
	statusCol, ok := idx["extraction_status"]
	if !ok {
		return nil, 0, fmt.Errorf("%s: no extraction_status column", path)
	}

	cell := func(rec []string, f model.Field) string {
		i, ok := idx[string(f)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	skipped := 0
	for _, rec := range records[1:] {
		if periodCol >= len(rec) || statusCol >= len(rec) {
			skipped++
			continue
		}
		period := strings.TrimSpace(rec[periodCol])
		if period == "" || rec[statusCol] == string(model.StatusFailed) {
			skipped++
			continue
		}

		row := Row{
			Period:     period,
			Usage:      number(cell(rec, model.FieldUsage)),
			Tier1Units: number(cell(rec, model.FieldTier1Units)),
			Tier2Units: number(cell(rec, model.FieldTier2Units)),
			Tier3Units: number(cell(rec, model.FieldTier3Units)),
		}
		if s := cell(rec, model.FieldGrandTotal); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				row.GrandTotal = v
				row.HasTotal = true
			}
		}
		rows = append(rows, row)
	}

	// Canonical YYYY-MM periods sort correctly as strings
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
	return rows, skipped, nil
}

func number(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Render writes a self-contained HTML page charting usage per billing
// period: stacked tier units when the invoices carry tiers, plain metered
// usage otherwise, with the grand total on a second axis.
func Render(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no chartable rows")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "gridbill usage"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Electricity usage by billing period",
			Subtitle: subtitle(rows),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Units"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Amount", Type: "value", Position: "right"})

	periods := make([]string, len(rows))
	for i, r := range rows {
		periods[i] = r.Period
	}
	line.SetXAxis(periods)

	if hasTiers(rows) {
		for tier := 1; tier <= 3; tier++ {
			line.AddSeries(fmt.Sprintf("Tier %d units", tier), tierData(rows, tier),
				charts.WithLineChartOpts(opts.LineChart{Stack: "tiers"}),
				charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.3}),
			)
		}
	} else {
		line.AddSeries("Usage", usageData(rows))
	}

	if hasTotals(rows) {
		line.AddSeries("Grand total", totalData(rows),
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}),
		)
	}

	return line.Render(w)
}

// WriteHTML writes the chart page to path.
func WriteHTML(path string, rows []Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return Render(f, rows)
}

// subtitle sums usage and billed amounts across the charted periods.
func subtitle(rows []Row) string {
	var usage, billed float64
	for _, r := range rows {
		usage += r.Usage
		billed += r.GrandTotal
	}
	return fmt.Sprintf("Total usage: %.0f units, total billed: %.2f", usage, billed)
}

func hasTiers(rows []Row) bool {
	for _, r := range rows {
		if r.Tier1Units > 0 || r.Tier2Units > 0 || r.Tier3Units > 0 {
			return true
		}
	}
	return false
}

func hasTotals(rows []Row) bool {
	for _, r := range rows {
		if r.HasTotal {
			return true
		}
	}
	return false
}

func tierData(rows []Row, tier int) []opts.LineData {
	data := make([]opts.LineData, len(rows))
	for i, r := range rows {
		v := r.Tier1Units
		switch tier {
		case 2:
			v = r.Tier2Units
		case 3:
			v = r.Tier3Units
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}

func usageData(rows []Row) []opts.LineData {
	data := make([]opts.LineData, len(rows))
	for i, r := range rows {
		data[i] = opts.LineData{Value: r.Usage}
	}
	return data
}

// totalData leaves gaps where a row has no grand total so the second axis
// line skips those periods instead of dropping to zero.
func totalData(rows []Row) []opts.LineData {
	data := make([]opts.LineData, len(rows))
	for i, r := range rows {
		if r.HasTotal {
			data[i] = opts.LineData{Value: r.GrandTotal}
		} else {
			data[i] = opts.LineData{Value: nil}
		}
	}
	return data
}

package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agora-dev/agora/internal/sim"
)

// ChartSuggestion is a render-ready chart payload derived from the profile.
// All numbers come from the parsed data, never from generated text.
type ChartSuggestion struct {
	VisualType  string      `json:"visual_type"` // bar_chart, line_chart, stat_card
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Labels      []string    `json:"labels,omitempty"`
	Values      []float64   `json:"values,omitempty"`
	SeriesName  string      `json:"series_name,omitempty"`
	Stats       []StatEntry `json:"stats,omitempty"`
}

// StatEntry is one figure on a stat card.
type StatEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var roundChartTypes = []string{"stat_card", "bar_chart", "line_chart"}

const maxChartBuckets = 10

// SuggestChart proposes a chart for the given speaker and round. The same
// speaker and round always yield the same chart. Returns nil when the profile
// has no column the requested chart type can use.
func SuggestChart(p *Profile, agentID string, roundNumber int) *ChartSuggestion {
	if p == nil || len(p.Columns) == 0 {
		return nil
	}

	seed := fmt.Sprintf("%s_%d", agentID, roundNumber)
	visualType := roundChartTypes[sim.StableIndex(seed+"_vtype", len(roundChartTypes))]

	numCols := p.NumericColumns()
	catCols := categoricalColumns(p)

	switch visualType {
	case "stat_card":
		if len(numCols) > 0 {
			return statCard(p, numCols, seed)
		}
	case "bar_chart", "line_chart":
		if len(catCols) > 0 {
			return groupedChart(p, visualType, catCols, numCols, seed)
		}
	}
	// Fall back to whatever the profile can support.
	if len(numCols) > 0 {
		return statCard(p, numCols, seed)
	}
	if len(catCols) > 0 {
		return groupedChart(p, "bar_chart", catCols, numCols, seed)
	}
	return nil
}

func categoricalColumns(p *Profile) []string {
	var out []string
	for _, col := range p.Columns {
		if col.Dtype == "string" {
			out = append(out, col.Name)
		}
	}
	return out
}

func statCard(p *Profile, numCols []string, seed string) *ChartSuggestion {
	aggCycle := []string{"mean", "max", "min"}
	n := len(numCols)
	if n > 4 {
		n = 4
	}
	offset := sim.StableIndex(seed+"_stat", len(numCols))

	stats := make([]StatEntry, 0, n)
	for i := 0; i < n; i++ {
		name := numCols[(offset+i)%len(numCols)]
		agg := aggCycle[i%len(aggCycle)]
		s := p.NumericStats[name]
		var v float64
		switch agg {
		case "max":
			v = s.Max
		case "min":
			v = s.Min
		default:
			v = s.Mean
		}
		stats = append(stats, StatEntry{
			Label: fmt.Sprintf("%s (%s)", humanize(name), agg),
			Value: formatStat(v),
		})
	}
	return &ChartSuggestion{
		VisualType:  "stat_card",
		Title:       "Key Metrics",
		Description: "Summary statistics from the uploaded dataset.",
		Stats:       stats,
	}
}

func groupedChart(p *Profile, visualType string, catCols, numCols []string, seed string) *ChartSuggestion {
	xCol := catCols[sim.StableIndex(seed+"_cat", len(catCols))]
	yCol := ""
	if len(numCols) > 0 {
		yCol = numCols[sim.StableIndex(seed+"_num", len(numCols))]
	}

	groups := make(map[string][]float64)
	for _, row := range p.SampleRows {
		label := row[xCol]
		if label == "" || label == "NULL" {
			continue
		}
		if yCol == "" {
			groups[label] = append(groups[label], 1)
			continue
		}
		if v, err := strconv.ParseFloat(row[yCol], 64); err == nil {
			groups[label] = append(groups[label], v)
		}
	}
	if len(groups) == 0 {
		return nil
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	if len(labels) > maxChartBuckets {
		labels = labels[:maxChartBuckets]
	}

	series := "count(" + xCol + ")"
	values := make([]float64, 0, len(labels))
	for _, label := range labels {
		vs := groups[label]
		if yCol == "" {
			values = append(values, float64(len(vs)))
			continue
		}
		sum := 0.0
		for _, v := range vs {
			sum += v
		}
		values = append(values, round2(sum/float64(len(vs))))
	}
	if yCol != "" {
		series = "mean(" + yCol + ")"
	}

	title := fmt.Sprintf("%s by %s", humanize(yCol), humanize(xCol))
	desc := fmt.Sprintf("Comparing %s across %s categories.", humanize(yCol), humanize(xCol))
	if yCol == "" {
		title = fmt.Sprintf("Count by %s", humanize(xCol))
		desc = fmt.Sprintf("Row counts across %s categories.", humanize(xCol))
	}

	return &ChartSuggestion{
		VisualType:  visualType,
		Title:       title,
		Description: desc,
		Labels:      labels,
		Values:      values,
		SeriesName:  series,
	}
}

func humanize(col string) string {
	return strings.ReplaceAll(col, "_", " ")
}

func formatStat(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1000:
		return fmt.Sprintf("%.0f", v)
	case abs < 1:
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

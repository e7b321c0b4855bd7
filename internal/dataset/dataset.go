// Package dataset parses uploaded CSV files into a profile the deliberation
// can reason about: shape, column statistics, sample rows, and a text summary
// injected into generation prompts.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	maxSampleRows = 500
	summaryRows   = 5
)

// Column describes a single dataset column.
type Column struct {
	Name      string  `json:"name"`
	Dtype     string  `json:"dtype"` // "number" or "string"
	NullCount int     `json:"null_count"`
	NullPct   float64 `json:"null_pct"`
}

// NumericStats holds summary statistics for a numeric column.
type NumericStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Profile is the parsed shape of an uploaded dataset.
type Profile struct {
	Filename     string                  `json:"filename"`
	Rows         int                     `json:"rows"`
	Cols         int                     `json:"cols"`
	Columns      []Column                `json:"columns"`
	SampleRows   []map[string]string     `json:"sample_rows"`
	NumericStats map[string]NumericStats `json:"numeric_stats"`
}

// Parse reads CSV content into a Profile. The first record is taken as the
// header row. Only .csv uploads are accepted.
func Parse(r io.Reader, filename string) (*Profile, error) {
	if ext := fileExt(filename); ext != "csv" {
		return nil, fmt.Errorf("unsupported file type: .%s (use CSV)", ext)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset %s is empty", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	nulls := make([]int, len(header))
	values := make([][]float64, len(header))
	numericOK := make([]bool, len(header))
	for i := range numericOK {
		numericOK[i] = true
	}

	var samples []map[string]string
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rows+2, err)
		}
		rows++

		sample := make(map[string]string, len(header))
		for i, name := range header {
			cell := ""
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			if isNull(cell) {
				nulls[i]++
				sample[name] = "NULL"
				continue
			}
			sample[name] = cell
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				values[i] = append(values[i], v)
			} else {
				numericOK[i] = false
			}
		}
		if len(samples) < maxSampleRows {
			samples = append(samples, sample)
		}
	}

	profile := &Profile{
		Filename:     filename,
		Rows:         rows,
		Cols:         len(header),
		SampleRows:   samples,
		NumericStats: make(map[string]NumericStats),
	}
	for i, name := range header {
		dtype := "string"
		if numericOK[i] && len(values[i]) > 0 {
			dtype = "number"
			profile.NumericStats[name] = describe(values[i])
		}
		pct := 0.0
		if rows > 0 {
			pct = round1(float64(nulls[i]) / float64(rows) * 100)
		}
		profile.Columns = append(profile.Columns, Column{
			Name:      name,
			Dtype:     dtype,
			NullCount: nulls[i],
			NullPct:   pct,
		})
	}
	return profile, nil
}

// SummaryText renders the profile as a text block for generation prompts.
func (p *Profile) SummaryText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DATASET: %s\n", p.Filename)
	fmt.Fprintf(&b, "Shape: %d rows x %d columns\n\nCOLUMNS:\n", p.Rows, p.Cols)
	for _, col := range p.Columns {
		nullInfo := ""
		if col.NullCount > 0 {
			nullInfo = fmt.Sprintf(" (%d nulls, %s%%)", col.NullCount, trimFloat(col.NullPct))
		}
		fmt.Fprintf(&b, "  - %s [%s]%s\n", col.Name, col.Dtype, nullInfo)
	}

	b.WriteString("\nSAMPLE ROWS (first 5):\n")
	for i, row := range p.SampleRows {
		if i >= summaryRows {
			break
		}
		parts := make([]string, 0, len(p.Columns))
		for _, col := range p.Columns {
			parts = append(parts, fmt.Sprintf("%s=%s", col.Name, row[col.Name]))
		}
		fmt.Fprintf(&b, "  Row %d: %s\n", i+1, strings.Join(parts, ", "))
	}

	if len(p.NumericStats) > 0 {
		b.WriteString("\nNUMERIC COLUMN STATISTICS:\n")
		names := make([]string, 0, len(p.NumericStats))
		for name := range p.NumericStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := p.NumericStats[name]
			fmt.Fprintf(&b, "  %s: count=%d, mean=%s, std=%s, min=%s, max=%s\n",
				name, s.Count, trimFloat(s.Mean), trimFloat(s.Std), trimFloat(s.Min), trimFloat(s.Max))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NumericColumns returns the numeric column names in header order.
func (p *Profile) NumericColumns() []string {
	var out []string
	for _, col := range p.Columns {
		if col.Dtype == "number" {
			out = append(out, col.Name)
		}
	}
	return out
}

func fileExt(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return strings.ToLower(filename[i+1:])
	}
	return ""
}

func isNull(cell string) bool {
	switch strings.ToLower(cell) {
	case "", "null", "na", "n/a", "nan":
		return true
	}
	return false
}

func describe(values []float64) NumericStats {
	n := float64(len(values))
	sum := 0.0
	min := values[0]
	max := values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / n

	variance := 0.0
	if len(values) > 1 {
		for _, v := range values {
			d := v - mean
			variance += d * d
		}
		variance /= n - 1
	}

	return NumericStats{
		Count: len(values),
		Mean:  round2(mean),
		Std:   round2(math.Sqrt(variance)),
		Min:   round2(min),
		Max:   round2(max),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// trimFloat formats a float without trailing zeros (2.50 -> "2.5", 3.00 -> "3").
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/YuminosukeSato/estkit/metrics"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatValue(v interface{}) string {
	if f, ok := v.(float64); ok {
		return formatFloat(f)
	}
	return fmt.Sprint(v)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// renderReport prints r2, rmse and mae in that order.
func renderReport(w io.Writer, r metrics.Report) {
	table := newTable(w, "metric", "value")
	m := r.Map()
	for _, k := range []string{metrics.KeyR2, metrics.KeyRMSE, metrics.KeyMAE} {
		table.Append([]string{k, formatFloat(m[k])})
	}
	table.Render()
}

// renderParams prints a parameter map sorted by name.
func renderParams(w io.Writer, params map[string]interface{}) {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	table := newTable(w, "parameter", "value")
	for _, k := range names {
		table.Append([]string{k, formatValue(params[k])})
	}
	table.Render()
}

// renderCounts prints how many rows fell into each cluster.
func renderCounts(w io.Writer, labels []int) {
	counts := map[int]int{}
	for _, l := range labels {
		counts[l]++
	}
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	table := newTable(w, "cluster", "rows")
	for _, id := range ids {
		table.Append([]string{strconv.Itoa(id), strconv.Itoa(counts[id])})
	}
	table.Render()
}

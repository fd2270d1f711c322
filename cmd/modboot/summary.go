package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	dto "github.com/prometheus/client_model/go"

	"github.com/vyrodovalexey/modboot/internal/observability"
)

// printMetricsSummary writes one line per series of the families under
// namespace. Histograms are reported as sample count and sum.
func printMetricsSummary(out io.Writer, metrics *observability.Metrics, namespace string) {
	if metrics == nil {
		return
	}

	families, err := metrics.Registry().Gather()
	if err != nil {
		fmt.Fprintf(out, "failed to gather metrics: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tLABELS\tVALUE")
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			value, ok := metricValue(mf.GetType(), m)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", mf.GetName(), formatLabels(m.GetLabel()), value)
		}
	}
	_ = w.Flush()
}

func metricValue(typ dto.MetricType, m *dto.Metric) (string, bool) {
	switch typ {
	case dto.MetricType_COUNTER:
		return formatFloat(m.GetCounter().GetValue()), true
	case dto.MetricType_GAUGE:
		return formatFloat(m.GetGauge().GetValue()), true
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%s", h.GetSampleCount(), formatFloat(h.GetSampleSum())), true
	default:
		return "", false
	}
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return "-"
	}
	labels := make([]string, 0, len(pairs))
	for _, p := range pairs {
		labels = append(labels, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Copyright 2024 The Schedbench Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package measurements

import (
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

const histogramBins = 10

// LatencySummary holds the latency summary of one metric series
type LatencySummary struct {
	MetricName string  `json:"metricName"`
	Count      int     `json:"count"`
	Avg        float64 `json:"avg"`
	P50        float64 `json:"P50"`
	P95        float64 `json:"P95"`
	P99        float64 `json:"P99"`
	Max        float64 `json:"max"`
	// Histogram counts over equal-width bins between min and max, empty
	// when the series is degenerate
	HistogramBins   []float64 `json:"histogramBins,omitempty"`
	HistogramCounts []float64 `json:"histogramCounts,omitempty"`
}

// NewLatencySummary computes quantiles and a histogram for one series
func NewLatencySummary(input []float64, name string) LatencySummary {
	summary := LatencySummary{
		MetricName: name,
		Count:      len(input),
	}
	if len(input) == 0 {
		return summary
	}
	summary.P50, _ = stats.Percentile(input, 50)
	summary.P95, _ = stats.Percentile(input, 95)
	summary.P99, _ = stats.Percentile(input, 99)
	summary.Max, _ = stats.Max(input)
	summary.Avg, _ = stats.Mean(input)

	sorted := append([]float64(nil), input...)
	sort.Float64s(sorted)
	low, high := sorted[0], sorted[len(sorted)-1]
	if high > low {
		dividers := make([]float64, histogramBins+1)
		width := (high - low) / histogramBins
		for i := range dividers {
			dividers[i] = low + float64(i)*width
		}
		// Guard against the last divider falling below max by rounding
		dividers[histogramBins] = high
		summary.HistogramBins = dividers
		summary.HistogramCounts = stat.Histogram(nil, dividers, sorted, nil)
	}
	return summary
}

// Summarize produces one summary per metric series, in series order
func Summarize(result Result) []LatencySummary {
	summaries := make([]LatencySummary, 0, len(result.MetricNames))
	for _, name := range result.MetricNames {
		summaries = append(summaries, NewLatencySummary(result.Series[name], name))
	}
	return summaries
}

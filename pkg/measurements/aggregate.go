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
	"time"

	log "github.com/sirupsen/logrus"
)

// Result is the aggregated output of one measurement run. All series are
// equal length and index-aligned: index i in every series, in Submissions
// and in Rows refers to the same workload.
type Result struct {
	// MetricNames fixed series order
	MetricNames []string
	// Series latency values in seconds per metric name
	Series map[string][]float64
	// Submissions submission timestamps, the sort key of all series
	Submissions []time.Time
	// Rows identity and milestone timestamps per surviving workload
	Rows []WorkloadTimes
	// Discarded number of workloads dropped by the quality filter
	Discarded int
	// Total number of workloads considered
	Total int
}

// Aggregate computes latency series for every milestone set, filters out
// anomalous workloads when configured to, sorts all series in lockstep by
// submission time and applies head/tail trimming. Input order does not
// affect the output.
func Aggregate(times []WorkloadTimes, cfg Config) Result {
	result := Result{
		MetricNames: MetricNames,
		Series:      make(map[string][]float64, len(MetricNames)),
		Total:       len(times),
	}

	for i := range times {
		workloadTimes := &times[i]
		deltas := ComputeDeltas(workloadTimes)

		if cfg.SkipErroneous {
			// A pod group created before its first pod means the pod was
			// killed and replaced (e.g. spot termination), all deltas for
			// this workload are meaningless
			if workloadTimes.PodGroupCreated.Before(workloadTimes.FirstPodCreated) {
				log.Warnf("Podgroup time earlier than pod time for job %s project %s, skipping", workloadTimes.JobName, workloadTimes.ProjectName)
				result.Discarded++
				continue
			}
			if deltas[TotalPodSchedulingDecision] < 0 {
				log.Warnf("Total time to scheduling decision is negative for job %s project %s, skipping", workloadTimes.JobName, workloadTimes.ProjectName)
				result.Discarded++
				continue
			}
		}

		result.Submissions = append(result.Submissions, workloadTimes.Submit)
		result.Rows = append(result.Rows, *workloadTimes)
		for _, name := range MetricNames {
			result.Series[name] = append(result.Series[name], deltas[name])
		}
	}

	if cfg.SkipErroneous && result.Discarded > 0 {
		log.Infof("Total of %d (out of %d) workloads with errors were found and skipped", result.Discarded, result.Total)
	}

	result.sortBySubmission()
	result.trim(cfg.Head, cfg.Tail)
	return result
}

// sortBySubmission permutes all series identically so the submission series
// is non-decreasing. Stable, collection order under parallel retrieval is
// not guaranteed.
func (r *Result) sortBySubmission() {
	indices := make([]int, len(r.Submissions))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return r.Submissions[indices[i]].Before(r.Submissions[indices[j]])
	})

	r.Submissions = permuteTimes(r.Submissions, indices)
	r.Rows = permuteRows(r.Rows, indices)
	for name, series := range r.Series {
		r.Series[name] = permuteFloats(series, indices)
	}
}

// trim truncates every series to its first head entries, then independently
// to its last tail entries. Zero disables either limit.
func (r *Result) trim(head, tail int) {
	cut := func(length int) (int, int) {
		start, end := 0, length
		if head > 0 && head < end {
			end = head
		}
		if tail > 0 && tail < end-start {
			start = end - tail
		}
		return start, end
	}

	start, end := cut(len(r.Submissions))
	r.Submissions = r.Submissions[start:end]
	r.Rows = r.Rows[start:end]
	for name, series := range r.Series {
		start, end := cut(len(series))
		r.Series[name] = series[start:end]
	}
}

func permuteTimes(values []time.Time, indices []int) []time.Time {
	out := make([]time.Time, len(values))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

func permuteFloats(values []float64, indices []int) []float64 {
	out := make([]float64, len(values))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

func permuteRows(values []WorkloadTimes, indices []int) []WorkloadTimes {
	out := make([]WorkloadTimes, len(values))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

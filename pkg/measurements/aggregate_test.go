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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregateSortsBySubmission(t *testing.T) {
	// Two workloads fed in reverse submission order
	late := fakeTimes("j-late", testBase.Add(10*time.Second))
	early := fakeTimes("j-early", testBase)

	result := Aggregate([]WorkloadTimes{late, early}, Config{})

	assert.Equal(t, []time.Time{testBase, testBase.Add(10 * time.Second)}, result.Submissions)
	assert.Equal(t, "j-early", result.Rows[0].JobName)
	assert.Equal(t, "j-late", result.Rows[1].JobName)
	// Every series is equal length and permuted identically
	for _, name := range result.MetricNames {
		assert.Len(t, result.Series[name], 2)
	}
}

func TestAggregateSeriesAlignment(t *testing.T) {
	early := fakeTimes("j-early", testBase)
	late := fakeTimes("j-late", testBase.Add(10*time.Second))
	// Give the late workload a distinguishable scheduling latency
	late.PodSchedulingDecision = late.Submit.Add(30 * time.Second)

	result := Aggregate([]WorkloadTimes{late, early}, Config{})

	// Index 1 in every series refers to j-late
	assert.Equal(t, 7.0, result.Series[TotalPodSchedulingDecision][0])
	assert.Equal(t, 30.0, result.Series[TotalPodSchedulingDecision][1])
}

func TestAggregateSkipsPodGroupBeforePod(t *testing.T) {
	healthy := fakeTimes("j-ok", testBase)
	broken := fakeTimes("j-replaced", testBase.Add(time.Second))
	// Pod group created before the first pod: the pod was replaced,
	// deltas are meaningless
	broken.PodGroupCreated = broken.FirstPodCreated.Add(-10 * time.Second)

	result := Aggregate([]WorkloadTimes{healthy, broken}, Config{SkipErroneous: true})

	assert.Equal(t, 1, result.Discarded)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "j-ok", result.Rows[0].JobName)
	for _, name := range result.MetricNames {
		assert.Len(t, result.Series[name], 1)
	}

	// With the filter disabled the anomalous row is retained verbatim
	result = Aggregate([]WorkloadTimes{healthy, broken}, Config{})
	assert.Zero(t, result.Discarded)
	assert.Len(t, result.Rows, 2)
}

func TestAggregateSkipsNegativeTotal(t *testing.T) {
	broken := fakeTimes("j-skewed", testBase)
	// Scheduling decision long before submission: data inconsistency
	broken.PodSchedulingDecision = testBase.Add(-30 * time.Second)

	result := Aggregate([]WorkloadTimes{broken}, Config{SkipErroneous: true})
	assert.Equal(t, 1, result.Discarded)
	assert.Empty(t, result.Rows)
}

func TestAggregateHeadTail(t *testing.T) {
	var times []WorkloadTimes
	for i := 4; i >= 0; i-- {
		times = append(times, fakeTimes("j-"+string(rune('a'+i)), testBase.Add(time.Duration(i)*time.Minute)))
	}

	// Head keeps the earliest submitted workloads, full rows
	result := Aggregate(times, Config{Head: 2})
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "j-a", result.Rows[0].JobName)
	assert.Equal(t, "j-b", result.Rows[1].JobName)
	for _, name := range result.MetricNames {
		assert.Len(t, result.Series[name], 2)
	}

	// Tail keeps the latest
	result = Aggregate(times, Config{Tail: 2})
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "j-d", result.Rows[0].JobName)
	assert.Equal(t, "j-e", result.Rows[1].JobName)

	// Head then tail on the head-truncated series
	result = Aggregate(times, Config{Head: 3, Tail: 2})
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "j-b", result.Rows[0].JobName)
	assert.Equal(t, "j-c", result.Rows[1].JobName)
}

func TestAggregateIdempotent(t *testing.T) {
	cfg := Config{Head: 3}
	var times []WorkloadTimes
	for i := 4; i >= 0; i-- {
		times = append(times, fakeTimes("j-"+string(rune('a'+i)), testBase.Add(time.Duration(i)*time.Minute)))
	}

	once := Aggregate(times, cfg)
	twice := Aggregate(once.Rows, cfg)

	assert.Equal(t, once.Submissions, twice.Submissions)
	assert.Equal(t, once.Series, twice.Series)
	assert.Equal(t, once.Rows, twice.Rows)
}

func TestAggregateEmpty(t *testing.T) {
	// Zero surviving workloads is a valid, degenerate output
	result := Aggregate(nil, Config{SkipErroneous: true})
	assert.Zero(t, result.Total)
	assert.Empty(t, result.Submissions)
	assert.Empty(t, result.Rows)
}

func TestAggregateStableSort(t *testing.T) {
	// Equal submission times keep their input order
	first := fakeTimes("j-first", testBase)
	second := fakeTimes("j-second", testBase)

	result := Aggregate([]WorkloadTimes{first, second}, Config{})
	assert.Equal(t, "j-first", result.Rows[0].JobName)
	assert.Equal(t, "j-second", result.Rows[1].JobName)
}

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

func TestReferenceMilestoneTable(t *testing.T) {
	// Every metric has a declared reference
	for _, name := range MetricNames {
		assert.Contains(t, ReferenceMilestone, name)
	}
	// First PVC Bind references itself as shipped, its relative delta is
	// always zero
	assert.Equal(t, FirstPVCBind, ReferenceMilestone[FirstPVCBind])
	// Cumulative metrics are measured from submission
	assert.Equal(t, WorkloadSubmission, ReferenceMilestone[TotalPodSchedulingDecision])
	assert.Equal(t, WorkloadSubmission, ReferenceMilestone[TotalBackendJobCreation])
}

func TestComputeDeltas(t *testing.T) {
	times := fakeTimes("j-abc123", testBase)
	deltas := ComputeDeltas(&times)

	assert.Len(t, deltas, len(MetricNames))
	assert.Equal(t, 1.0, deltas[WorkloadCreation])       // workload - submit
	assert.Equal(t, 1.0, deltas[JobCreation])            // job - workload
	assert.Equal(t, 1.0, deltas[FirstPodCreation])       // first pod - job
	assert.Equal(t, 2.0, deltas[LastPodCreation])        // last pod - job
	assert.Equal(t, 2.0, deltas[PodGroupCreation])       // podgroup - first pod
	assert.Equal(t, 2.0, deltas[PodSchedulingDecision])  // decision - podgroup
	assert.Equal(t, 2.0, deltas[FirstEviction])          // eviction - podgroup
	assert.Equal(t, 2.0, deltas[FirstPVCBindRequest])    // bind request - podgroup
	assert.Equal(t, 0.0, deltas[FirstPVCBind])           // self-reference
	// Backend records predate the pod group by far, the negative delta is
	// real and survives the clamp
	assert.Equal(t, -4.0, deltas[BackendJobCreation])
	assert.Equal(t, 7.0, deltas[TotalPodSchedulingDecision])
	assert.Equal(t, 1.0, deltas[TotalBackendJobCreation])
}

func TestComputeDeltasSkewClamped(t *testing.T) {
	// Workload creation half a second before submission is measurement
	// noise and clamps to zero
	times := fakeTimes("j-abc123", testBase)
	times.WorkloadCreated = testBase.Add(-500 * time.Millisecond)
	deltas := ComputeDeltas(&times)
	assert.Equal(t, 0.0, deltas[WorkloadCreation])

	// Two seconds before submission is a real anomaly and is preserved
	times.WorkloadCreated = testBase.Add(-2 * time.Second)
	deltas = ComputeDeltas(&times)
	assert.Equal(t, -2.0, deltas[WorkloadCreation])
}

func TestClampSkew(t *testing.T) {
	assert.Equal(t, 0.0, clampSkew(-0.5))
	assert.Equal(t, 0.0, clampSkew(-1.0))
	assert.Equal(t, -1.5, clampSkew(-1.5))
	assert.Equal(t, 0.0, clampSkew(0))
	assert.Equal(t, 3.0, clampSkew(3))
}

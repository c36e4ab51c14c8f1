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

import "time"

// Milestone and metric names. The relative metrics share the milestone
// names, the two Total metrics are cumulative from submission.
const (
	WorkloadSubmission         = "Workload Submission"
	WorkloadCreation           = "Workload Creation"
	JobCreation                = "Job Creation"
	FirstPodCreation           = "First Pod Creation"
	LastPodCreation            = "Last Pod Creation"
	PodGroupCreation           = "Pod Group Creation"
	PodSchedulingDecision      = "Pod Scheduling Decision"
	FirstEviction              = "First Eviction"
	FirstPVCBindRequest        = "First PVC Bind Request"
	FirstPVCBind               = "First PVC Bind"
	BackendJobCreation         = "Backend Job Creation"
	TotalPodSchedulingDecision = "Total Pod Scheduling Decision"
	TotalBackendJobCreation    = "Total Backend Job Creation"
)

// firstPVCBindReference is the reference milestone of First PVC Bind. The
// table as shipped maps it to itself, so its relative delta is always zero.
// Suspected to be unintentional, kept until the intended semantics are
// confirmed. The likely correction is FirstPVCBindRequest.
const firstPVCBindReference = FirstPVCBind

// ReferenceMilestone declares the temporal predecessor of every metric.
// Relative deltas are measured against it. Immutable process-wide.
var ReferenceMilestone = map[string]string{
	WorkloadCreation:      WorkloadSubmission,
	JobCreation:           WorkloadCreation,
	FirstPodCreation:      JobCreation,
	LastPodCreation:       JobCreation,
	PodGroupCreation:      FirstPodCreation,
	PodSchedulingDecision: PodGroupCreation,
	FirstEviction:         PodGroupCreation,
	FirstPVCBindRequest:   PodGroupCreation,
	FirstPVCBind:          firstPVCBindReference,
	BackendJobCreation:    PodGroupCreation,

	TotalPodSchedulingDecision: WorkloadSubmission,
	TotalBackendJobCreation:    WorkloadSubmission,
}

// MetricNames is the fixed order metric series are produced and exported in
var MetricNames = []string{
	WorkloadCreation,
	JobCreation,
	FirstPodCreation,
	LastPodCreation,
	PodGroupCreation,
	PodSchedulingDecision,
	FirstEviction,
	FirstPVCBindRequest,
	FirstPVCBind,
	BackendJobCreation,
	TotalPodSchedulingDecision,
	TotalBackendJobCreation,
}

// MilestoneTime maps a metric or milestone name to the corresponding
// timestamp of the milestone set. The Total metrics reuse their milestone's
// timestamp, the cumulative aspect lives in the reference table.
func (w *WorkloadTimes) MilestoneTime(name string) time.Time {
	switch name {
	case WorkloadSubmission:
		return w.Submit
	case WorkloadCreation:
		return w.WorkloadCreated
	case JobCreation:
		return w.JobCreated
	case FirstPodCreation:
		return w.FirstPodCreated
	case LastPodCreation:
		return w.LastPodCreated
	case PodGroupCreation:
		return w.PodGroupCreated
	case PodSchedulingDecision, TotalPodSchedulingDecision:
		return w.PodSchedulingDecision
	case FirstEviction:
		return w.FirstEviction
	case FirstPVCBindRequest:
		return w.FirstPVCBindRequest
	case FirstPVCBind:
		return w.FirstPVCBind
	case BackendJobCreation, TotalBackendJobCreation:
		return w.BackendJobCreated
	}
	return time.Time{}
}

// ComputeDeltas derives one latency value in seconds per metric name,
// measured against the metric's reference milestone and clamped for clock
// skew.
func ComputeDeltas(w *WorkloadTimes) map[string]float64 {
	deltas := make(map[string]float64, len(MetricNames))
	for _, name := range MetricNames {
		reference := w.MilestoneTime(ReferenceMilestone[name])
		deltas[name] = clampSkew(w.MilestoneTime(name).Sub(reference).Seconds())
	}
	return deltas
}

// clampSkew absorbs sub-resolution timing noise. Small negative deltas down
// to -1s included are measurement artifacts of mixing second-accurate clocks
// and collapse to zero. Anything below -1s is a real ordering anomaly and is
// preserved.
func clampSkew(delta float64) float64 {
	if delta < 0 && delta >= -1 {
		return 0
	}
	return delta
}

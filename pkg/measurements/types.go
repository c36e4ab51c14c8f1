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
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// namespacePrefix separates the project name from the namespace it maps to
const namespacePrefix = "runai-"

// Config holds the knobs consumed by the measurement pipeline. It is threaded
// explicitly into each stage so different configurations can coexist in the
// same process.
type Config struct {
	// BackendTimes a backend record is required for every workload
	BackendTimes bool
	// SkipErroneous drop workloads with out-of-order or impossible timings
	SkipErroneous bool
	// Head keep only the first N workloads after sorting by submission time
	Head int
	// Tail keep only the last N workloads after sorting by submission time
	Tail int
}

// WorkloadKey identifies a logical workload. Every resource collection is
// joined on this key.
type WorkloadKey struct {
	Name      string
	Namespace string
}

func (k WorkloadKey) String() string {
	return k.Namespace + "/" + k.Name
}

// SubmissionRecord is produced by the submitter for every workload it manages
// to submit
type SubmissionRecord struct {
	JobName         string    `json:"jobName"`
	ProjectName     string    `json:"projectName"`
	JobNamespace    string    `json:"jobNamespace"`
	SubmitTimestamp time.Time `json:"submitTimestamp"`
}

// BackendRecord is a control-plane job creation record
type BackendRecord struct {
	JobName          string    `json:"jobName"`
	ProjectName      string    `json:"projectName"`
	JobNamespace     string    `json:"jobNamespace"`
	CreatedTimestamp time.Time `json:"backendJobCreatedTimestamp"`
}

// WorkloadResources aggregates every resource matched to a single workload
// key. A group without the workload object is orphaned data and never makes
// it into the result.
type WorkloadResources struct {
	Workload            *unstructured.Unstructured
	Job                 *unstructured.Unstructured
	Pods                []corev1.Pod
	PodGroup            *unstructured.Unstructured
	EvictionTimes       []time.Time
	PVCBindRequestTimes []time.Time
	PVCBindTimes        []time.Time
	Backend             *BackendRecord
}

// WorkloadTimes is the milestone set of one workload. Field names in JSON
// follow the sampled.json schema so artifacts from older tool versions remain
// readable. Submit is attached later by MergeSubmissions; everything else is
// immutable once extracted.
type WorkloadTimes struct {
	JobName               string    `json:"jobName"`
	JobNamespace          string    `json:"jobNamespace"`
	ProjectName           string    `json:"projectName"`
	WorkloadCreated       time.Time `json:"workloadCreatedTimestamp"`
	JobCreated            time.Time `json:"jobCreatedTimestamp"`
	FirstPodCreated       time.Time `json:"firstPodCreatedTimestamp"`
	LastPodCreated        time.Time `json:"lastPodCreatedTimestamp"`
	PodGroupCreated       time.Time `json:"podGroupCreatedTimestamp"`
	PodSchedulingDecision time.Time `json:"podSchedulingDecisionTimestamp"`
	FirstEviction         time.Time `json:"firstEvictionTimestamp"`
	FirstPVCBindRequest   time.Time `json:"firstPVCBindRequestTimestamp"`
	FirstPVCBind          time.Time `json:"firstPVCBindTimestamp"`
	BackendJobCreated     time.Time `json:"backendJobCreatedTimestamp"`
	Submit                time.Time `json:"submitTimestamp,omitzero"`
}

// Key returns the workload key the milestone set was extracted for
func (w *WorkloadTimes) Key() WorkloadKey {
	return WorkloadKey{Name: w.JobName, Namespace: w.JobNamespace}
}

// truncateSecond normalizes a timestamp to whole-second resolution. Submission
// timestamps are only second-accurate, keeping sub-second precision elsewhere
// would produce spurious negative deltas.
func truncateSecond(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

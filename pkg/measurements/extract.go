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
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ExtractTimes walks every joined workload record and computes its milestone
// set. A workload with missing required data is logged and excluded, the
// others are unaffected. Groups without a workload object are orphaned
// resources and dropped silently.
func ExtractTimes(data map[WorkloadKey]*WorkloadResources, cfg Config) []WorkloadTimes {
	keys := make([]WorkloadKey, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	times := make([]WorkloadTimes, 0, len(keys))
	for _, k := range keys {
		resources := data[k]
		if resources.Workload == nil {
			// Some resource (e.g. a pod) outlived its parent workload,
			// not part of the result
			continue
		}
		workloadTimes, err := extractWorkloadTimes(k, resources, cfg)
		if err != nil {
			log.Warnf("Some resources are not ready yet, workloads are still being handled. Workload %s, error: %s (skipping)", k, err)
			continue
		}
		times = append(times, workloadTimes)
	}
	return times
}

func extractWorkloadTimes(k WorkloadKey, resources *WorkloadResources, cfg Config) (WorkloadTimes, error) {
	times := WorkloadTimes{
		JobName:      k.Name,
		JobNamespace: k.Namespace,
		ProjectName:  strings.TrimPrefix(k.Namespace, namespacePrefix),
	}

	var err error
	if times.WorkloadCreated, err = creationTime(resources.Workload, "workload"); err != nil {
		return times, err
	}
	if times.JobCreated, err = creationTime(resources.Job, "job"); err != nil {
		return times, err
	}
	if times.FirstPodCreated, times.LastPodCreated, err = minMaxPodTimes(resources.Pods); err != nil {
		return times, err
	}
	if times.PodGroupCreated, err = creationTime(resources.PodGroup, "podgroup"); err != nil {
		return times, err
	}
	if times.PodSchedulingDecision, err = schedulingDecisionTime(&resources.Pods[0]); err != nil {
		return times, err
	}

	// Without sub-events these milestones coincide with the scheduling
	// decision, measuring a zero delay rather than a missing one
	times.FirstEviction = earliestOrDefault(resources.EvictionTimes, times.PodSchedulingDecision)
	times.FirstPVCBindRequest = earliestOrDefault(resources.PVCBindRequestTimes, times.PodSchedulingDecision)
	times.FirstPVCBind = earliestOrDefault(resources.PVCBindTimes, times.PodSchedulingDecision)

	if cfg.BackendTimes {
		if resources.Backend == nil {
			return times, fmt.Errorf("no backend record")
		}
		times.BackendJobCreated = truncateSecond(resources.Backend.CreatedTimestamp)
	} else {
		times.BackendJobCreated = times.WorkloadCreated
	}

	return times, nil
}

func creationTime(object *unstructured.Unstructured, kind string) (time.Time, error) {
	if object == nil {
		return time.Time{}, fmt.Errorf("no %s object", kind)
	}
	timestamp := object.GetCreationTimestamp()
	if timestamp.IsZero() {
		return time.Time{}, fmt.Errorf("%s %s has no creation timestamp", kind, object.GetName())
	}
	return truncateSecond(timestamp.Time), nil
}

func minMaxPodTimes(pods []corev1.Pod) (time.Time, time.Time, error) {
	if len(pods) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("no pods")
	}
	first, last := pods[0].CreationTimestamp.Time, pods[0].CreationTimestamp.Time
	for i := range pods[1:] {
		t := pods[i+1].CreationTimestamp.Time
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	return truncateSecond(first), truncateSecond(last), nil
}

// schedulingDecisionTime returns the last transition time of the pod's
// PodScheduled condition. The condition counts as a decision when its status
// is true, or false with a reason. A false condition without a reason means
// the scheduler has not decided yet.
func schedulingDecisionTime(pod *corev1.Pod) (time.Time, error) {
	for _, condition := range pod.Status.Conditions {
		if condition.Type != corev1.PodScheduled {
			continue
		}
		if condition.Status == corev1.ConditionTrue || condition.Reason != "" {
			return truncateSecond(condition.LastTransitionTime.Time), nil
		}
	}
	return time.Time{}, fmt.Errorf("pod %s has no usable PodScheduled condition", pod.Name)
}

func earliestOrDefault(timestamps []time.Time, fallback time.Time) time.Time {
	if len(timestamps) == 0 {
		return fallback
	}
	earliest := timestamps[0]
	for _, t := range timestamps[1:] {
		if t.Before(earliest) {
			earliest = t
		}
	}
	return truncateSecond(earliest)
}

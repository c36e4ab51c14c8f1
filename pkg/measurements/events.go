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
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Event reasons emitted by the scheduler and the CSI provisioner
const (
	evictReason          = "Evict"
	pvcBindRequestReason = "ExternalProvisioning"
	pvcBindReason        = "ProvisioningSucceeded"
)

// SubEventKind classifies a raw cluster event
type SubEventKind string

const (
	// EvictionEvent a pod was preempted or reclaimed, attributed to the
	// pod group that triggered the eviction
	EvictionEvent SubEventKind = "Eviction"
	// PVCBindRequestEvent external provisioning was requested for a PVC
	PVCBindRequestEvent SubEventKind = "PvcBindRequest"
	// PVCBindEvent a PVC was bound
	PVCBindEvent SubEventKind = "PvcBind"
)

// SubEvent is a structured fact extracted from one cluster event. Eviction
// events carry the triggering pod group name directly; PVC events carry the
// short workload ID, resolved to a pod group afterwards.
type SubEvent struct {
	Kind       SubEventKind
	PodGroup   string
	WorkloadID string
	Timestamp  time.Time
}

// PodGroupEventTimes maps pod group names to classified sub-event timestamps.
// Lists are unordered, only the earliest entry matters downstream.
type PodGroupEventTimes struct {
	Evictions       map[string][]time.Time
	PVCBindRequests map[string][]time.Time
	PVCBinds        map[string][]time.Time
}

var (
	// The scheduler reports evictions in free text, naming the preemptor
	// or reclaimer as <namespace>/<podgroup>
	preemptorRegexp = regexp.MustCompile(`preempted by higher priority job ([0-9A-Za-z-]+)/(\S+)$`)
	reclaimerRegexp = regexp.MustCompile(`reclaimed by job ([0-9A-Za-z-]+)/(\S+?)\.?$`)
	// Short workload ID assigned at submission, embedded in PVC object names
	shortWorkloadIDRegexp = regexp.MustCompile(`j-[0-9A-Za-z]{6}`)
)

// Classify extracts a structured sub-event from one raw cluster event. The
// second return value is false when the event is of no interest to the
// measurement. A message that should match but doesn't is a parse error.
func Classify(event *corev1.Event) (SubEvent, bool, error) {
	timestamp := event.FirstTimestamp.Time
	switch event.Reason {
	case evictReason:
		var match []string
		switch {
		case preemptorRegexp.MatchString(event.Message):
			match = preemptorRegexp.FindStringSubmatch(event.Message)
		case reclaimerRegexp.MatchString(event.Message):
			match = reclaimerRegexp.FindStringSubmatch(event.Message)
		default:
			if containsAny(event.Message, "preempted", "reclaim") {
				return SubEvent{}, false, fmt.Errorf("unparseable eviction message: %q", event.Message)
			}
			return SubEvent{}, false, nil
		}
		return SubEvent{Kind: EvictionEvent, PodGroup: match[2], Timestamp: timestamp}, true, nil
	case pvcBindRequestReason, pvcBindReason:
		workloadID := shortWorkloadIDRegexp.FindString(event.InvolvedObject.Name)
		if workloadID == "" {
			return SubEvent{}, false, fmt.Errorf("no workload ID in involved object name %q", event.InvolvedObject.Name)
		}
		kind := PVCBindRequestEvent
		if event.Reason == pvcBindReason {
			kind = PVCBindEvent
		}
		return SubEvent{Kind: kind, WorkloadID: workloadID, Timestamp: timestamp}, true, nil
	}
	return SubEvent{}, false, nil
}

// ClassifyEvents groups eviction and PVC binding timestamps by pod group
// name. Malformed messages and PVC events with no matching pod group are
// logged and dropped, classification never aborts the run.
func ClassifyEvents(events []corev1.Event, podGroups []unstructured.Unstructured) PodGroupEventTimes {
	result := PodGroupEventTimes{
		Evictions:       make(map[string][]time.Time),
		PVCBindRequests: make(map[string][]time.Time),
		PVCBinds:        make(map[string][]time.Time),
	}
	for i := range events {
		subEvent, ok, err := Classify(&events[i])
		if err != nil {
			log.Warnf("Skipping event %s/%s: %s", events[i].Namespace, events[i].Name, err)
			continue
		}
		if !ok {
			continue
		}
		podGroup := subEvent.PodGroup
		if subEvent.Kind != EvictionEvent {
			podGroup = resolvePodGroup(subEvent.WorkloadID, podGroups)
			if podGroup == "" {
				log.Warnf("No pod group found for workload %s, dropping %s event", subEvent.WorkloadID, subEvent.Kind)
				continue
			}
		}
		switch subEvent.Kind {
		case EvictionEvent:
			result.Evictions[podGroup] = append(result.Evictions[podGroup], subEvent.Timestamp)
		case PVCBindRequestEvent:
			result.PVCBindRequests[podGroup] = append(result.PVCBindRequests[podGroup], subEvent.Timestamp)
		case PVCBindEvent:
			result.PVCBinds[podGroup] = append(result.PVCBinds[podGroup], subEvent.Timestamp)
		}
	}
	return result
}

// resolvePodGroup scans pod groups for the workloadName label matching the
// given short workload ID
func resolvePodGroup(workloadID string, podGroups []unstructured.Unstructured) string {
	for i := range podGroups {
		if podGroups[i].GetLabels()["workloadName"] == workloadID {
			return podGroups[i].GetName()
		}
	}
	return ""
}

func containsAny(s string, substrings ...string) bool {
	for _, substring := range substrings {
		if strings.Contains(s, substring) {
			return true
		}
	}
	return false
}

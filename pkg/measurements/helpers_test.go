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
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

var testBase = time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)

const testNamespace = "runai-project-0"

func fakeWorkload(name string, created time.Time) unstructured.Unstructured {
	return unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "run.ai/v2alpha1",
		"kind":       "TrainingWorkload",
		"metadata": map[string]any{
			"name":              fmt.Sprintf("%s-2024-05-14", name),
			"namespace":         testNamespace,
			"creationTimestamp": created.Format(time.RFC3339),
		},
		"spec": map[string]any{
			"name": map[string]any{"value": name},
		},
	}}
}

func fakeJob(name string, created time.Time) unstructured.Unstructured {
	return unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "run.ai/v1",
		"kind":       "RunaiJob",
		"metadata": map[string]any{
			"name":              name,
			"namespace":         testNamespace,
			"creationTimestamp": created.Format(time.RFC3339),
		},
	}}
}

func fakePodGroup(workloadName string, created time.Time) unstructured.Unstructured {
	return unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "scheduling.run.ai/v1",
		"kind":       "PodGroup",
		"metadata": map[string]any{
			"name":              fmt.Sprintf("pg-%s-uid", workloadName),
			"namespace":         testNamespace,
			"creationTimestamp": created.Format(time.RFC3339),
			"labels": map[string]any{
				"release":      workloadName,
				"workloadName": workloadName,
			},
		},
	}}
}

func fakePod(workloadName string, created, scheduled time.Time) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              workloadName + "-0-0",
			Namespace:         testNamespace,
			CreationTimestamp: metav1.NewTime(created),
			Labels:            map[string]string{"release": workloadName},
		},
		Status: corev1.PodStatus{
			Conditions: []corev1.PodCondition{
				{
					Type:               corev1.PodScheduled,
					Status:             corev1.ConditionTrue,
					LastTransitionTime: metav1.NewTime(scheduled),
				},
			},
		},
	}
}

func fakeEvent(reason, message, involvedName string, timestamp time.Time) corev1.Event {
	return corev1.Event{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("%s.%d", involvedName, timestamp.UnixNano()),
			Namespace: testNamespace,
		},
		Reason:         reason,
		Message:        message,
		FirstTimestamp: metav1.NewTime(timestamp),
		InvolvedObject: corev1.ObjectReference{
			Name:      involvedName,
			Namespace: testNamespace,
		},
	}
}

// fakeResources builds a fully joined record for one healthy workload
func fakeResources(name string) *WorkloadResources {
	workload := fakeWorkload(name, testBase)
	job := fakeJob(name, testBase.Add(1*time.Second))
	podGroup := fakePodGroup(name, testBase.Add(3*time.Second))
	return &WorkloadResources{
		Workload: &workload,
		Job:      &job,
		Pods:     []corev1.Pod{fakePod(name, testBase.Add(2*time.Second), testBase.Add(5*time.Second))},
		PodGroup: &podGroup,
	}
}

// fakeTimes builds a complete milestone set with submission attached
func fakeTimes(name string, submit time.Time) WorkloadTimes {
	return WorkloadTimes{
		JobName:               name,
		JobNamespace:          testNamespace,
		ProjectName:           "project-0",
		Submit:                submit,
		WorkloadCreated:       submit.Add(1 * time.Second),
		JobCreated:            submit.Add(2 * time.Second),
		FirstPodCreated:       submit.Add(3 * time.Second),
		LastPodCreated:        submit.Add(4 * time.Second),
		PodGroupCreated:       submit.Add(5 * time.Second),
		PodSchedulingDecision: submit.Add(7 * time.Second),
		FirstEviction:         submit.Add(7 * time.Second),
		FirstPVCBindRequest:   submit.Add(7 * time.Second),
		FirstPVCBind:          submit.Add(7 * time.Second),
		BackendJobCreated:     submit.Add(1 * time.Second),
	}
}

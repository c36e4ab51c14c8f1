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

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Pod label carrying the workload name. Single-pod workloads carry the
// release label, distributed pytorch workloads carry the kubeflow job-name
// label instead. Exactly one of the two is expected.
const (
	releaseLabel           = "release"
	kubeflowJobNameLabel   = "training.kubeflow.org/job-name"
	workloadShortNameField = "name"
)

// JoinResources merges all resource collections into one WorkloadResources
// aggregate per workload key. Groups that end up without a workload object
// are carried here and silently discarded at extraction time, their parent
// no longer exists.
func JoinResources(
	workloads, jobs []unstructured.Unstructured,
	pods []corev1.Pod,
	podGroups []unstructured.Unstructured,
	events PodGroupEventTimes,
	backendRecords []BackendRecord,
) map[WorkloadKey]*WorkloadResources {
	data := make(map[WorkloadKey]*WorkloadResources)
	group := func(k WorkloadKey) *WorkloadResources {
		if _, ok := data[k]; !ok {
			data[k] = &WorkloadResources{}
		}
		return data[k]
	}

	for i := range workloads {
		k, err := workloadKey(&workloads[i])
		if err != nil {
			log.Warnf("Skipping workload %s: %s", workloads[i].GetName(), err)
			continue
		}
		group(k).Workload = &workloads[i]
	}

	for i := range jobs {
		k := WorkloadKey{Name: jobs[i].GetName(), Namespace: jobs[i].GetNamespace()}
		group(k).Job = &jobs[i]
	}

	for i := range pods {
		k, err := podKey(&pods[i])
		if err != nil {
			log.Warnf("Skipping pod %s/%s: %s", pods[i].Namespace, pods[i].Name, err)
			continue
		}
		group(k).Pods = append(group(k).Pods, pods[i])
	}

	for i := range podGroups {
		k, err := podGroupKey(&podGroups[i])
		if err != nil {
			log.Warnf("Skipping pod group %s: %s", podGroups[i].GetName(), err)
			continue
		}
		g := group(k)
		g.PodGroup = &podGroups[i]
		pgName := podGroups[i].GetName()
		g.EvictionTimes = events.Evictions[pgName]
		g.PVCBindRequestTimes = events.PVCBindRequests[pgName]
		g.PVCBindTimes = events.PVCBinds[pgName]
	}

	for i := range backendRecords {
		k := WorkloadKey{Name: backendRecords[i].JobName, Namespace: backendRecords[i].JobNamespace}
		group(k).Backend = &backendRecords[i]
	}

	return data
}

// workloadKey reads the declared short name from the workload spec. The
// object name is unusable as a join key, older CLI versions append a
// timestamp suffix to it.
func workloadKey(workload *unstructured.Unstructured) (WorkloadKey, error) {
	name, found, err := unstructured.NestedString(workload.Object, "spec", workloadShortNameField, "value")
	if err != nil || !found {
		return WorkloadKey{}, fmt.Errorf("workload has no spec.name.value field")
	}
	return WorkloadKey{Name: name, Namespace: workload.GetNamespace()}, nil
}

func podKey(pod *corev1.Pod) (WorkloadKey, error) {
	if name, ok := pod.Labels[releaseLabel]; ok {
		return WorkloadKey{Name: name, Namespace: pod.Namespace}, nil
	}
	if name, ok := pod.Labels[kubeflowJobNameLabel]; ok {
		return WorkloadKey{Name: name, Namespace: pod.Namespace}, nil
	}
	return WorkloadKey{}, fmt.Errorf("pod carries neither %s nor %s label", releaseLabel, kubeflowJobNameLabel)
}

func podGroupKey(podGroup *unstructured.Unstructured) (WorkloadKey, error) {
	name, ok := podGroup.GetLabels()[releaseLabel]
	if !ok {
		return WorkloadKey{}, fmt.Errorf("pod group carries no %s label", releaseLabel)
	}
	return WorkloadKey{Name: name, Namespace: podGroup.GetNamespace()}, nil
}

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

package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/schedbench/schedbench/pkg/config"
)

const testNamespace = "runai-project-0"

func fakeObject(gvk schema.GroupVersionKind, name string) *unstructured.Unstructured {
	object := &unstructured.Unstructured{}
	object.SetGroupVersionKind(gvk)
	object.SetName(name)
	object.SetNamespace(testNamespace)
	return object
}

func newFakeDynamicClient(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	listKinds := map[schema.GroupVersionResource]string{
		{Group: "run.ai", Version: "v2alpha1", Resource: "trainingworkloads"}:    "TrainingWorkloadList",
		{Group: "run.ai", Version: "v2alpha1", Resource: "distributedworkloads"}: "DistributedWorkloadList",
		{Group: "run.ai", Version: "v2alpha1", Resource: "interactiveworkloads"}: "InteractiveWorkloadList",
		{Group: "run.ai", Version: "v1", Resource: "runaijobs"}:                  "RunaiJobList",
		{Group: "kubeflow.org", Version: "v1", Resource: "pytorchjobs"}:          "PyTorchJobList",
		{Group: "scheduling.run.ai", Version: "v1", Resource: "podgroups"}:       "PodGroupList",
	}
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), listKinds, objects...)
}

func TestListResources(t *testing.T) {
	dynamicClient := newFakeDynamicClient(
		fakeObject(schema.GroupVersionKind{Group: "run.ai", Version: "v2alpha1", Kind: "TrainingWorkload"}, "j-abc123"),
		fakeObject(schema.GroupVersionKind{Group: "run.ai", Version: "v1", Kind: "RunaiJob"}, "j-abc123"),
		fakeObject(schema.GroupVersionKind{Group: "scheduling.run.ai", Version: "v1", Kind: "PodGroup"}, "pg-j-abc123-uid"),
	)
	clientSet := fake.NewSimpleClientset(
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "j-abc123-0-0", Namespace: testNamespace}},
		&corev1.Event{ObjectMeta: metav1.ObjectMeta{Name: "evict-event", Namespace: testNamespace}},
		// Other namespaces are not sampled
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "other", Namespace: "runai-project-1"}},
	)
	client := NewClientFromInterfaces(clientSet, dynamicClient)

	resources, err := client.ListResources(context.Background(), config.TrainingWorkload, testNamespace, true)
	require.NoError(t, err)
	assert.Len(t, resources.Workloads, 1)
	assert.Len(t, resources.Jobs, 1)
	assert.Len(t, resources.Pods, 1)
	assert.Len(t, resources.PodGroups, 1)
	assert.Len(t, resources.Events, 1)

	// Events are skipped unless requested
	resources, err = client.ListResources(context.Background(), config.TrainingWorkload, testNamespace, false)
	require.NoError(t, err)
	assert.Empty(t, resources.Events)
}

func TestListResourcesDistributed(t *testing.T) {
	// Distributed workloads are backed by pytorch jobs, not runai jobs
	dynamicClient := newFakeDynamicClient(
		fakeObject(schema.GroupVersionKind{Group: "run.ai", Version: "v2alpha1", Kind: "DistributedWorkload"}, "j-abc123"),
		fakeObject(schema.GroupVersionKind{Group: "kubeflow.org", Version: "v1", Kind: "PyTorchJob"}, "j-abc123"),
	)
	client := NewClientFromInterfaces(fake.NewSimpleClientset(), dynamicClient)

	resources, err := client.ListResources(context.Background(), config.DistributedWorkload, testNamespace, false)
	require.NoError(t, err)
	assert.Len(t, resources.Workloads, 1)
	assert.Len(t, resources.Jobs, 1)
}

func TestListResourcesUnknownType(t *testing.T) {
	client := NewClientFromInterfaces(fake.NewSimpleClientset(), newFakeDynamicClient())
	_, err := client.ListResources(context.Background(), config.WorkloadType("batch"), testNamespace, false)
	assert.Error(t, err)
}

func TestWorkloadGVR(t *testing.T) {
	gvr, err := WorkloadGVR(config.InteractiveWorkload)
	require.NoError(t, err)
	assert.Equal(t, "interactiveworkloads", gvr.Resource)

	_, err = WorkloadGVR(config.WorkloadType("batch"))
	assert.Error(t, err)
}

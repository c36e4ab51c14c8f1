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
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/schedbench/schedbench/pkg/config"
)

var (
	workloadGVRs = map[config.WorkloadType]schema.GroupVersionResource{
		config.TrainingWorkload:    {Group: "run.ai", Version: "v2alpha1", Resource: "trainingworkloads"},
		config.DistributedWorkload: {Group: "run.ai", Version: "v2alpha1", Resource: "distributedworkloads"},
		config.InteractiveWorkload: {Group: "run.ai", Version: "v2alpha1", Resource: "interactiveworkloads"},
	}
	runaiJobGVR   = schema.GroupVersionResource{Group: "run.ai", Version: "v1", Resource: "runaijobs"}
	pytorchJobGVR = schema.GroupVersionResource{Group: "kubeflow.org", Version: "v1", Resource: "pytorchjobs"}
	podGroupGVR   = schema.GroupVersionResource{Group: "scheduling.run.ai", Version: "v1", Resource: "podgroups"}
)

// Client wraps the typed and dynamic clients used to list the resources a
// sampling pass consumes
type Client struct {
	clientSet     kubernetes.Interface
	dynamicClient dynamic.Interface
}

// Resources is the materialized snapshot one sampling pass operates on
type Resources struct {
	Workloads []unstructured.Unstructured
	Jobs      []unstructured.Unstructured
	Pods      []corev1.Pod
	PodGroups []unstructured.Unstructured
	Events    []corev1.Event
}

// NewClient builds a Client from the given kubeconfig path, falling back to
// $KUBECONFIG and ~/.kube/config
func NewClient(kubeconfig string) (*Client, error) {
	if kubeconfig == "" {
		if os.Getenv("KUBECONFIG") != "" {
			kubeconfig = os.Getenv("KUBECONFIG")
		} else if home := os.Getenv("HOME"); home != "" {
			if _, err := os.Stat(filepath.Join(home, ".kube", "config")); err == nil {
				kubeconfig = filepath.Join(home, ".kube", "config")
			}
		}
	}
	restConfig, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("error building kubeconfig: %s", err)
	}
	clientSet, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	return &Client{clientSet: clientSet, dynamicClient: dynamicClient}, nil
}

// NewClientFromInterfaces is meant for tests with fake clients
func NewClientFromInterfaces(clientSet kubernetes.Interface, dynamicClient dynamic.Interface) *Client {
	return &Client{clientSet: clientSet, dynamicClient: dynamicClient}
}

// Dynamic exposes the dynamic client for object creation
func (c *Client) Dynamic() dynamic.Interface {
	return c.dynamicClient
}

// ListResources lists every resource collection required for one sampling
// pass of the given namespace. Events are listed only when requested.
func (c *Client) ListResources(ctx context.Context, workloadType config.WorkloadType, namespace string, withEvents bool) (Resources, error) {
	var resources Resources
	var err error

	workloadGVR, ok := workloadGVRs[workloadType]
	if !ok {
		return resources, fmt.Errorf("unknown workload type %s", workloadType)
	}
	log.Infof("Getting %s", workloadGVR.Resource)
	if resources.Workloads, err = c.listUnstructured(ctx, workloadGVR, namespace); err != nil {
		return resources, err
	}

	jobGVR := runaiJobGVR
	if workloadType == config.DistributedWorkload {
		jobGVR = pytorchJobGVR
	}
	log.Infof("Getting %s", jobGVR.Resource)
	if resources.Jobs, err = c.listUnstructured(ctx, jobGVR, namespace); err != nil {
		return resources, err
	}

	log.Info("Getting pods")
	podList, err := c.clientSet.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return resources, fmt.Errorf("error listing pods in namespace %s: %s", namespace, err)
	}
	resources.Pods = podList.Items

	log.Info("Getting podgroups")
	if resources.PodGroups, err = c.listUnstructured(ctx, podGroupGVR, namespace); err != nil {
		return resources, err
	}

	if withEvents {
		log.Info("Getting events")
		eventList, err := c.clientSet.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return resources, fmt.Errorf("error listing events in namespace %s: %s", namespace, err)
		}
		resources.Events = eventList.Items
	}

	log.Infof("Resources: %d workloads, %d jobs, %d pods, %d podgroups, %d events",
		len(resources.Workloads), len(resources.Jobs), len(resources.Pods), len(resources.PodGroups), len(resources.Events))
	return resources, nil
}

func (c *Client) listUnstructured(ctx context.Context, gvr schema.GroupVersionResource, namespace string) ([]unstructured.Unstructured, error) {
	list, err := c.dynamicClient.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("error listing %s in namespace %s: %s", gvr.Resource, namespace, err)
	}
	return list.Items, nil
}

// WorkloadGVR returns the GVR a workload manifest of the given type creates
func WorkloadGVR(workloadType config.WorkloadType) (schema.GroupVersionResource, error) {
	gvr, ok := workloadGVRs[workloadType]
	if !ok {
		return schema.GroupVersionResource{}, fmt.Errorf("unknown workload type %s", workloadType)
	}
	return gvr, nil
}

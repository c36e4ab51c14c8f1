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

package submitter

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	apiyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"

	"github.com/schedbench/schedbench/pkg/config"
	"github.com/schedbench/schedbench/pkg/measurements"
)

// Flush writes partial submission results every flushEvery successful
// submissions, so an interrupted run still leaves a usable submitted.json
const flushEvery = 16

// Params describes one submission batch
type Params struct {
	WorkloadType config.WorkloadType
	Project      string
	Count        int
	// NumWorkers workers per distributed workload, substituted verbatim
	NumWorkers string
	// NumGPUs GPUs per pod, substituted verbatim
	NumGPUs string
	// PVC request an ephemeral PVC per workload
	PVC bool
}

// templateData is the input of a workload manifest template
type templateData struct {
	JobName    string
	Project    string
	Namespace  string
	NumWorkers string
	NumGPUs    string
	PVC        bool
}

// Submitter renders workload manifests and creates them through the dynamic
// client at a bounded rate
type Submitter struct {
	dynamicClient dynamic.Interface
	cfg           config.SubmitConfig
	limiter       *rate.Limiter
	// Flush receives partial results during the run, may be nil
	Flush func([]measurements.SubmissionRecord)
}

// New builds a Submitter from the submit phase configuration
func New(dynamicClient dynamic.Interface, cfg config.SubmitConfig) *Submitter {
	return &Submitter{
		dynamicClient: dynamicClient,
		cfg:           cfg,
		limiter:       rate.NewLimiter(rate.Limit(cfg.QPS), 1),
	}
}

// generateJobName returns a short unique job name, j- followed by 6
// alphanumerics
func generateJobName() string {
	return fmt.Sprintf("j-%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// Run submits params.Count workloads with bounded parallelism and returns a
// record per successful submission. Failed submissions are logged and
// skipped, never fatal.
func (s *Submitter) Run(ctx context.Context, params Params) ([]measurements.SubmissionRecord, error) {
	manifest, err := os.ReadFile(path.Join(s.cfg.ManifestsDir, fmt.Sprintf("%s.yaml", params.WorkloadType)))
	if err != nil {
		return nil, fmt.Errorf("error reading workload manifest: %s", err)
	}

	var mutex sync.Mutex
	var wg sync.WaitGroup
	records := make([]measurements.SubmissionRecord, 0, params.Count)
	sem := make(chan struct{}, s.cfg.Workers)

	for i := 0; i < params.Count; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()
			jobName := generateJobName()
			log.Infof("Submitting %s job %s (%d/%d)", params.WorkloadType, jobName, index+1, params.Count)
			record, err := s.submitWorkload(ctx, manifest, jobName, params)
			if err != nil {
				log.Errorf("Failed to submit %s, skipping to the next workload: %s", jobName, err)
				return
			}
			mutex.Lock()
			records = append(records, record)
			flush := s.Flush != nil && len(records)%flushEvery == 0
			var snapshot []measurements.SubmissionRecord
			if flush {
				snapshot = append(snapshot, records...)
			}
			mutex.Unlock()
			if flush {
				log.Info("Writing partial submission results")
				s.Flush(snapshot)
			}
		}(i)
		if s.cfg.Delay > 0 {
			time.Sleep(s.cfg.Delay)
		}
	}
	wg.Wait()
	return records, ctx.Err()
}

func (s *Submitter) submitWorkload(ctx context.Context, manifest []byte, jobName string, params Params) (measurements.SubmissionRecord, error) {
	namespace := config.NamespacePrefix + params.Project
	rendered, err := renderTemplate(manifest, templateData{
		JobName:    jobName,
		Project:    params.Project,
		Namespace:  namespace,
		NumWorkers: params.NumWorkers,
		NumGPUs:    params.NumGPUs,
		PVC:        params.PVC,
	})
	if err != nil {
		return measurements.SubmissionRecord{}, err
	}
	object, gvr, err := decodeManifest(rendered)
	if err != nil {
		return measurements.SubmissionRecord{}, err
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	submitTimestamp := time.Now().UTC()
	if _, err := s.dynamicClient.Resource(gvr).Namespace(namespace).Create(submitCtx, object, metav1.CreateOptions{}); err != nil {
		return measurements.SubmissionRecord{}, err
	}
	return measurements.SubmissionRecord{
		JobName:         jobName,
		ProjectName:     params.Project,
		JobNamespace:    namespace,
		SubmitTimestamp: submitTimestamp,
	}, nil
}

// decodeManifest parses a rendered manifest into an unstructured object and
// derives the resource it creates
func decodeManifest(rendered []byte) (*unstructured.Unstructured, schema.GroupVersionResource, error) {
	jsonBytes, err := apiyaml.ToJSON(rendered)
	if err != nil {
		return nil, schema.GroupVersionResource{}, fmt.Errorf("error decoding manifest: %s", err)
	}
	object := &unstructured.Unstructured{}
	if err := object.UnmarshalJSON(jsonBytes); err != nil {
		return nil, schema.GroupVersionResource{}, fmt.Errorf("error decoding manifest: %s", err)
	}
	gvk := object.GroupVersionKind()
	gvr := schema.GroupVersionResource{
		Group:    gvk.Group,
		Version:  gvk.Version,
		Resource: strings.ToLower(gvk.Kind) + "s",
	}
	return object, gvr, nil
}

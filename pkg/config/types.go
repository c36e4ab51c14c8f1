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

package config

import "time"

// WorkloadType benchmarked workload shape
type WorkloadType string

const (
	// TrainingWorkload single-pod training job
	TrainingWorkload WorkloadType = "training"
	// DistributedWorkload multi-pod pytorch job
	DistributedWorkload WorkloadType = "distributed"
	// InteractiveWorkload interactive session job
	InteractiveWorkload WorkloadType = "interactive"
)

// NamespacePrefix prepended to the project name to form the workload namespace
const NamespacePrefix = "runai-"

// Spec configuration root
type Spec struct {
	// OutputDir directory holding submitted.json, sampled.json and report artifacts
	OutputDir string `yaml:"outputDir"`
	// Project project (namespace without prefix) to submit to and sample from
	Project string `yaml:"project"`
	// Submit submission phase configuration
	Submit SubmitConfig `yaml:"submit,omitempty"`
	// Sampler sampling phase configuration
	Sampler SamplerConfig `yaml:"sampler,omitempty"`
	// Report report phase configuration
	Report ReportConfig `yaml:"report,omitempty"`
}

// SubmitConfig holds the workload submission configuration
type SubmitConfig struct {
	// ManifestsDir directory with per-workload-type manifest templates
	ManifestsDir string `yaml:"manifestsDir"`
	// Workers number of parallel submitters
	Workers int `yaml:"workers"`
	// QPS submission rate limit
	QPS float64 `yaml:"qps"`
	// Timeout per-submission timeout
	Timeout time.Duration `yaml:"timeout"`
	// Delay pause between submission iterations
	Delay time.Duration `yaml:"delay"`
}

// SamplerConfig holds the cluster sampling configuration
type SamplerConfig struct {
	// SchedulerEventTimes collect cluster events for eviction and PVC binding times
	SchedulerEventTimes bool `yaml:"schedulerEventTimes"`
	// BackendTimes correlate control-plane job records, requires database access
	BackendTimes bool `yaml:"backendTimes"`
	// Database control-plane database connection parameters
	Database DatabaseConfig `yaml:"database,omitempty"`
}

// DatabaseConfig holds the control-plane database connection parameters
type DatabaseConfig struct {
	// SelfHosted connect directly instead of generating an RDS IAM auth token
	SelfHosted  bool   `yaml:"selfHosted"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Name        string `yaml:"name"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Region      string `yaml:"region"`
	ClusterUUID string `yaml:"clusterUUID"`
}

// ReportConfig holds the report phase configuration
type ReportConfig struct {
	// SkipErroneous drop workloads with out-of-order or impossible timings
	SkipErroneous bool `yaml:"skipErroneous"`
	// Head keep only the first N workloads after sorting by submission time
	Head int `yaml:"head"`
	// Tail keep only the last N workloads after sorting by submission time
	Tail int `yaml:"tail"`
}

// Namespace returns the namespace the project's workloads live in
func (s *Spec) Namespace() string {
	return NamespacePrefix + s.Project
}

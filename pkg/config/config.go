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

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML implements Unmarshaller to customize defaults. Durations
// are given as strings ("30s", "1m"), yaml.v3 has no native support
func (s *SubmitConfig) UnmarshalYAML(unmarshal func(any) error) error {
	raw := struct {
		ManifestsDir string  `yaml:"manifestsDir"`
		Workers      int     `yaml:"workers"`
		QPS          float64 `yaml:"qps"`
		Timeout      string  `yaml:"timeout"`
		Delay        string  `yaml:"delay"`
	}{
		ManifestsDir: "manifests",
		Workers:      8,
		QPS:          20,
		Timeout:      "1m",
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	timeout, err := time.ParseDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %s", err)
	}
	var delay time.Duration
	if raw.Delay != "" {
		if delay, err = time.ParseDuration(raw.Delay); err != nil {
			return fmt.Errorf("invalid delay: %s", err)
		}
	}
	*s = SubmitConfig{
		ManifestsDir: raw.ManifestsDir,
		Workers:      raw.Workers,
		QPS:          raw.QPS,
		Timeout:      timeout,
		Delay:        delay,
	}
	return nil
}

// UnmarshalYAML implements Unmarshaller to customize defaults
func (d *DatabaseConfig) UnmarshalYAML(unmarshal func(any) error) error {
	type rawDatabaseConfig DatabaseConfig
	raw := rawDatabaseConfig{
		Host: "localhost",
		Port: 5432,
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*d = DatabaseConfig(raw)
	return nil
}

// UnmarshalYAML implements Unmarshaller to customize defaults
func (r *ReportConfig) UnmarshalYAML(unmarshal func(any) error) error {
	type rawReportConfig ReportConfig
	raw := rawReportConfig{
		SkipErroneous: true,
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*r = ReportConfig(raw)
	return nil
}

// Default returns a Spec with all defaults applied
func Default() Spec {
	return Spec{
		OutputDir: "logs",
		Project:   "project-0",
		Submit: SubmitConfig{
			ManifestsDir: "manifests",
			Workers:      8,
			QPS:          20,
			Timeout:      time.Minute,
		},
		Sampler: SamplerConfig{
			Database: DatabaseConfig{
				Host: "localhost",
				Port: 5432,
			},
		},
		Report: ReportConfig{
			SkipErroneous: true,
		},
	}
}

// Parse parses a configuration file into a Spec, starting from defaults
func Parse(path string) (Spec, error) {
	spec := Default()
	if path == "" {
		return spec, nil
	}
	cfg, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("error reading configuration file %s: %s", path, err)
	}
	yamlDec := yaml.NewDecoder(bytes.NewReader(cfg))
	yamlDec.KnownFields(true)
	if err = yamlDec.Decode(&spec); err != nil {
		return spec, enhanceYAMLParseError(path, err)
	}
	if err := spec.validate(); err != nil {
		return spec, err
	}
	return spec, nil
}

func (s *Spec) validate() error {
	if s.Project == "" {
		return fmt.Errorf("project cannot be empty")
	}
	if s.Report.Head < 0 || s.Report.Tail < 0 {
		return fmt.Errorf("head and tail must be non-negative")
	}
	return nil
}

// enhanceYAMLParseError enhances YAML parsing errors with file context
func enhanceYAMLParseError(filename string, err error) error {
	if err == nil {
		return nil
	}
	if yamlErr, ok := err.(*yaml.TypeError); ok {
		errorDetails := append([]string(nil), yamlErr.Errors...)
		return fmt.Errorf("failed to parse config file %s: %s", filename, strings.Join(errorDetails, "; "))
	}
	return fmt.Errorf("failed to parse config file %s: %s", filename, err)
}

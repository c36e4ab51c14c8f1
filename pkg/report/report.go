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

package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/schedbench/schedbench/pkg/measurements"
)

// Artifact file names inside the output directory
const (
	SubmittedFile = "submitted.json"
	SampledFile   = "sampled.json"
	TimesFile     = "times.csv"
	SummaryFile   = "summary.json"
)

// WriteJSON writes documents as one JSON file in the output directory
func WriteJSON(outputDir, filename string, documents any) error {
	if err := os.MkdirAll(outputDir, 0744); err != nil {
		return err
	}
	filePath := path.Join(outputDir, filename)
	log.Infof("Writing %s", filePath)
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("error creating %s: %s", filePath, err)
	}
	defer f.Close()
	jsonEnc := json.NewEncoder(f)
	if err := jsonEnc.Encode(documents); err != nil {
		return fmt.Errorf("JSON encoding error: %s", err)
	}
	return nil
}

// ReadSubmitted loads the submission records written by the submit phase
func ReadSubmitted(outputDir string) ([]measurements.SubmissionRecord, error) {
	var submissions []measurements.SubmissionRecord
	err := readJSON(path.Join(outputDir, SubmittedFile), &submissions)
	return submissions, err
}

// ReadSampled loads the milestone sets written by the sample phase
func ReadSampled(outputDir string) ([]measurements.WorkloadTimes, error) {
	var times []measurements.WorkloadTimes
	err := readJSON(path.Join(outputDir, SampledFile), &times)
	return times, err
}

func readJSON(filePath string, v any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("error opening %s: %s", filePath, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("error decoding %s: %s", filePath, err)
	}
	return nil
}

// WriteTimesCSV writes one row per surviving workload: identity, milestone
// timestamps and the final latency value of every metric series.
func WriteTimesCSV(outputDir string, result measurements.Result) error {
	if err := os.MkdirAll(outputDir, 0744); err != nil {
		return err
	}
	filePath := path.Join(outputDir, TimesFile)
	log.Infof("Writing %s", filePath)
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("error creating %s: %s", filePath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"Job Name", "Namespace", "Project",
		"Workload Submitted", "Workload Created", "Job Created",
		"First Pod Created", "Last Pod Created", "Pod Group Created",
		"Pod Scheduling Decision", "Backend Job Created",
	}
	header = append(header, result.MetricNames...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i, row := range result.Rows {
		record := []string{
			row.JobName, row.JobNamespace, row.ProjectName,
			formatTime(row.Submit), formatTime(row.WorkloadCreated), formatTime(row.JobCreated),
			formatTime(row.FirstPodCreated), formatTime(row.LastPodCreated), formatTime(row.PodGroupCreated),
			formatTime(row.PodSchedulingDecision), formatTime(row.BackendJobCreated),
		}
		for _, name := range result.MetricNames {
			record = append(record, strconv.FormatFloat(result.Series[name][i], 'f', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

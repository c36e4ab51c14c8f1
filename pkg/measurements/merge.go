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
	"time"

	log "github.com/sirupsen/logrus"
)

type submissionKey struct {
	jobName     string
	projectName string
}

// MergeSubmissions attaches the submitter-recorded submission timestamp to
// each milestone set, matching on (jobName, projectName). Everything is
// measured relative to submission, a milestone set without a match is
// dropped.
func MergeSubmissions(times []WorkloadTimes, submissions []SubmissionRecord) []WorkloadTimes {
	submitTime := make(map[submissionKey]time.Time, len(submissions))
	for _, submission := range submissions {
		k := submissionKey{jobName: submission.JobName, projectName: submission.ProjectName}
		submitTime[k] = submission.SubmitTimestamp
	}

	merged := make([]WorkloadTimes, 0, len(times))
	for _, workloadTimes := range times {
		k := submissionKey{jobName: workloadTimes.JobName, projectName: workloadTimes.ProjectName}
		submitted, ok := submitTime[k]
		if !ok {
			log.Warnf("Missing submit time for job %s project %s, skipping", k.jobName, k.projectName)
			continue
		}
		workloadTimes.Submit = truncateSecond(submitted)
		merged = append(merged, workloadTimes)
	}
	return merged
}

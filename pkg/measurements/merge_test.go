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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeSubmissions(t *testing.T) {
	times := []WorkloadTimes{
		fakeTimes("j-abc123", time.Time{}),
		fakeTimes("j-def456", time.Time{}),
	}
	submissions := []SubmissionRecord{
		{
			JobName:         "j-abc123",
			ProjectName:     "project-0",
			JobNamespace:    testNamespace,
			SubmitTimestamp: testBase.Add(1700 * time.Millisecond),
		},
		// Different project, must not match despite the same job name
		{
			JobName:         "j-def456",
			ProjectName:     "project-1",
			JobNamespace:    "runai-project-1",
			SubmitTimestamp: testBase,
		},
	}

	merged := MergeSubmissions(times, submissions)

	// j-def456 has no submission record for its project and is dropped
	assert.Len(t, merged, 1)
	assert.Equal(t, "j-abc123", merged[0].JobName)
	// The attached submission time is truncated to whole seconds
	assert.Equal(t, testBase.Add(1*time.Second), merged[0].Submit)
}

func TestMergeSubmissionsEmpty(t *testing.T) {
	merged := MergeSubmissions(nil, nil)
	assert.Empty(t, merged)

	merged = MergeSubmissions([]WorkloadTimes{fakeTimes("j-abc123", time.Time{})}, nil)
	assert.Empty(t, merged)
}

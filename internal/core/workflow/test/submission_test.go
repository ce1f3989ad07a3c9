// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

func TestSubmissionCreatesPendingJob(t *testing.T) {
	p := newPipeline()

	video, err := p.submission.Submit(ctx, upload("trailer.mp4"))
	require.NoError(t, err)
	require.NotNil(t, video)

	require.Equal(t, model.VideoStatusProcessingPending, video.Status)
	require.Equal(t, "job-0001", video.JobReference)

	// The asset landed under the record-scoped key.
	key := fmt.Sprintf("uploads/%s/trailer.mp4", video.ID)
	require.Contains(t, p.moderation.Stored, key)

	// The stored record agrees with the returned one and is visible to
	// the poller's pending query.
	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusProcessingPending, stored.Status)
	require.Equal(t, "job-0001", stored.JobReference)
	require.Equal(t, key, stored.StorageKey)

	pending, err := p.store.FindPendingModeration(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestSubmissionStorageFailureMarksVideoFailed(t *testing.T) {
	p := newPipeline()
	p.moderation.StoreErr = errors.New("bucket unavailable")

	video, err := p.submission.Submit(ctx, upload("trailer.mp4"))
	require.Error(t, err)
	require.NotNil(t, video)
	require.Equal(t, model.VideoStatusFailed, video.Status)

	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusFailed, stored.Status)
	require.NotNil(t, stored.Analysis)
	require.Equal(t, "FAILED", stored.Analysis.Status)
	require.Contains(t, stored.Analysis.Error, "bucket unavailable")

	// Nothing was stored and no job was started.
	require.Empty(t, p.moderation.Stored)
	require.Empty(t, p.moderation.Submitted)

	// A failed record never enters the poll queue.
	pending, err := p.store.FindPendingModeration(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestSubmissionJobStartFailureMarksVideoFailed(t *testing.T) {
	p := newPipeline()
	p.moderation.SubmitErr = errors.New("service rejected the asset")

	video, err := p.submission.Submit(ctx, upload("trailer.mp4"))
	require.Error(t, err)
	require.Equal(t, model.VideoStatusFailed, video.Status)

	// The asset was stored before the submission failed; the record is
	// still terminal failed and holds no job reference.
	require.Len(t, p.moderation.Stored, 1)
	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusFailed, stored.Status)
	require.Equal(t, "", stored.JobReference)
}

func TestSubmissionSurfacesFailedDowngradeWrite(t *testing.T) {
	p := newPipeline()
	p.moderation.StoreErr = errors.New("bucket unavailable")
	p.store.UpdateErr = errors.New("write concern timeout")

	video, err := p.submission.Submit(ctx, upload("trailer.mp4"))
	require.Error(t, err)
	require.NotNil(t, video)

	// Both the original failure and the downgrade failure reach the
	// caller; nothing is silently swallowed.
	require.ErrorContains(t, err, "bucket unavailable")
	require.ErrorContains(t, err, "write concern timeout")

	// The downgrade did not commit, so the record keeps its pre-failure
	// status instead of claiming a terminal state it never reached.
	require.NotEqual(t, model.VideoStatusFailed, video.Status)
}

func TestSubmissionAssignsDistinctKeysForSameFilename(t *testing.T) {
	p := newPipeline()

	first, err := p.submission.Submit(ctx, upload("same.mp4"))
	require.NoError(t, err)
	second, err := p.submission.Submit(ctx, upload("same.mp4"))
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Len(t, p.moderation.Stored, 2)
	require.Equal(t, "job-0001", first.JobReference)
	require.Equal(t, "job-0002", second.JobReference)
}

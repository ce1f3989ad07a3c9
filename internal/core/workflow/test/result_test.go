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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
	test "github.com/norisrivatsa/VideoProcessingApp/internal/testutil"
)

func TestFlaggedResultFinalizesAndNotifiesAllRecipients(t *testing.T) {
	p := newPipeline("viewer-1", "editor-1")

	video, err := p.submission.Submit(ctx, upload("trailer.mp4"))
	require.NoError(t, err)

	result := &model.JobResult{Status: model.JobSucceeded, Labels: test.GetWeaponsLabels()}
	require.NoError(t, p.results.Process(ctx, video, result))

	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusFlagged, stored.Status)
	require.Equal(t, model.SensitivityFlagged, stored.SensitivityStatus)
	require.Equal(t, 100, stored.ProcessingProgress)
	require.Equal(t, "", stored.JobReference)

	require.NotNil(t, stored.Analysis)
	require.Equal(t, "COMPLETED", stored.Analysis.Status)
	require.Equal(t, []string{"Weapons", "Weapon Violence"}, stored.Analysis.Flags)
	require.Equal(t, []string{"Weapons", "Weapon Violence"}, stored.Analysis.ViolenceFlags)
	require.False(t, stored.Analysis.CompletedAt.IsZero())

	// Owner plus both connected accounts each received exactly one
	// completion event.
	for _, recipient := range []string{"owner-1", "viewer-1", "editor-1"} {
		events := p.notifier.EventsFor(recipient)
		require.Len(t, events, 1, "recipient %s", recipient)
		require.Equal(t, notify.EventProcessingCompleted, events[0].Name)
		require.Equal(t, video.ID, events[0].VideoID)
		require.Equal(t, model.VideoStatusFlagged, events[0].Status)
		require.Equal(t, []string{"Weapons", "Weapon Violence"}, events[0].Flags)
		require.Contains(t, events[0].Message, "Video flagged for:")
	}
}

func TestCleanResultCompletesAsSafe(t *testing.T) {
	p := newPipeline()

	video, err := p.submission.Submit(ctx, upload("family.mp4"))
	require.NoError(t, err)

	result := &model.JobResult{Status: model.JobSucceeded, Labels: nil}
	require.NoError(t, p.results.Process(ctx, video, result))

	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusCompleted, stored.Status)
	require.Equal(t, model.SensitivitySafe, stored.SensitivityStatus)
	require.Equal(t, "COMPLETED", stored.Analysis.Status)
	require.Empty(t, stored.Analysis.Flags)

	events := p.notifier.EventsFor("owner-1")
	require.Len(t, events, 1)
	require.Equal(t, "Video is safe and ready for playback", events[0].Message)
	require.Empty(t, events[0].Flags)
}

func TestFailedJobMarksVideoFailedAndNotifies(t *testing.T) {
	p := newPipeline("viewer-1")

	video, err := p.submission.Submit(ctx, upload("broken.mp4"))
	require.NoError(t, err)

	require.NoError(t, p.results.Process(ctx, video, &model.JobResult{Status: model.JobFailed}))

	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusFailed, stored.Status)
	require.Equal(t, 0, stored.ProcessingProgress)
	require.Equal(t, "", stored.JobReference)
	require.Equal(t, "FAILED", stored.Analysis.Status)
	require.Equal(t, "moderation job failed", stored.Analysis.Error)
	require.False(t, stored.Analysis.FailedAt.IsZero())

	for _, recipient := range []string{"owner-1", "viewer-1"} {
		events := p.notifier.EventsFor(recipient)
		require.Len(t, events, 1)
		require.Equal(t, notify.EventProcessingFailed, events[0].Name)
		require.Equal(t, "moderation job failed", events[0].Error)
	}
}

func TestTerminalVideoIsNeverProcessedTwice(t *testing.T) {
	p := newPipeline()

	video, err := p.submission.Submit(ctx, upload("once.mp4"))
	require.NoError(t, err)

	result := &model.JobResult{Status: model.JobSucceeded, Labels: test.GetWeaponsLabels()}
	require.NoError(t, p.results.Process(ctx, video, result))
	require.Len(t, p.notifier.EventsFor("owner-1"), 1)

	// The record is terminal; reprocessing the same result is a no-op and
	// emits nothing.
	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.NoError(t, p.results.Process(ctx, stored, result))
	require.Len(t, p.notifier.EventsFor("owner-1"), 1)

	// And it no longer matches the poller's pending query.
	pending, err := p.store.FindPendingModeration(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestInProgressResultLeavesVideoPending(t *testing.T) {
	p := newPipeline()

	video, err := p.submission.Submit(ctx, upload("slow.mp4"))
	require.NoError(t, err)

	require.NoError(t, p.results.Process(ctx, video, &model.JobResult{Status: model.JobInProgress}))

	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusProcessingPending, stored.Status)
	require.Equal(t, "job-0001", stored.JobReference)
	require.Empty(t, p.notifier.EventsFor("owner-1"))
}

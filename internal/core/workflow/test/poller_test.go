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
	"time"

	"github.com/stretchr/testify/require"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/workflow"
	test "github.com/norisrivatsa/VideoProcessingApp/internal/testutil"
)

// pollerConfig clones the test configuration with a tight poll cadence so
// the loop tests finish quickly.
func pollerConfig() *cloud.Config {
	cfg := *config
	cfg.Moderation.PollIntervalSeconds = 1
	cfg.Moderation.EnforceMaxWait = false
	return &cfg
}

func terminalStatus(t *testing.T, p *pipeline, id string) func() bool {
	return func() bool {
		stored, err := p.store.Get(ctx, id)
		require.NoError(t, err)
		return stored.Status.IsTerminal()
	}
}

func TestPollerDrivesJobThroughInProgressToFailure(t *testing.T) {
	p := newPipeline()

	// Two in-progress reports, then the provider gives up on the job.
	p.moderation.Script(
		test.PollStep{Result: &model.JobResult{Status: model.JobInProgress}},
		test.PollStep{Result: &model.JobResult{Status: model.JobInProgress}},
		test.PollStep{Result: &model.JobResult{Status: model.JobFailed}},
	)

	video, err := p.submission.Submit(ctx, upload("stuck.mp4"))
	require.NoError(t, err)

	poller := workflow.NewPoller(pollerConfig(), p.moderation, p.store, p.results)
	require.NoError(t, poller.Start(ctx))
	defer poller.Stop()

	// After the first in-progress report the record is still pending and
	// still owned by the poll queue.
	require.Eventually(t, func() bool { return p.moderation.Polls("job-0001") >= 1 },
		10*time.Second, 10*time.Millisecond)
	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusProcessingPending, stored.Status)
	require.Equal(t, "job-0001", stored.JobReference)

	require.Eventually(t, terminalStatus(t, p, video.ID), 10*time.Second, 100*time.Millisecond)

	stored, err = p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusFailed, stored.Status)
	require.Equal(t, "moderation job failed", stored.Analysis.Error)
	require.Len(t, p.notifier.EventsFor("owner-1"), 1)
}

func TestPollerIsolatesTransientFailures(t *testing.T) {
	p := newPipeline()

	flagged := &model.JobResult{Status: model.JobSucceeded, Labels: test.GetWeaponsLabels()}
	clean := &model.JobResult{Status: model.JobSucceeded, Labels: nil}

	p.moderation.Script(test.PollStep{Result: clean})
	// The middle job's first poll fails on the wire, then recovers.
	p.moderation.Script(
		test.PollStep{Err: &cloud.TransientPollError{JobID: "job-0002"}},
		test.PollStep{Result: flagged},
	)
	p.moderation.Script(test.PollStep{Result: clean})

	first, err := p.submission.Submit(ctx, upload("a.mp4"))
	require.NoError(t, err)
	second, err := p.submission.Submit(ctx, upload("b.mp4"))
	require.NoError(t, err)
	third, err := p.submission.Submit(ctx, upload("c.mp4"))
	require.NoError(t, err)

	poller := workflow.NewPoller(pollerConfig(), p.moderation, p.store, p.results)
	require.NoError(t, poller.Start(ctx))
	defer poller.Stop()

	// The transient failure on the middle job delays only that job; all
	// three still reach a terminal state.
	for _, id := range []string{first.ID, second.ID, third.ID} {
		require.Eventually(t, terminalStatus(t, p, id), 10*time.Second, 100*time.Millisecond)
	}

	storedSecond, err := p.store.Get(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusFlagged, storedSecond.Status)

	for _, id := range []string{first.ID, third.ID} {
		stored, err := p.store.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, model.VideoStatusCompleted, stored.Status)
	}
}

func TestPollerEnforcesMaxWaitWhenConfigured(t *testing.T) {
	p := newPipeline()

	// The job never leaves in-progress.
	p.moderation.Script(test.PollStep{Result: &model.JobResult{Status: model.JobInProgress}})

	video, err := p.submission.Submit(ctx, upload("forever.mp4"))
	require.NoError(t, err)

	cfg := pollerConfig()
	cfg.Moderation.EnforceMaxWait = true
	cfg.Moderation.MaxWaitSeconds = 1

	poller := workflow.NewPoller(cfg, p.moderation, p.store, p.results)
	require.NoError(t, poller.Start(ctx))
	defer poller.Stop()

	require.Eventually(t, terminalStatus(t, p, video.ID), 10*time.Second, 100*time.Millisecond)

	stored, err := p.store.Get(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, model.VideoStatusFailed, stored.Status)
	require.Contains(t, stored.Analysis.Error, "did not finish within")
}

func TestPollerStopJoinsCleanly(t *testing.T) {
	p := newPipeline()

	poller := workflow.NewPoller(pollerConfig(), p.moderation, p.store, p.results)
	require.NoError(t, poller.Start(ctx))
	require.Error(t, poller.Start(ctx))

	poller.Stop()
	// A second Stop is a no-op, and the poller can be restarted.
	poller.Stop()
	require.NoError(t, poller.Start(ctx))
	poller.Stop()
}

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

// Package workflow defines the high-level business logic orchestrations.
// This file implements the status poller, the single background goroutine
// that drives every outstanding moderation job to completion.
//
// Logic Flow:
//  1. On a fixed interval, query the store for every video in
//     "processing_pending" with a job reference. The query result is the
//     work queue; the poller keeps no in-memory job state, so it survives
//     restarts and never double-processes a record another cycle already
//     drove terminal.
//  2. For each pending video, issue one non-blocking status query and hand
//     the outcome to the result workflow.
//  3. A transient poll failure for one video is logged and skipped; the
//     remaining videos in the cycle still get polled, and the failed one is
//     retried next cycle because its record did not change.
//
// By default a job is polled until the provider reports a terminal status,
// however long that takes. When a maximum wait is configured and enforced,
// a job outstanding longer than the limit (measured from the upload) is
// failed with a timeout instead of being polled again.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
)

// Poller periodically scans for outstanding moderation jobs and feeds their
// results into the result workflow.
type Poller struct {
	moderation cloud.ModerationService
	videos     services.VideoStore
	results    *ResultWorkflow
	interval   time.Duration
	maxWait    time.Duration // Zero disables the deadline.

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewPoller builds the poller from configuration. The interval and the
// optional maximum wait come from the moderation config section.
func NewPoller(
	config *cloud.Config,
	moderation cloud.ModerationService,
	videos services.VideoStore,
	results *ResultWorkflow) *Poller {

	interval := time.Duration(config.Moderation.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	var maxWait time.Duration
	if config.Moderation.EnforceMaxWait && config.Moderation.MaxWaitSeconds > 0 {
		maxWait = time.Duration(config.Moderation.MaxWaitSeconds) * time.Second
	}

	return &Poller{
		moderation: moderation,
		videos:     videos,
		results:    results,
		interval:   interval,
		maxWait:    maxWait,
	}
}

// Start launches the poll loop. Calling Start on a running poller is an
// error.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("poller already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = make(chan struct{})

	go p.run(loopCtx)
	slog.Info("status poller started", "interval", p.interval, "max_wait", p.maxWait)
	return nil
}

// Stop halts the loop and waits for the in-flight cycle to finish. It is
// safe to call on a poller that never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	stopped := p.stopped
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
	slog.Info("status poller stopped")
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.stopped)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollCycle(ctx)
		}
	}
}

// pollCycle runs one pass over every outstanding job.
func (p *Poller) pollCycle(ctx context.Context) {
	pending, err := p.videos.FindPendingModeration(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query pending videos", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}
	slog.DebugContext(ctx, "polling outstanding moderation jobs", "count", len(pending))

	for _, video := range pending {
		if ctx.Err() != nil {
			return
		}
		p.pollOne(ctx, video)
	}
}

// pollOne handles a single video. Failures here never propagate: one stuck
// job must not starve the rest of the queue.
func (p *Poller) pollOne(ctx context.Context, video *model.Video) {
	if p.maxWait > 0 && time.Since(video.UploadDate) > p.maxWait {
		p.results.MarkFailed(ctx, video,
			fmt.Sprintf("moderation job did not finish within %s", p.maxWait))
		return
	}

	result, err := p.moderation.PollJob(ctx, video.JobReference)
	if err != nil {
		// Transient by contract: the job itself is not known to have
		// failed, so the record is left pending for the next cycle.
		var transient *cloud.TransientPollError
		if errors.As(err, &transient) {
			slog.WarnContext(ctx, "transient poll failure, will retry",
				"video", video.ID, "job", video.JobReference, "error", err)
		} else {
			slog.ErrorContext(ctx, "unexpected poll failure, will retry",
				"video", video.ID, "job", video.JobReference, "error", err)
		}
		return
	}

	if err := p.results.Process(ctx, video, result); err != nil {
		slog.ErrorContext(ctx, "result processing failed",
			"video", video.ID, "job", video.JobReference, "error", err)
	}
}

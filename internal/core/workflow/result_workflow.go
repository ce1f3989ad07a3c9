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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the result workflow: it receives one poll outcome for one video and drives
// the record to its terminal state.
//
// Logic Flow:
//   - IN_PROGRESS: nothing to do; the record stays "processing_pending" and
//     the next poll cycle picks it up again.
//   - SUCCEEDED: run the success chain (classify labels, finalize the
//     record, fan out the completion event). If any step of the chain
//     fails, the success path is downgraded: the record is marked "failed"
//     and a failure event goes out instead.
//   - FAILED: mark the record "failed" and fan out a failure event.
//
// Every transition is an atomic update keyed by record id, and the workflow
// is only ever invoked for records the pending query returned, so a record
// already driven terminal by a previous cycle is never transitioned twice.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/commands"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
)

// ResultWorkflow turns a completed moderation job into the video's terminal
// state and notifications.
type ResultWorkflow struct {
	cor.BaseCommand
	videos     services.VideoStore
	dispatcher *notify.Dispatcher
	chain      cor.Chain
}

// NewResultWorkflow builds the result pipeline over the video repository and
// the notification dispatcher.
func NewResultWorkflow(videos services.VideoStore, dispatcher *notify.Dispatcher) *ResultWorkflow {
	w := &ResultWorkflow{
		BaseCommand: *cor.NewBaseCommand("result-workflow"),
		videos:      videos,
		dispatcher:  dispatcher,
	}

	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewLabelClassify("classify-moderation-labels"))
	out.AddCommand(commands.NewVideoFinalize("finalize-video-record", videos))
	out.AddCommand(commands.NewNotifyFanout("notify-processing-complete", dispatcher))
	w.chain = out
	return w
}

// Execute runs the underlying success chain. The context must carry the
// label list as its input value and the Video under the canonical video key.
func (w *ResultWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Process applies one job result to one video. A nil return means the
// record is either terminal now or legitimately still in progress.
func (w *ResultWorkflow) Process(ctx context.Context, video *model.Video, result *model.JobResult) error {
	if video.Status.IsTerminal() {
		return nil
	}

	switch result.Status {
	case model.JobInProgress:
		slog.DebugContext(ctx, "moderation job still in progress",
			"video", video.ID, "job", video.JobReference)
		return nil

	case model.JobSucceeded:
		return w.processSucceeded(ctx, video, result)

	case model.JobFailed:
		w.MarkFailed(ctx, video, "moderation job failed")
		return nil

	default:
		w.MarkFailed(ctx, video, "moderation job returned an unknown status")
		return nil
	}
}

// processSucceeded runs the success chain and downgrades the record to
// "failed" if any step of it errored.
func (w *ResultWorkflow) processSucceeded(ctx context.Context, video *model.Video, result *model.JobResult) error {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, result.Labels)
	chainCtx.Add(commands.GetVideoParameterName(), video)

	w.Execute(chainCtx)

	if !chainCtx.HasErrors() {
		w.GetSuccessCounter().Add(ctx, 1)
		return nil
	}
	w.GetErrorCounter().Add(ctx, 1)

	errs := make([]error, 0, len(chainCtx.GetErrors()))
	for _, err := range chainCtx.GetErrors() {
		errs = append(errs, err)
	}
	joined := errors.Join(errs...)

	// The terminal transition did not commit, so the downgrade is safe: a
	// record that did turn terminal never reaches this path because the
	// finalize command is the chain's only failure point after it.
	if !video.Status.IsTerminal() {
		w.MarkFailed(ctx, video, joined.Error())
	}
	return joined
}

// MarkFailed drives a video to the terminal "failed" state and fans out the
// failure event. Clearing the job reference in the same write removes the
// record from the pending query.
func (w *ResultWorkflow) MarkFailed(ctx context.Context, video *model.Video, reason string) {
	err := w.videos.UpdateFields(ctx, video.ID, bson.M{
		"status":              model.VideoStatusFailed,
		"processing_progress": 0,
		"job_reference":       "",
		"analysis": &model.AnalysisResult{
			Status:   "FAILED",
			Error:    reason,
			FailedAt: time.Now().UTC(),
		},
	})
	if err != nil {
		// The record still matches the pending query, so the next poll
		// cycle retries the transition.
		slog.ErrorContext(ctx, "failed to mark video failed",
			"video", video.ID, "reason", reason, "error", err)
		return
	}
	video.Status = model.VideoStatusFailed
	video.ProcessingProgress = 0
	video.JobReference = ""

	slog.WarnContext(ctx, "video analysis failed", "video", video.ID, "reason", reason)
	w.dispatcher.DispatchFailed(ctx, video, reason)
}

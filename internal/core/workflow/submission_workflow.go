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
// the submission workflow: the synchronous half of the pipeline that runs
// inside the upload request.
//
// Logic Flow:
//  1. Create the Video record in its initial "pending" state.
//  2. Store the asset bytes in the object store and advance to "uploaded".
//  3. Start the moderation job and advance to "processing_pending" with the
//     job reference recorded, handing the record to the poll loop.
//
// A failure at any step stops the chain, and the workflow downgrades the
// record to terminal "failed" with the error preserved on the analysis
// snapshot. The stored object, if any, is left in place; the record is the
// source of truth and a failed record is never resubmitted.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/commands"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
)

// SubmissionWorkflow orchestrates upload-to-job-submission as a Chain of
// Responsibility. It is safe for concurrent use; each Submit call runs on
// its own chain context.
type SubmissionWorkflow struct {
	cor.BaseCommand
	videos services.VideoStore
	chain  cor.Chain
}

// NewSubmissionWorkflow builds the submission pipeline over the moderation
// boundary and the video repository.
func NewSubmissionWorkflow(
	config *cloud.Config,
	moderation cloud.ModerationService,
	videos services.VideoStore) *SubmissionWorkflow {

	w := &SubmissionWorkflow{
		BaseCommand: *cor.NewBaseCommand("submission-workflow"),
		videos:      videos,
	}

	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewVideoRecordCreate("create-video-record", videos))
	out.AddCommand(commands.NewAssetStore("store-video-asset", moderation, videos))
	out.AddCommand(commands.NewModerationStart("start-moderation-job", moderation, videos, config.Moderation.MinConfidence))
	w.chain = out
	return w
}

// Execute runs the underlying chain. The context must carry an
// *commands.UploadRequest as its input value.
func (w *SubmissionWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Submit runs the full submission for one upload and returns the resulting
// Video record. On failure the returned record, when one was created, is in
// the terminal "failed" state and the joined chain errors are returned.
func (w *SubmissionWorkflow) Submit(ctx context.Context, request *commands.UploadRequest) (*model.Video, error) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, request)

	w.Execute(chainCtx)

	var video *model.Video
	if v := chainCtx.Get(commands.GetVideoParameterName()); v != nil {
		video = v.(*model.Video)
	}

	if !chainCtx.HasErrors() {
		w.GetSuccessCounter().Add(ctx, 1)
		return video, nil
	}
	w.GetErrorCounter().Add(ctx, 1)

	errs := make([]error, 0, len(chainCtx.GetErrors()))
	for _, err := range chainCtx.GetErrors() {
		errs = append(errs, err)
	}
	joined := errors.Join(errs...)

	// The record exists only if the first command got through; downgrade
	// it so it can never be picked up by the poll loop.
	if video != nil {
		downgradeErr := w.videos.UpdateFields(ctx, video.ID, bson.M{
			"status": model.VideoStatusFailed,
			"analysis": &model.AnalysisResult{
				Status:   "FAILED",
				Error:    joined.Error(),
				FailedAt: time.Now().UTC(),
			},
		})
		if downgradeErr != nil {
			// The record is stuck non-terminal; the caller has to know.
			slog.ErrorContext(ctx, "failed to mark video failed after submission error",
				"video", video.ID, "error", downgradeErr)
			joined = errors.Join(joined,
				fmt.Errorf("failed to record submission failure on video %s: %w", video.ID, downgradeErr))
		} else {
			video.Status = model.VideoStatusFailed
		}
	}
	return video, joined
}

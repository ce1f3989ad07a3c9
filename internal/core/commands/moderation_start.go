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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// final command of the submission chain: starting the asynchronous
// moderation job for the stored asset.
//
// Logic Flow:
//  1. Read the StorageRef piped in from the storage command.
//  2. Start a moderation job with the configured minimum confidence and
//     capture the provider's job id.
//  3. Atomically update the record to "processing_pending" together with the
//     job reference. Writing both in one update is what lets the poller use
//     a single status query as its work queue.
package commands

import (
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
)

// ModerationStart is the command that submits the stored asset for analysis.
type ModerationStart struct {
	cor.BaseCommand
	moderation    cloud.ModerationService
	videos        services.VideoStore
	minConfidence float64
}

// NewModerationStart is the constructor for the ModerationStart command.
func NewModerationStart(name string, moderation cloud.ModerationService, videos services.VideoStore, minConfidence float64) *ModerationStart {
	return &ModerationStart{
		BaseCommand:   *cor.NewBaseCommand(name),
		moderation:    moderation,
		videos:        videos,
		minConfidence: minConfidence,
	}
}

// Execute starts the job and hands the record to the poll loop.
func (c *ModerationStart) Execute(context cor.Context) {
	ref := context.Get(c.GetInputParam()).(*cloud.StorageRef)
	video := context.Get(GetVideoParameterName()).(*model.Video)

	jobID, err := c.moderation.SubmitJob(context.GetContext(), ref, c.minConfidence)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	err = c.videos.UpdateFields(context.GetContext(), video.ID, bson.M{
		"status":        model.VideoStatusProcessingPending,
		"job_reference": jobID,
	})
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	video.Status = model.VideoStatusProcessingPending
	video.JobReference = jobID

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "started moderation job",
		"video", video.ID, "job", jobID)
	context.Add(c.GetOutputParam(), jobID)
}

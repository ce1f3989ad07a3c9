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
// command that commits the terminal success transition of a Video record.
//
// Logic Flow:
//  1. Read the Verdict piped in from the classifier and the in-flight Video
//     from the canonical video key.
//  2. Derive the terminal status: "flagged" when the verdict flags the
//     content, "completed" otherwise, plus the matching sensitivity status.
//  3. Build the AnalysisResult snapshot and write everything in one atomic
//     update. The job reference is cleared in the same write, so the record
//     stops matching the poller's pending query the moment it turns
//     terminal. A terminal record is never transitioned again.
package commands

import (
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
)

// VideoFinalize is the command that applies the classifier verdict to the
// Video record as its terminal transition.
type VideoFinalize struct {
	cor.BaseCommand
	videos services.VideoStore
}

// NewVideoFinalize is the constructor for the VideoFinalize command.
func NewVideoFinalize(name string, videos services.VideoStore) *VideoFinalize {
	return &VideoFinalize{BaseCommand: *cor.NewBaseCommand(name), videos: videos}
}

// Execute writes the terminal state and pipes the updated Video onward.
func (c *VideoFinalize) Execute(context cor.Context) {
	verdict := context.Get(c.GetInputParam()).(*model.Verdict)
	video := context.Get(GetVideoParameterName()).(*model.Video)

	status := model.VideoStatusCompleted
	sensitivity := model.SensitivitySafe
	if verdict.IsFlagged {
		status = model.VideoStatusFlagged
		sensitivity = model.SensitivityFlagged
	}

	analysis := &model.AnalysisResult{
		Status:          "COMPLETED",
		Flags:           verdict.Flags,
		ViolenceFlags:   verdict.ViolenceFlags,
		NsfwFlags:       verdict.NsfwFlags,
		DisturbingFlags: verdict.DisturbingFlags,
		OtherFlags:      verdict.OtherFlags,
		Confidence:      verdict.MaxConfidence,
		TotalLabels:     verdict.TotalLabels,
		LabelDetails:    verdict.LabelDetails,
		CompletedAt:     time.Now().UTC(),
	}

	err := c.videos.UpdateFields(context.GetContext(), video.ID, bson.M{
		"status":              status,
		"sensitivity_status":  sensitivity,
		"processing_progress": 100,
		"job_reference":       "",
		"analysis":            analysis,
	})
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	video.Status = status
	video.SensitivityStatus = sensitivity
	video.ProcessingProgress = 100
	video.JobReference = ""
	video.Analysis = analysis

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "finalized video analysis",
		"video", video.ID, "status", status, "flags", len(verdict.Flags))
	context.Add(c.GetOutputParam(), video)
}

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
// first command of the submission chain: creating the Video record that
// anchors the rest of the pipeline.
//
// Logic Flow:
//  1. Read the UploadRequest placed in the context by the upload handler.
//  2. Build a Video record in the initial "pending" state with a
//     deterministic storage key derived from the new record id.
//  3. Insert the record, then publish it under the canonical video key so
//     every later command (and the failure downgrade in the workflow) can
//     reach it.
//  4. Pass the upload request through as the output for the storage command.
package commands

import (
	"fmt"
	"time"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
)

// UploadRequest carries one uploaded asset through the submission chain.
type UploadRequest struct {
	OwnerID     string // Account that owns the video.
	Title       string // Display title; defaults to the filename upstream.
	Filename    string // Original client filename.
	ContentType string // Sniffed MIME type.
	Data        []byte // Raw asset bytes.
}

// GetVideoParameterName returns the canonical context key holding the
// in-flight *model.Video. Using a function keeps the key consistent across
// commands and workflows.
func GetVideoParameterName() string {
	return "__VIDEO__"
}

// VideoRecordCreate is the command that persists the initial Video record.
type VideoRecordCreate struct {
	cor.BaseCommand
	videos services.VideoStore
}

// NewVideoRecordCreate is the constructor for the VideoRecordCreate command.
func NewVideoRecordCreate(name string, videos services.VideoStore) *VideoRecordCreate {
	return &VideoRecordCreate{BaseCommand: *cor.NewBaseCommand(name), videos: videos}
}

// Execute inserts the Video record and publishes it on the context.
func (c *VideoRecordCreate) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*UploadRequest)

	video := &model.Video{
		OwnerID:    request.OwnerID,
		Title:      request.Title,
		Filename:   request.Filename,
		FileSize:   int64(len(request.Data)),
		UploadDate: time.Now().UTC(),
		Status:     model.VideoStatusPending,
	}

	id, err := c.videos.Create(context.GetContext(), video)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to create video record: %w", err))
		return
	}

	// The storage key embeds the record id so concurrent uploads of the
	// same filename never collide.
	video.StorageKey = fmt.Sprintf("uploads/%s/%s", id, request.Filename)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVideoParameterName(), video)
	context.Add(c.GetOutputParam(), request)
}

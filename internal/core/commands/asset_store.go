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
// command that writes the uploaded asset to the object store and records the
// resulting location on the Video record.
//
// Logic Flow:
//  1. Read the UploadRequest piped in from the record-create command and the
//     in-flight Video from the canonical video key.
//  2. Store the bytes under the record's storage key. The store layer
//     retries transient failures internally; a returned error is final.
//  3. On success, atomically update the record to "uploaded" with the
//     storage key, and pipe the StorageRef to the submission command.
package commands

import (
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
)

// GetStorageRefParameterName returns the canonical context key holding the
// *cloud.StorageRef of the stored asset.
func GetStorageRefParameterName() string {
	return "__STORAGE_REF__"
}

// AssetStore is the command that persists the uploaded bytes to the object
// store.
type AssetStore struct {
	cor.BaseCommand
	moderation cloud.ModerationService
	videos     services.VideoStore
}

// NewAssetStore is the constructor for the AssetStore command.
func NewAssetStore(name string, moderation cloud.ModerationService, videos services.VideoStore) *AssetStore {
	return &AssetStore{BaseCommand: *cor.NewBaseCommand(name), moderation: moderation, videos: videos}
}

// Execute writes the asset and advances the record to "uploaded".
func (c *AssetStore) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*UploadRequest)
	video := context.Get(GetVideoParameterName()).(*model.Video)

	ref, err := c.moderation.Store(context.GetContext(), request.Data, video.StorageKey, request.ContentType)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	err = c.videos.UpdateFields(context.GetContext(), video.ID, bson.M{
		"status":      model.VideoStatusUploaded,
		"storage_key": video.StorageKey,
	})
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	video.Status = model.VideoStatusUploaded

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "stored video asset",
		"video", video.ID, "location", ref.URI(), "bytes", video.FileSize)
	context.Add(GetStorageRefParameterName(), ref)
	context.Add(c.GetOutputParam(), ref)
}

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

// Package services contains the data access layer over the document store.
// This file defines the VideoService, the repository for Video records. All
// cross-goroutine coordination in the pipeline happens through this store:
// every mutation is an atomic partial update targeted at a single record by
// id, so the poll loop and the request handlers never need in-process locks.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

// VideoCollection is the name of the collection holding Video records.
const VideoCollection = "videos"

// VideoStore is the persistence contract for Video records. The production
// implementation is VideoService over the document store; tests substitute
// in-memory stores.
type VideoStore interface {
	Create(ctx context.Context, video *model.Video) (string, error)
	Get(ctx context.Context, id string) (*model.Video, error)
	List(ctx context.Context, ownerID string, status model.VideoStatus) ([]*model.Video, error)
	FindPendingModeration(ctx context.Context) ([]*model.Video, error)
	UpdateFields(ctx context.Context, id string, fields bson.M) error
	Delete(ctx context.Context, id string) error
}

// VideoService is the repository for Video records.
type VideoService struct {
	DB *mongo.Database
}

// NewVideoService returns a repository bound to the application database.
func NewVideoService(db *mongo.Database) *VideoService {
	return &VideoService{DB: db}
}

func (s *VideoService) collection() *mongo.Collection {
	return s.DB.Collection(VideoCollection)
}

// Create inserts a new Video record, assigning an id when the caller did not
// set one, and returns the stored id.
func (s *VideoService) Create(ctx context.Context, video *model.Video) (string, error) {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if _, err := s.collection().InsertOne(ctx, video); err != nil {
		return "", fmt.Errorf("failed to insert video: %w", err)
	}
	return video.ID, nil
}

// Get retrieves a single Video by id.
func (s *VideoService) Get(ctx context.Context, id string) (*model.Video, error) {
	video := &model.Video{}
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(video)
	if err != nil {
		return nil, fmt.Errorf("failed to find video %s: %w", id, err)
	}
	return video, nil
}

// List returns the videos grouped under an owner, newest first, optionally
// restricted to one status.
func (s *VideoService) List(ctx context.Context, ownerID string, status model.VideoStatus) ([]*model.Video, error) {
	filter := bson.M{"owner_id": ownerID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "upload_date", Value: -1}})
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos for owner %s: %w", ownerID, err)
	}
	defer cursor.Close(ctx)

	videos := make([]*model.Video, 0)
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("failed to decode video list: %w", err)
	}
	return videos, nil
}

// FindPendingModeration returns every video with an outstanding moderation
// job: status processing_pending and a non-empty job reference. Terminal
// records never match, which is what makes duplicate terminal processing
// impossible across poll cycles.
func (s *VideoService) FindPendingModeration(ctx context.Context) ([]*model.Video, error) {
	filter := bson.M{
		"status":        model.VideoStatusProcessingPending,
		"job_reference": bson.M{"$exists": true, "$ne": ""},
	}
	cursor, err := s.collection().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending videos: %w", err)
	}
	defer cursor.Close(ctx)

	videos := make([]*model.Video, 0)
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("failed to decode pending videos: %w", err)
	}
	return videos, nil
}

// UpdateFields applies an atomic partial update ($set) to one record by id.
func (s *VideoService) UpdateFields(ctx context.Context, id string, fields bson.M) error {
	_, err := s.collection().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update video %s: %w", id, err)
	}
	return nil
}

// Delete removes a Video record.
func (s *VideoService) Delete(ctx context.Context, id string) error {
	_, err := s.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete video %s: %w", id, err)
	}
	return nil
}

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

// Package test provides utility functions and mock data to support the
// application's test suite. This file holds in-memory fakes for the
// pipeline's external boundaries: the video store, the moderation service,
// the account resolver, and the notifier. They implement the same contracts
// as the production types and keep everything behind a mutex so pipeline
// tests can run them concurrently.
package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
)

// MemoryVideoStore is an in-memory services.VideoStore.
type MemoryVideoStore struct {
	mu     sync.Mutex
	nextID int
	videos map[string]*model.Video

	UpdateErr error // Returned by UpdateFields when set.
}

// NewMemoryVideoStore returns an empty store.
func NewMemoryVideoStore() *MemoryVideoStore {
	return &MemoryVideoStore{videos: make(map[string]*model.Video)}
}

func cloneVideo(v *model.Video) *model.Video {
	out := *v
	return &out
}

// Create inserts a record, assigning a sequential id when unset.
func (s *MemoryVideoStore) Create(_ context.Context, video *model.Video) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if video.ID == "" {
		s.nextID++
		video.ID = fmt.Sprintf("video-%04d", s.nextID)
	}
	s.videos[video.ID] = cloneVideo(video)
	return video.ID, nil
}

// Get returns a copy of the record.
func (s *MemoryVideoStore) Get(_ context.Context, id string) (*model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s not found", id)
	}
	return cloneVideo(v), nil
}

// List returns the owner's videos, optionally filtered by status.
func (s *MemoryVideoStore) List(_ context.Context, ownerID string, status model.VideoStatus) ([]*model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Video, 0)
	for _, v := range s.videos {
		if v.OwnerID != ownerID {
			continue
		}
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, cloneVideo(v))
	}
	return out, nil
}

// FindPendingModeration mirrors the production query: processing_pending
// with a non-empty job reference.
func (s *MemoryVideoStore) FindPendingModeration(_ context.Context) ([]*model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Video, 0)
	for _, v := range s.videos {
		if v.Status == model.VideoStatusProcessingPending && v.JobReference != "" {
			out = append(out, cloneVideo(v))
		}
	}
	return out, nil
}

// UpdateFields applies the same partial-update semantics the document store
// gives the production repository.
func (s *MemoryVideoStore) UpdateFields(_ context.Context, id string, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	v, ok := s.videos[id]
	if !ok {
		return fmt.Errorf("video %s not found", id)
	}
	for key, value := range fields {
		switch key {
		case "status":
			v.Status = value.(model.VideoStatus)
		case "storage_key":
			v.StorageKey = value.(string)
		case "job_reference":
			v.JobReference = value.(string)
		case "sensitivity_status":
			v.SensitivityStatus = value.(model.SensitivityStatus)
		case "processing_progress":
			v.ProcessingProgress = value.(int)
		case "analysis":
			v.Analysis = value.(*model.AnalysisResult)
		default:
			return fmt.Errorf("unsupported update field %q", key)
		}
	}
	return nil
}

// Delete removes the record.
func (s *MemoryVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
	return nil
}

// PollStep scripts one PollJob response for a job.
type PollStep struct {
	Result *model.JobResult
	Err    error
}

// FakeModerationService is a scriptable cloud.ModerationService. Jobs are
// assigned sequential ids, and each job replays its scripted poll steps in
// order, repeating the last step once the script is exhausted.
type FakeModerationService struct {
	mu sync.Mutex

	StoreErr  error // Returned by Store when set.
	SubmitErr error // Returned by SubmitJob when set.

	nextJob int
	scripts map[string][]PollStep
	cursor  map[string]int

	Stored    map[string][]byte // Key to stored bytes.
	Submitted []string          // Job ids in submission order.
	Deleted   []string          // Keys removed via DeleteObject.
}

// NewFakeModerationService returns an empty fake.
func NewFakeModerationService() *FakeModerationService {
	return &FakeModerationService{
		scripts: make(map[string][]PollStep),
		cursor:  make(map[string]int),
		Stored:  make(map[string][]byte),
	}
}

// Script sets the poll responses for the next submitted job, returning the
// job id it will be assigned.
func (f *FakeModerationService) Script(steps ...PollStep) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Job ids are handed out sequentially by SubmitJob, so the script for
	// the n-th registered job belongs to "job-%04d" of n.
	jobID := fmt.Sprintf("job-%04d", len(f.scripts)+1)
	f.scripts[jobID] = steps
	return jobID
}

// Store records the bytes under the key.
func (f *FakeModerationService) Store(_ context.Context, data []byte, key string, _ string) (*cloud.StorageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StoreErr != nil {
		return nil, f.StoreErr
	}
	f.Stored[key] = data
	return &cloud.StorageRef{Bucket: "test-bucket", Key: key}, nil
}

// SubmitJob assigns the next scripted job id.
func (f *FakeModerationService) SubmitJob(_ context.Context, _ *cloud.StorageRef, _ float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	f.nextJob++
	jobID := fmt.Sprintf("job-%04d", f.nextJob)
	f.Submitted = append(f.Submitted, jobID)
	return jobID, nil
}

// Polls reports how many status queries a job has received so far.
func (f *FakeModerationService) Polls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor[jobID]
}

// PollJob replays the job's script.
func (f *FakeModerationService) PollJob(_ context.Context, jobID string) (*model.JobResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps, ok := f.scripts[jobID]
	if !ok || len(steps) == 0 {
		return nil, &cloud.TransientPollError{JobID: jobID, Err: fmt.Errorf("no script for job %s", jobID)}
	}
	idx := f.cursor[jobID]
	if idx >= len(steps) {
		idx = len(steps) - 1
	} else {
		f.cursor[jobID] = idx + 1
	}
	step := steps[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Result, nil
}

// AccessURL returns a deterministic fake URL for stored keys.
func (f *FakeModerationService) AccessURL(_ context.Context, ref *cloud.StorageRef, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Stored[ref.Key]; !ok {
		return "", &cloud.NotFoundError{Key: ref.Key}
	}
	return fmt.Sprintf("https://example.test/%s?expires=%d", ref.Key, int64(ttl.Seconds())), nil
}

// DeleteObject removes the stored bytes.
func (f *FakeModerationService) DeleteObject(_ context.Context, ref *cloud.StorageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Stored, ref.Key)
	f.Deleted = append(f.Deleted, ref.Key)
	return nil
}

// StaticAccounts is a fixed notify.AccountResolver.
type StaticAccounts struct {
	Connected map[string][]string
	Err       error
}

// ConnectedAccountIDs returns the configured set for the owner.
func (s *StaticAccounts) ConnectedAccountIDs(_ context.Context, ownerID string) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Connected[ownerID], nil
}

// RecordingNotifier captures emitted events per recipient.
type RecordingNotifier struct {
	mu      sync.Mutex
	FailFor map[string]error
	Events  map[string][]*notify.Event
}

// NewRecordingNotifier returns an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Events: make(map[string][]*notify.Event)}
}

// Emit records the event unless the recipient is configured to fail.
func (r *RecordingNotifier) Emit(_ context.Context, recipientID string, event *notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailFor[recipientID]; ok {
		return err
	}
	r.Events[recipientID] = append(r.Events[recipientID], event)
	return nil
}

// EventsFor returns a copy of the events delivered to one recipient.
func (r *RecordingNotifier) EventsFor(recipientID string) []*notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notify.Event, len(r.Events[recipientID]))
	copy(out, r.Events[recipientID])
	return out
}

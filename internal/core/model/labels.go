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

// Package model defines the core data structures for the application.
// This file holds the transient moderation types: the typed label produced at
// the moderation client boundary and the verdict derived from a label set.
// These objects live only in memory while a job result is being processed;
// the durable form is the AnalysisResult snapshot on the Video record.
package model

// JobStatus is the state of a remote moderation job as last reported by the
// provider. Transitions are monotonic: IN_PROGRESS moves to SUCCEEDED or
// FAILED and never back.
type JobStatus string

const (
	JobInProgress JobStatus = "IN_PROGRESS"
	JobSucceeded  JobStatus = "SUCCEEDED"
	JobFailed     JobStatus = "FAILED"
)

// ModerationLabel is one detected concept in one video segment. A job yields
// an ordered list of these, not necessarily deduplicated by name. The raw
// provider payload is converted into this type at the client boundary so that
// loosely-typed service responses never cross into the result processor.
type ModerationLabel struct {
	Name        string  `bson:"name" json:"name"`
	Confidence  float64 `bson:"confidence" json:"confidence"` // 0-100 as reported by the provider.
	TimestampMs int64   `bson:"timestamp" json:"timestamp"`   // Offset of the detection within the video.
	Parent      string  `bson:"parent" json:"parent"`         // Parent category name, empty for top-level labels.
}

// JobResult is the outcome of a single non-blocking status query against the
// moderation service. Labels is populated only when Status is SUCCEEDED.
type JobResult struct {
	Status JobStatus
	Labels []*ModerationLabel
}

// Verdict is the derived classification of a label set. It is computed by the
// classifier and copied onto the Video's AnalysisResult at the terminal
// transition; it is never stored independently.
type Verdict struct {
	IsFlagged       bool
	Flags           []string // Deduplicated by name, first-seen order.
	ViolenceFlags   []string
	NsfwFlags       []string
	DisturbingFlags []string
	OtherFlags      []string
	MaxConfidence   float64 // Across all labels, flagged or not. Diagnostics only.
	TotalLabels     int
	LabelDetails    []*ModerationLabel // Leading labels kept for the persistent snapshot.
}

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
// This file contains the persistent Video record, the single source of truth
// that moves a media asset through the moderation pipeline. A Video is created
// at upload time, mutated once by the job submitter (job metadata) and once by
// the result processor (terminal fields), and is never resurrected after it
// reaches a terminal status.
package model

import "time"

// VideoStatus enumerates the lifecycle states of a Video record.
type VideoStatus string

const (
	VideoStatusPending           VideoStatus = "pending"            // Record created, asset not yet handed to the moderation service.
	VideoStatusUploaded          VideoStatus = "uploaded"           // Asset stored, no moderation job submitted yet.
	VideoStatusProcessingPending VideoStatus = "processing_pending" // A moderation job is outstanding; the poller owns this record.
	VideoStatusCompleted         VideoStatus = "completed"          // Terminal: analysis finished, content is safe.
	VideoStatusFailed            VideoStatus = "failed"             // Terminal: storage, submission, or the remote job failed.
	VideoStatusFlagged           VideoStatus = "flagged"            // Terminal: analysis finished, content was flagged.
)

// IsTerminal reports whether the status permits no further transitions.
// Only a new upload creates a new record; no component resurrects a
// terminal one.
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed || s == VideoStatusFlagged
}

// SensitivityStatus is the safety verdict recorded on a successfully
// analyzed video. It is unset while a job is outstanding.
type SensitivityStatus string

const (
	SensitivitySafe    SensitivityStatus = "safe"
	SensitivityFlagged SensitivityStatus = "flagged"
)

// AnalysisResult is the structured record of the classifier output. It is
// written exactly once, at the terminal transition. For the failure path only
// Error, Status and FailedAt are populated.
type AnalysisResult struct {
	Status          string             `bson:"status" json:"status"` // "COMPLETED" or "FAILED".
	Flags           []string           `bson:"flags,omitempty" json:"flags,omitempty"`
	ViolenceFlags   []string           `bson:"violence_flags,omitempty" json:"violenceFlags,omitempty"`
	NsfwFlags       []string           `bson:"nsfw_flags,omitempty" json:"nsfwFlags,omitempty"`
	DisturbingFlags []string           `bson:"disturbing_flags,omitempty" json:"disturbingFlags,omitempty"`
	OtherFlags      []string           `bson:"other_flags,omitempty" json:"otherFlags,omitempty"`
	Confidence      float64            `bson:"confidence" json:"confidence"` // Max confidence across all labels, diagnostics only.
	TotalLabels     int                `bson:"total_labels" json:"totalLabels"`
	LabelDetails    []*ModerationLabel `bson:"label_details,omitempty" json:"labelDetails,omitempty"` // Snapshot of the leading labels.
	Error           string             `bson:"error,omitempty" json:"error,omitempty"`
	CompletedAt     time.Time          `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	FailedAt        time.Time          `bson:"failed_at,omitempty" json:"failedAt,omitempty"`
}

// Video is the persistent record for one uploaded media asset.
type Video struct {
	ID                 string            `bson:"_id,omitempty" json:"id"`
	OwnerID            string            `bson:"owner_id" json:"ownerId"` // Account the video is grouped under; may differ from the uploader.
	Title              string            `bson:"title" json:"title"`
	Filename           string            `bson:"filename" json:"filename"`
	StorageKey         string            `bson:"storage_key" json:"-"` // Object key in the remote store.
	FileSize           int64             `bson:"file_size" json:"fileSize"`
	UploadDate         time.Time         `bson:"upload_date" json:"uploadDate"`
	Status             VideoStatus       `bson:"status" json:"status"`
	ProcessingProgress int               `bson:"processing_progress" json:"processingProgress"` // 0 while a job is outstanding, 100 on terminal success or flag.
	SensitivityStatus  SensitivityStatus `bson:"sensitivity_status,omitempty" json:"sensitivityStatus,omitempty"`
	JobReference       string            `bson:"job_reference,omitempty" json:"-"` // Provider job id; present only while status is processing_pending.
	Analysis           *AnalysisResult   `bson:"analysis,omitempty" json:"analysis,omitempty"`
}

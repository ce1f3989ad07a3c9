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

// Package notify implements the notification fan-out for terminal processing
// events. The dispatcher resolves the recipient set for a video — the owner
// plus every account registered under that owner — and emits one event per
// recipient to that recipient's channel.
//
// Delivery is at-most-once per dispatch and best-effort: a failed emit is
// logged and never surfaces back into the result processor, because the
// state transition that triggered the event has already committed.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

// Event names carried on the notification boundary.
const (
	EventProcessingCompleted = "processing_completed"
	EventProcessingFailed    = "processing_failed"
)

// Event is the payload delivered to a recipient channel.
type Event struct {
	Name              string                  `json:"event"`
	VideoID           string                  `json:"videoId"`
	OwnerID           string                  `json:"ownerId"`
	Status            model.VideoStatus       `json:"status"`
	SensitivityStatus model.SensitivityStatus `json:"sensitivityStatus,omitempty"`
	Flags             []string                `json:"flags,omitempty"`
	Error             string                  `json:"error,omitempty"`
	Message           string                  `json:"message"`
}

// Notifier delivers one event to one recipient channel. The production
// implementation is the websocket Hub; tests substitute recorders.
type Notifier interface {
	Emit(ctx context.Context, recipientID string, event *Event) error
}

// AccountResolver resolves the accounts registered under an owner.
type AccountResolver interface {
	ConnectedAccountIDs(ctx context.Context, ownerID string) ([]string, error)
}

// Dispatcher fans terminal processing events out to every interested
// recipient.
type Dispatcher struct {
	accounts AccountResolver
	notifier Notifier
}

// NewDispatcher builds a dispatcher over an account resolver and a notifier.
func NewDispatcher(accounts AccountResolver, notifier Notifier) *Dispatcher {
	return &Dispatcher{accounts: accounts, notifier: notifier}
}

// DispatchCompleted emits a processing_completed event for a video that
// reached a success-terminal state (completed or flagged).
func (d *Dispatcher) DispatchCompleted(ctx context.Context, video *model.Video, verdict *model.Verdict) {
	event := &Event{
		Name:              EventProcessingCompleted,
		VideoID:           video.ID,
		OwnerID:           video.OwnerID,
		Status:            video.Status,
		SensitivityStatus: video.SensitivityStatus,
	}
	if verdict != nil && verdict.IsFlagged {
		event.Flags = verdict.Flags
		event.Message = fmt.Sprintf("Video flagged for: %s", strings.Join(verdict.Flags, ", "))
	} else {
		event.Message = "Video is safe and ready for playback"
	}
	d.fanOut(ctx, video.OwnerID, event)
}

// DispatchFailed emits a processing_failed event with a human-readable
// reason.
func (d *Dispatcher) DispatchFailed(ctx context.Context, video *model.Video, reason string) {
	event := &Event{
		Name:    EventProcessingFailed,
		VideoID: video.ID,
		OwnerID: video.OwnerID,
		Status:  model.VideoStatusFailed,
		Error:   reason,
		Message: "Video analysis failed. Please try uploading again.",
	}
	d.fanOut(ctx, video.OwnerID, event)
}

// fanOut resolves the recipient set and emits the event once per recipient.
// No ordering is guaranteed between recipients, and a failed delivery to one
// channel does not stop delivery to the rest.
func (d *Dispatcher) fanOut(ctx context.Context, ownerID string, event *Event) {
	recipients := []string{ownerID}
	connected, err := d.accounts.ConnectedAccountIDs(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve connected accounts; notifying owner only",
			"owner", ownerID, "error", err)
	} else {
		recipients = append(recipients, connected...)
	}

	for _, recipient := range recipients {
		if err := d.notifier.Emit(ctx, recipient, event); err != nil {
			slog.WarnContext(ctx, "failed to deliver notification",
				"recipient", recipient, "event", event.Name, "video", event.VideoID, "error", err)
		}
	}
}

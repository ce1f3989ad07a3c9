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

package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
	test "github.com/norisrivatsa/VideoProcessingApp/internal/testutil"
)

func flaggedVideo() *model.Video {
	return &model.Video{
		ID:                "video-1",
		OwnerID:           "owner-1",
		Status:            model.VideoStatusFlagged,
		SensitivityStatus: model.SensitivityFlagged,
	}
}

func TestDispatchCompletedFansOutToOwnerAndConnected(t *testing.T) {
	notifier := test.NewRecordingNotifier()
	accounts := &test.StaticAccounts{Connected: map[string][]string{
		"owner-1": {"viewer-1", "editor-1"},
	}}
	d := notify.NewDispatcher(accounts, notifier)

	verdict := &model.Verdict{IsFlagged: true, Flags: []string{"Weapons", "Explicit Nudity"}}
	d.DispatchCompleted(context.Background(), flaggedVideo(), verdict)

	for _, recipient := range []string{"owner-1", "viewer-1", "editor-1"} {
		events := notifier.EventsFor(recipient)
		require.Len(t, events, 1, "recipient %s", recipient)
		require.Equal(t, notify.EventProcessingCompleted, events[0].Name)
		require.Equal(t, "owner-1", events[0].OwnerID)
		require.Equal(t, "Video flagged for: Weapons, Explicit Nudity", events[0].Message)
	}
}

func TestDispatchCompletedSafeVideoHasNoFlags(t *testing.T) {
	notifier := test.NewRecordingNotifier()
	d := notify.NewDispatcher(&test.StaticAccounts{}, notifier)

	video := &model.Video{
		ID:                "video-2",
		OwnerID:           "owner-1",
		Status:            model.VideoStatusCompleted,
		SensitivityStatus: model.SensitivitySafe,
	}
	d.DispatchCompleted(context.Background(), video, &model.Verdict{})

	events := notifier.EventsFor("owner-1")
	require.Len(t, events, 1)
	require.Empty(t, events[0].Flags)
	require.Equal(t, "Video is safe and ready for playback", events[0].Message)
	require.Equal(t, model.SensitivitySafe, events[0].SensitivityStatus)
}

func TestDispatchFailedCarriesReason(t *testing.T) {
	notifier := test.NewRecordingNotifier()
	d := notify.NewDispatcher(&test.StaticAccounts{}, notifier)

	video := &model.Video{ID: "video-3", OwnerID: "owner-1"}
	d.DispatchFailed(context.Background(), video, "moderation job failed")

	events := notifier.EventsFor("owner-1")
	require.Len(t, events, 1)
	require.Equal(t, notify.EventProcessingFailed, events[0].Name)
	require.Equal(t, model.VideoStatusFailed, events[0].Status)
	require.Equal(t, "moderation job failed", events[0].Error)
	require.Equal(t, "Video analysis failed. Please try uploading again.", events[0].Message)
}

func TestDispatchFallsBackToOwnerWhenResolverFails(t *testing.T) {
	notifier := test.NewRecordingNotifier()
	accounts := &test.StaticAccounts{Err: errors.New("store offline")}
	d := notify.NewDispatcher(accounts, notifier)

	d.DispatchFailed(context.Background(), flaggedVideo(), "boom")

	require.Len(t, notifier.EventsFor("owner-1"), 1)
}

func TestDispatchContinuesPastFailedRecipient(t *testing.T) {
	notifier := test.NewRecordingNotifier()
	notifier.FailFor = map[string]error{"viewer-1": errors.New("connection reset")}
	accounts := &test.StaticAccounts{Connected: map[string][]string{
		"owner-1": {"viewer-1", "editor-1"},
	}}
	d := notify.NewDispatcher(accounts, notifier)

	d.DispatchCompleted(context.Background(), flaggedVideo(), &model.Verdict{})

	// The failed delivery is logged and dropped; everyone else still gets
	// the event.
	require.Len(t, notifier.EventsFor("owner-1"), 1)
	require.Empty(t, notifier.EventsFor("viewer-1"))
	require.Len(t, notifier.EventsFor("editor-1"), 1)
}

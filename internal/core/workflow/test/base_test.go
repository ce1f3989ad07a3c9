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

// Package workflow_test contains the tests for the processing pipeline.
// This file provides the shared setup: configuration, the in-memory fakes
// for the store and the moderation boundary, and helpers to build a wired
// pipeline per test.
package workflow_test

import (
	"context"
	"os"
	"testing"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/commands"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/workflow"
	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
	"github.com/norisrivatsa/VideoProcessingApp/internal/telemetry"
	test "github.com/norisrivatsa/VideoProcessingApp/internal/testutil"
)

var (
	ctx    context.Context
	config *cloud.Config
)

// pipeline bundles one fully wired test instance of the processing
// pipeline over in-memory fakes.
type pipeline struct {
	store      *test.MemoryVideoStore
	moderation *test.FakeModerationService
	notifier   *test.RecordingNotifier
	accounts   *test.StaticAccounts
	dispatcher *notify.Dispatcher
	submission *workflow.SubmissionWorkflow
	results    *workflow.ResultWorkflow
}

// newPipeline wires a pipeline whose owner has the given connected
// accounts.
func newPipeline(connected ...string) *pipeline {
	p := &pipeline{
		store:      test.NewMemoryVideoStore(),
		moderation: test.NewFakeModerationService(),
		notifier:   test.NewRecordingNotifier(),
		accounts:   &test.StaticAccounts{Connected: map[string][]string{"owner-1": connected}},
	}
	p.dispatcher = notify.NewDispatcher(p.accounts, p.notifier)
	p.submission = workflow.NewSubmissionWorkflow(config, p.moderation, p.store)
	p.results = workflow.NewResultWorkflow(p.store, p.dispatcher)
	return p
}

// upload returns a minimal valid upload request for the shared test owner.
func upload(filename string) *commands.UploadRequest {
	return &commands.UploadRequest{
		OwnerID:     "owner-1",
		Title:       filename,
		Filename:    filename,
		ContentType: "video/mp4",
		Data:        []byte("fake video payload"),
	}
}

func TestMain(m *testing.M) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	config = test.GetConfig()
	telemetry.SetupLogging()

	os.Exit(m.Run())
}

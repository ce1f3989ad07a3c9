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
// application's test suite. It helps in setting up a consistent test
// environment, loading test-specific configurations, and providing sample
// moderation label sets for the classifier and pipeline tests.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs, so the TOML files are parsed only once
// per test binary.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is non-nil. A convenience to reduce
// boilerplate error checking in tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// SetupOS points the configuration loader at the test configuration files
// (configs/.env.test.toml overrides on top of configs/.env.toml).
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// GetWeaponsLabels returns a label set a moderation job would report for
// footage containing firearms. The parent category is what makes the set
// flaggable even though the leaf name is not itself in the policy.
func GetWeaponsLabels() []*model.ModerationLabel {
	return []*model.ModerationLabel{
		{Name: "Weapons", Confidence: 87.3, TimestampMs: 1200, Parent: "Violence"},
		{Name: "Weapon Violence", Confidence: 82.1, TimestampMs: 3400, Parent: "Violence"},
		{Name: "Weapons", Confidence: 91.0, TimestampMs: 5600, Parent: "Violence"},
	}
}

// GetExplicitLabels returns a label set spanning the explicit-content
// categories, useful for exercising the nsfw bucket.
func GetExplicitLabels() []*model.ModerationLabel {
	return []*model.ModerationLabel{
		{Name: "Explicit Nudity", Confidence: 96.4, TimestampMs: 800, Parent: ""},
		{Name: "Graphic Male Nudity", Confidence: 88.9, TimestampMs: 2100, Parent: "Explicit Nudity"},
	}
}

// GetSuggestiveLabels returns a label set that the policy recognizes but
// does not flag.
func GetSuggestiveLabels() []*model.ModerationLabel {
	return []*model.ModerationLabel{
		{Name: "Female Swimwear Or Underwear", Confidence: 75.2, TimestampMs: 400, Parent: "Suggestive"},
		{Name: "Revealing Clothes", Confidence: 68.8, TimestampMs: 900, Parent: "Suggestive"},
	}
}

// GetMixedLabels returns a label set touching several flag buckets at once.
func GetMixedLabels() []*model.ModerationLabel {
	return []*model.ModerationLabel{
		{Name: "Graphic Violence Or Gore", Confidence: 93.5, TimestampMs: 100, Parent: "Violence"},
		{Name: "Emaciated Bodies", Confidence: 71.2, TimestampMs: 1500, Parent: "Visually Disturbing"},
		{Name: "Explicit Nudity", Confidence: 89.9, TimestampMs: 2700, Parent: ""},
		{Name: "Hate Symbols", Confidence: 66.0, TimestampMs: 3900, Parent: "Hate Symbols"},
	}
}

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

// Package main contains the setup and initialization logic for the
// application's state. This file is responsible for creating and managing a
// centralized state manager that holds all shared dependencies: the
// configuration, the external-service clients, the repositories, the
// notification hub, and the pipeline workflows.
//
// Functions:
//   - SetupOS: Points the configuration loader at the correct TOML files.
//   - GetConfig: A singleton that loads the configuration once.
//   - InitState: Creates every client, service and workflow, and starts the
//     background status poller.
package main

import (
	"context"
	"log"
	"os"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/services"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/workflow"
	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
)

// StateManager holds all the shared dependencies for the application, acting
// as a centralized container for service clients and configurations. This
// avoids the need for global variables and makes dependency management
// cleaner.
type StateManager struct {
	config     *cloud.Config
	cloud      *cloud.ServiceClients
	moderation cloud.ModerationService
	videos     *services.VideoService
	accounts   *services.AccountService
	hub        *notify.Hub
	dispatcher *notify.Dispatcher
	submission *workflow.SubmissionWorkflow
	results    *workflow.ResultWorkflow
	poller     *workflow.Poller
}

// state is a package-level variable that holds the single instance of
// StateManager.
var state = &StateManager{}

// SetupOS sets the environment variables the configuration loader uses to
// find the correct TOML files: the configuration directory prefix and the
// runtime environment (e.g. "local", "test", "prod") whose override file is
// layered on top of the base configuration.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig provides a singleton instance of the application configuration,
// loading it from the TOML files on the first call.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to set up configuration environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the entire application state and wires the pipeline
// together.
//
// This function performs the following steps:
//  1. Loads the application configuration.
//  2. Initializes the external-service clients (object store, moderation
//     service, document store).
//  3. Instantiates the repositories and the notification hub and dispatcher.
//  4. Builds the submission and result workflows over them.
//  5. Starts the background status poller that drives outstanding jobs to
//     completion.
func InitState(ctx context.Context) {
	config := GetConfig()

	serviceClients, err := cloud.NewServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = serviceClients
	state.moderation = cloud.NewModerationClient(serviceClients, config)

	state.videos = services.NewVideoService(serviceClients.DB)
	state.accounts = services.NewAccountService(serviceClients.DB)

	state.hub = notify.NewHub()
	state.dispatcher = notify.NewDispatcher(state.accounts, state.hub)

	state.submission = workflow.NewSubmissionWorkflow(config, state.moderation, state.videos)
	state.results = workflow.NewResultWorkflow(state.videos, state.dispatcher)

	state.poller = workflow.NewPoller(config, state.moderation, state.videos, state.results)
	if err := state.poller.Start(ctx); err != nil {
		panic(err)
	}
}

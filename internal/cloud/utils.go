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

// Package cloud holds configuration and external-service clients.
// This file implements the hierarchical configuration loader: a base TOML
// file is read first, then an environment-specific file (e.g.
// ".env.local.toml", ".env.test.toml") overwrites individual values. The
// directory and runtime name come from environment variables so tests and
// deployments can point at their own files.
package cloud

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileBaseName  = ".env"              // Base name for configuration files (".env.toml").
	ConfigFileExtension = ".toml"             // Extension for configuration files.
	ConfigSeparator     = "."                 // Separator in override file names (".env.local.toml").
	EnvConfigFilePrefix = "APP_CONFIG_PREFIX" // Environment variable naming the config directory.
	EnvConfigRuntime    = "APP_RUNTIME"       // Environment variable naming the runtime ("local", "test", "prod").
)

// fileExists reports whether a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig from the base TOML file, then overwrites
// values with the runtime-specific override file when one exists. The target
// must be a pointer to a Config (or compatible struct).
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	// Default to the test runtime so a bare environment never picks up
	// production settings.
	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

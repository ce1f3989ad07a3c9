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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and holds the clients for the external services the
// pipeline depends on: the object store, the moderation service, and the
// document database.
//
// This file centralizes the configuration structs so the application's
// tunable parameters live in one place.
//
// Structs:
//   - Storage: Object-store bucket and upload constraints.
//   - Moderation: Moderation-service tuning (confidence, poll cadence, wait budget).
//   - Database: Document-store connection settings.
//   - Auth: Token signing settings for the HTTP surface.
//   - Config: The top-level struct aggregating all sections.
//
// Functions:
//   - NewConfig: Constructor returning a Config with defaults applied.
package cloud

// Storage holds the object-store settings and the constraints applied to
// incoming uploads before they are stored.
type Storage struct {
	Bucket            string   `toml:"bucket"`              // The bucket that receives uploaded assets.
	Region            string   `toml:"region"`              // The provider region of the bucket and moderation service.
	Endpoint          string   `toml:"endpoint"`            // Optional endpoint override for S3-compatible stores.
	MaxFileSizeMB     int64    `toml:"max_file_size_mb"`    // Upper bound for a single upload.
	AllowedExtensions []string `toml:"allowed_extensions"`  // Accepted file extensions (e.g. ".mp4").
	AccessURLTTLSecs  int      `toml:"access_url_ttl_secs"` // Lifetime of presigned access URLs.
}

// Moderation holds the tuning parameters for job submission and the status
// poller. MaxWaitSeconds is only enforced when EnforceMaxWait is set; the
// default behavior retries a stuck job indefinitely.
type Moderation struct {
	MinConfidence       float64 `toml:"min_confidence"`        // Minimum label confidence requested from the service (0-100).
	PollIntervalSeconds int     `toml:"poll_interval_seconds"` // Sleep between poll cycles.
	MaxWaitSeconds      int     `toml:"max_wait_seconds"`      // Wall-clock budget for one job, from submission.
	EnforceMaxWait      bool    `toml:"enforce_max_wait"`      // When true, jobs over budget are finalized as failed.
	PollRatePerSecond   int     `toml:"poll_rate_per_second"`  // Rate limit for status queries toward the provider.
}

// Database holds the document-store connection settings.
type Database struct {
	URI  string `toml:"uri"`  // Connection string, e.g. "mongodb://localhost:27017".
	Name string `toml:"name"` // Database name.
}

// Auth holds the settings for issuing and verifying bearer tokens on the
// HTTP surface.
type Auth struct {
	Secret          string `toml:"secret"`            // HMAC signing secret.
	TokenTTLMinutes int    `toml:"token_ttl_minutes"` // Token lifetime.
}

// Telemetry holds the trace-export settings. An empty endpoint leaves the
// exporter disabled; spans are still created for log correlation.
type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint"` // Collector address, e.g. "localhost:4317".
}

// Config represents the overall configuration for the application, loaded
// from TOML files.
type Config struct {
	Application struct {
		Name        string   `toml:"name"`         // The name of the application, used in telemetry.
		Port        int      `toml:"port"`         // HTTP listen port.
		CORSOrigins []string `toml:"cors_origins"` // Allowed browser origins.
	} `toml:"application"`
	Storage    Storage    `toml:"storage"`
	Moderation Moderation `toml:"moderation"`
	Database   Database   `toml:"database"`
	Auth       Auth       `toml:"auth"`
	Telemetry  Telemetry  `toml:"telemetry"`
}

// NewConfig creates a Config with safe defaults for every value that has a
// sensible one; the TOML files loaded over it only need to override what
// differs per environment.
func NewConfig() *Config {
	c := &Config{}
	c.Application.Name = "video-moderation"
	c.Application.Port = 8080
	c.Storage.MaxFileSizeMB = 500
	c.Storage.AllowedExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}
	c.Storage.AccessURLTTLSecs = 3600
	c.Moderation.MinConfidence = 60.0
	c.Moderation.PollIntervalSeconds = 5
	c.Moderation.MaxWaitSeconds = 300
	c.Moderation.PollRatePerSecond = 5
	c.Auth.TokenTTLMinutes = 60 * 24
	return c
}

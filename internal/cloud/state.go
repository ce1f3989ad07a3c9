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
// This file initializes every client the application talks to and bundles
// them in a single ServiceClients struct that is passed through the
// application as a dependency container.
//
// Logic Flow:
//  1. NewServiceClients is called at startup with the loaded Config.
//  2. It builds one shared provider session (region, optional endpoint
//     override for S3-compatible stores) with credentials resolved from the
//     standard environment/credential chain.
//  3. From that session it derives the object-store client, the multipart
//     uploader, and the moderation-service client.
//  4. It connects to the document store and verifies the connection.
//  5. The assembled struct is used by the repositories, the workflows and
//     the API handlers; Close tears the connections down at shutdown.
package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ServiceClients is the container for every external-service client the
// application uses. It is created once at startup and shared.
type ServiceClients struct {
	Session     *session.Session         // Shared provider session (credentials, region).
	S3          *s3.S3                   // Object-store client, used for presigning and deletes.
	Uploader    *s3manager.Uploader      // Managed multipart uploader for asset storage.
	Rekognition *rekognition.Rekognition // Moderation-service client.
	Mongo       *mongo.Client            // Document-store client.
	DB          *mongo.Database          // Handle on the application database.
}

// Close releases the document-store connection. The provider session holds
// no persistent connections of its own.
func (c *ServiceClients) Close() {
	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Mongo.Disconnect(ctx)
	}
}

// NewServiceClients initializes all external-service clients from the
// application configuration.
func NewServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Storage.Region),
	}
	// An explicit endpoint switches the store client into path-style mode,
	// which S3-compatible providers require.
	if config.Storage.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Storage.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider session: %w", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(config.Database.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to reach document store at %s: %w", config.Database.URI, err)
	}

	return &ServiceClients{
		Session:     sess,
		S3:          s3.New(sess),
		Uploader:    s3manager.NewUploader(sess),
		Rekognition: rekognition.New(sess),
		Mongo:       mongoClient,
		DB:          mongoClient.Database(config.Database.Name),
	}, nil
}

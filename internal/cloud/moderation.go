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
// This file defines the moderation-service boundary: the ModerationService
// contract the pipeline depends on, the error taxonomy callers dispatch on,
// and the provider-backed implementation over the object store and the
// content-moderation API.
//
// The raw provider payloads never cross this boundary. Label detections are
// converted into the typed model.ModerationLabel immediately, so the result
// processor only ever sees strongly-typed values.
//
// Error taxonomy:
//   - StorageError: the asset could not be written to the object store.
//   - SubmissionError: the service rejected the asset or was unreachable
//     when the job was started.
//   - TransientPollError: a status query failed on the wire; the job itself
//     is not known to have failed, callers must retry on the next cycle.
//   - NotFoundError: the stored object no longer exists.
package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

// StorageRef identifies a stored asset in the object store.
type StorageRef struct {
	Bucket string
	Key    string
}

// URI returns the provider-style address of the object, used in logs.
func (r StorageRef) URI() string {
	return fmt.Sprintf("s3://%s/%s", r.Bucket, r.Key)
}

// StorageError indicates the asset could not be written to the object store.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage failure for %q: %v", e.Key, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// SubmissionError indicates the moderation service rejected the asset or was
// unreachable when the job was started.
type SubmissionError struct {
	Key string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("moderation submission failure for %q: %v", e.Key, e.Err)
}
func (e *SubmissionError) Unwrap() error { return e.Err }

// TransientPollError indicates a status query failed on the wire. The job is
// not known to have failed; the caller retries on the next poll cycle.
type TransientPollError struct {
	JobID string
	Err   error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("transient poll failure for job %q: %v", e.JobID, e.Err)
}
func (e *TransientPollError) Unwrap() error { return e.Err }

// NotFoundError indicates the stored object no longer exists.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("object %q not found", e.Key) }

// ModerationService is the contract the pipeline requires from the remote
// object-store and moderation-service boundary. The production implementation
// is ModerationClient; tests substitute in-memory fakes.
type ModerationService interface {
	// Store writes the asset under the given key. Calling it twice with
	// the same key overwrites, so retries are safe.
	Store(ctx context.Context, data []byte, key string, contentType string) (*StorageRef, error)

	// SubmitJob starts a moderation job for a stored asset and returns the
	// provider job id.
	SubmitJob(ctx context.Context, ref *StorageRef, minConfidence float64) (string, error)

	// PollJob queries job status in a single non-blocking round trip.
	// Labels are populated only when the job has succeeded.
	PollJob(ctx context.Context, jobID string) (*model.JobResult, error)

	// AccessURL generates a time-bounded direct-access URL for the object.
	AccessURL(ctx context.Context, ref *StorageRef, ttl time.Duration) (string, error)

	// DeleteObject removes the object. Callers treat failures as
	// best-effort: log and move on.
	DeleteObject(ctx context.Context, ref *StorageRef) error
}

// ModerationClient is the provider-backed ModerationService. Status queries
// are rate limited so a large backlog of outstanding jobs cannot exhaust the
// provider's request quota in a single poll cycle.
type ModerationClient struct {
	uploader    *s3manager.Uploader
	s3          *s3.S3
	rekognition *rekognition.Rekognition
	bucket      string
	limiter     *rate.Limiter
}

// NewModerationClient builds the provider-backed client from the shared
// service clients and configuration.
func NewModerationClient(clients *ServiceClients, config *Config) *ModerationClient {
	perSecond := config.Moderation.PollRatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	return &ModerationClient{
		uploader:    clients.Uploader,
		s3:          clients.S3,
		rekognition: clients.Rekognition,
		bucket:      config.Storage.Bucket,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// Store uploads the asset bytes, retrying transient failures with
// exponential backoff. Overwrite semantics make the retries idempotent.
func (c *ModerationClient) Store(ctx context.Context, data []byte, key string, contentType string) (*StorageRef, error) {
	input := &s3manager.UploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err := backoff.Retry(func() error {
		input.Body = bytes.NewReader(data)
		_, err := c.uploader.UploadWithContext(ctx, input)
		return err
	}, policy)
	if err != nil {
		return nil, &StorageError{Key: key, Err: err}
	}
	return &StorageRef{Bucket: c.bucket, Key: key}, nil
}

// SubmitJob starts a content-moderation job for the stored asset with the
// configured minimum-confidence threshold.
func (c *ModerationClient) SubmitJob(ctx context.Context, ref *StorageRef, minConfidence float64) (string, error) {
	out, err := c.rekognition.StartContentModerationWithContext(ctx, &rekognition.StartContentModerationInput{
		Video: &rekognition.Video{
			S3Object: &rekognition.S3Object{
				Bucket: aws.String(ref.Bucket),
				Name:   aws.String(ref.Key),
			},
		},
		MinConfidence: aws.Float64(minConfidence),
	})
	if err != nil {
		return "", &SubmissionError{Key: ref.Key, Err: err}
	}
	return aws.StringValue(out.JobId), nil
}

// PollJob performs one status query, sorted by timestamp so the label list
// follows the video timeline. The raw detections are converted to typed
// labels before they leave this boundary.
func (c *ModerationClient) PollJob(ctx context.Context, jobID string) (*model.JobResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientPollError{JobID: jobID, Err: err}
	}

	out, err := c.rekognition.GetContentModerationWithContext(ctx, &rekognition.GetContentModerationInput{
		JobId:  aws.String(jobID),
		SortBy: aws.String(rekognition.ContentModerationSortByTimestamp),
	})
	if err != nil {
		return nil, &TransientPollError{JobID: jobID, Err: err}
	}

	result := &model.JobResult{Status: model.JobStatus(aws.StringValue(out.JobStatus))}
	if result.Status == model.JobSucceeded {
		result.Labels = convertLabels(out.ModerationLabels)
	}
	return result, nil
}

// AccessURL verifies the object still exists, then presigns a GET for it.
func (c *ModerationClient) AccessURL(ctx context.Context, ref *StorageRef, ttl time.Duration) (string, error) {
	_, err := c.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey) {
			return "", &NotFoundError{Key: ref.Key}
		}
		return "", fmt.Errorf("failed to stat object %q: %w", ref.Key, err)
	}

	req, _ := c.s3.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign access url for %q: %w", ref.Key, err)
	}
	return url, nil
}

// DeleteObject removes the stored asset.
func (c *ModerationClient) DeleteObject(ctx context.Context, ref *StorageRef) error {
	_, err := c.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", ref.Key, err)
	}
	return nil
}

// convertLabels flattens the provider detection envelope into the typed
// label model.
func convertLabels(detections []*rekognition.ContentModerationDetection) []*model.ModerationLabel {
	labels := make([]*model.ModerationLabel, 0, len(detections))
	for _, d := range detections {
		if d == nil || d.ModerationLabel == nil {
			continue
		}
		labels = append(labels, &model.ModerationLabel{
			Name:        aws.StringValue(d.ModerationLabel.Name),
			Confidence:  aws.Float64Value(d.ModerationLabel.Confidence),
			TimestampMs: aws.Int64Value(d.Timestamp),
			Parent:      aws.StringValue(d.ModerationLabel.ParentName),
		})
	}
	return labels
}

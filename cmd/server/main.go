// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the video moderation backend server.
//
// This application sets up and runs a web server using the Gin framework. It
// provides a REST API for uploading videos, tracking their moderation
// lifecycle, and streaming cleared content, plus a websocket endpoint that
// pushes terminal processing events to connected clients. The server is
// instrumented with OpenTelemetry for logging, tracing, and metrics.
//
// The main function initializes the application's configuration, sets up
// logging and telemetry, and initializes the application state, including
// the object-store and moderation-service clients, the document store, and
// the background status poller that drives outstanding moderation jobs to
// completion.
//
// Functions:
//   - main: The main entry point. It sets up the server, configures routes,
//     initializes services, and handles graceful shutdown.
//   - VideoRouter: Routes for uploading, listing, fetching, streaming, and
//     deleting videos.
//   - AccountRouter: Routes for registration, login, and connecting accounts
//     to an owner's notification fan-out.
//   - NotificationRouter: The websocket endpoint clients subscribe to for
//     processing events.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/norisrivatsa/VideoProcessingApp/internal/cloud"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/commands"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	otelShutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Add OpenTelemetry middleware to trace incoming requests.
	r.Use(otelgin.Middleware(config.Application.Name))

	// Restrict browser origins when the config names them; otherwise fall
	// back to the permissive default for local development.
	if len(config.Application.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = config.Application.CORSOrigins
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
		r.Use(cors.New(corsConfig))
	} else {
		r.Use(cors.Default())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		AccountRouter(apiV1)
		VideoRouter(apiV1)
		Dashboard(apiV1)
	}
	NotificationRouter(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Application.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready", "port", config.Application.Port)

	// Block until the root context is cancelled by an interrupt.
	waitForShutdown(ctx, cancel)

	slog.Info("Shutdown Server ...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}

	// Stop the poll loop before tearing down the clients it depends on.
	state.poller.Stop()
	state.hub.Close()
	state.cloud.Close()
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown failed", "error", err)
	}

	log.Println("Server exiting")
}

// VideoRouter sets up the API routes for the video lifecycle.
//
// This function defines the following endpoints, all requiring a bearer
// token:
//   - POST /videos: Uploads one video and submits it for moderation.
//   - GET /videos: Lists the caller's videos, optionally filtered by status.
//   - GET /videos/:id: Retrieves one video record.
//   - GET /videos/:id/stream: Generates a time-limited access URL for
//     content that cleared moderation.
//   - DELETE /videos/:id: Removes the record and, best-effort, the stored
//     object.
func VideoRouter(r *gin.RouterGroup) {
	videos := r.Group("/videos")
	videos.Use(AuthRequired())
	{
		videos.POST("", func(c *gin.Context) {
			request, err := buildUploadRequest(c)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			video, err := state.submission.Submit(c.Request.Context(), request)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "video submission failed", "error", err)
				// The record, when present, is already terminal failed;
				// return it so the client can show the outcome.
				c.JSON(http.StatusBadGateway, gin.H{
					"error": "failed to submit video for analysis",
					"video": video,
				})
				return
			}
			c.JSON(http.StatusCreated, video)
		})

		videos.GET("", func(c *gin.Context) {
			status := model.VideoStatus(c.Query("status"))
			out, err := state.videos.List(c.Request.Context(), callerID(c), status)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "failed to list videos", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		videos.GET("/:id", func(c *gin.Context) {
			video, ok := ownedVideo(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, video)
		})

		videos.GET("/:id/stream", func(c *gin.Context) {
			video, ok := ownedVideo(c)
			if !ok {
				return
			}
			switch video.Status {
			case model.VideoStatusCompleted:
			case model.VideoStatusFlagged:
				c.JSON(http.StatusForbidden, gin.H{"error": "video was flagged and cannot be streamed"})
				return
			default:
				c.JSON(http.StatusConflict, gin.H{"error": "video analysis has not completed"})
				return
			}

			ttl := time.Duration(state.config.Storage.AccessURLTTLSecs) * time.Second
			ref := &cloud.StorageRef{Bucket: state.config.Storage.Bucket, Key: video.StorageKey}
			url, err := state.moderation.AccessURL(c.Request.Context(), ref, ttl)
			if err != nil {
				var notFound *cloud.NotFoundError
				if errors.As(err, &notFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "stored video no longer exists"})
					return
				}
				slog.ErrorContext(c.Request.Context(), "failed to generate streaming url", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate streaming URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
		})

		videos.DELETE("/:id", func(c *gin.Context) {
			video, ok := ownedVideo(c)
			if !ok {
				return
			}
			if video.StorageKey != "" {
				ref := &cloud.StorageRef{Bucket: state.config.Storage.Bucket, Key: video.StorageKey}
				if err := state.moderation.DeleteObject(c.Request.Context(), ref); err != nil {
					slog.WarnContext(c.Request.Context(), "failed to delete stored object",
						"video", video.ID, "error", err)
				}
			}
			if err := state.videos.Delete(c.Request.Context(), video.ID); err != nil {
				slog.ErrorContext(c.Request.Context(), "failed to delete video record", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}
}

// AccountRouter sets up the account and authentication routes.
func AccountRouter(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("/register", func(c *gin.Context) {
			var in struct {
				Username string `json:"username" binding:"required"`
				Email    string `json:"email" binding:"required"`
				Password string `json:"password" binding:"required"`
			}
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			account, err := state.accounts.Register(c.Request.Context(), in.Username, in.Email, in.Password, model.RoleViewer)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "registration failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"id": account.ID, "username": account.Username})
		})

		accounts.POST("/login", func(c *gin.Context) {
			var in struct {
				Email    string `json:"email" binding:"required"`
				Password string `json:"password" binding:"required"`
			}
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			account, err := state.accounts.Authenticate(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			token, err := issueToken(account)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "failed to sign token", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token, "accountId": account.ID})
		})

		// Connecting an account subscribes it to the caller's processing
		// events.
		accounts.POST("/connect", AuthRequired(), func(c *gin.Context) {
			var in struct {
				AccountID string `json:"accountId" binding:"required"`
			}
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := state.accounts.Connect(c.Request.Context(), callerID(c), in.AccountID); err != nil {
				slog.ErrorContext(c.Request.Context(), "failed to connect account", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}
}

// NotificationRouter registers the websocket endpoint. The recipient id in
// the path must match the authenticated caller: an account only ever
// subscribes to its own channel, and receives events for connected owners
// because the dispatcher fans out to it directly.
func NotificationRouter(r *gin.Engine) {
	r.GET("/ws/:recipient", AuthRequired(), func(c *gin.Context) {
		recipient := c.Param("recipient")
		if recipient != callerID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot subscribe to another account's channel"})
			return
		}
		if err := state.hub.ServeWS(c.Writer, c.Request, recipient); err != nil {
			slog.ErrorContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		}
	})
}

// buildUploadRequest validates the multipart upload and assembles the
// pipeline input. Validation covers the declared extension, the configured
// size limit, and a content sniff that must agree the payload is video.
func buildUploadRequest(c *gin.Context) (*commands.UploadRequest, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !extensionAllowed(ext) {
		return nil, fmt.Errorf("file extension %q is not allowed", ext)
	}

	maxBytes := state.config.Storage.MaxFileSizeMB * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("file exceeds the %d MB limit", state.config.Storage.MaxFileSizeMB)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("failed to close upload stream: %v\n", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil || !strings.HasPrefix(kind.MIME.Value, "video/") {
		return nil, errors.New("file content is not a recognized video format")
	}

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}

	return &commands.UploadRequest{
		OwnerID:     callerID(c),
		Title:       title,
		Filename:    fileHeader.Filename,
		ContentType: kind.MIME.Value,
		Data:        data,
	}, nil
}

func extensionAllowed(ext string) bool {
	for _, allowed := range state.config.Storage.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// waitForShutdown blocks until an interrupt or termination signal arrives,
// then cancels the root context so background loops begin winding down.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	cancel()
}

// ownedVideo loads the path video and enforces that the caller owns it. It
// writes the error response itself and reports success through the bool.
func ownedVideo(c *gin.Context) (*model.Video, bool) {
	video, err := state.videos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return nil, false
	}
	if video.OwnerID != callerID(c) {
		c.Status(http.StatusForbidden)
		return nil, false
	}
	return video, true
}

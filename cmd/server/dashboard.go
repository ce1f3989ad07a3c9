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

// Package main contains the API route definitions for the server. This file
// defines the dashboard endpoint summarizing the caller's library.
//
// Functions:
//   - Dashboard: Sets up the "/stats" route group with a summary endpoint
//     reporting video counts per lifecycle status.
package main

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the statistics routes under "/stats".
//
// The GET endpoint returns the caller's video counts bucketed by status,
// which is what the library overview screen renders.
func Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	stats.Use(AuthRequired())
	{
		stats.GET("", func(c *gin.Context) {
			videos, err := state.videos.List(c.Request.Context(), callerID(c), "")
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "failed to load stats", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}

			counts := make(map[string]int)
			for _, v := range videos {
				counts[string(v.Status)]++
			}
			c.JSON(http.StatusOK, gin.H{
				"total":    len(videos),
				"byStatus": counts,
			})
		})
	}
}

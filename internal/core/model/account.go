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

// Package model defines the core data structures for the application.
// This file holds the Account record. For moderation-notification purposes a
// video is owned by exactly one account, and an owner may have further
// accounts registered under it (viewers and editors working on the owner's
// library) that receive the same processing events.
package model

import "time"

// AccountRole controls what an account may do with the video library.
type AccountRole string

const (
	RoleViewer AccountRole = "viewer"
	RoleEditor AccountRole = "editor"
	RoleAdmin  AccountRole = "admin"
)

// Account is a persistent user record.
type Account struct {
	ID                string      `bson:"_id,omitempty" json:"id"`
	Username          string      `bson:"username" json:"username"`
	Email             string      `bson:"email" json:"email"`
	HashedPassword    string      `bson:"hashed_password" json:"-"`
	Role              AccountRole `bson:"role" json:"role"`
	ConnectedAccounts []string    `bson:"connected_accounts,omitempty" json:"connectedAccounts,omitempty"` // Ids of accounts registered under this owner.
	CreatedAt         time.Time   `bson:"created_at" json:"createdAt"`
}

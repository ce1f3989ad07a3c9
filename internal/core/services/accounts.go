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

// Package services contains the data access layer over the document store.
// This file defines the AccountService: account records, credential
// handling, and the connected-account resolution the notification dispatcher
// uses to fan processing events out beyond the video owner.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

// AccountCollection is the name of the collection holding Account records.
const AccountCollection = "accounts"

// ErrInvalidCredentials is returned by Authenticate when the email is
// unknown or the password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountService is the repository for Account records.
type AccountService struct {
	DB *mongo.Database
}

// NewAccountService returns a repository bound to the application database.
func NewAccountService(db *mongo.Database) *AccountService {
	return &AccountService{DB: db}
}

func (s *AccountService) collection() *mongo.Collection {
	return s.DB.Collection(AccountCollection)
}

// Register creates a new account with a hashed password and returns it.
func (s *AccountService) Register(ctx context.Context, username, email, password string, role model.AccountRole) (*model.Account, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: string(hashed),
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.collection().InsertOne(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return account, nil
}

// Authenticate verifies an email/password pair and returns the account.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	account := &model.Account{}
	err := s.collection().FindOne(ctx, bson.M{"email": email}).Decode(account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// Get retrieves a single account by id.
func (s *AccountService) Get(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(account)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", id, err)
	}
	return account, nil
}

// ConnectedAccountIDs resolves the accounts registered under an owner. An
// unknown owner yields an empty set rather than an error: a missing account
// record must not block a notification to the owner id itself.
func (s *AccountService) ConnectedAccountIDs(ctx context.Context, ownerID string) ([]string, error) {
	account := &model.Account{}
	err := s.collection().FindOne(ctx, bson.M{"_id": ownerID}).Decode(account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve connected accounts for %s: %w", ownerID, err)
	}
	return account.ConnectedAccounts, nil
}

// Connect registers an account under an owner so it receives the owner's
// processing events. The $addToSet keeps the list free of duplicates.
func (s *AccountService) Connect(ctx context.Context, ownerID, accountID string) error {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$addToSet": bson.M{"connected_accounts": accountID}})
	if err != nil {
		return fmt.Errorf("failed to connect account %s to owner %s: %w", accountID, ownerID, err)
	}
	return nil
}

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

// Package main contains the bearer-token handling for the HTTP surface:
// issuing signed tokens at login and the middleware that authenticates
// every protected route.
//
// Functions:
//   - issueToken: Signs a token carrying the account id and role.
//   - AuthRequired: Gin middleware validating the Authorization header and
//     exposing the caller's account id to the handlers.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

// accountIDKey is the gin context key the middleware stores the
// authenticated account id under.
const accountIDKey = "account_id"

type tokenClaims struct {
	Role model.AccountRole `json:"role"`
	jwt.RegisteredClaims
}

// issueToken signs a bearer token for an authenticated account.
func issueToken(account *model.Account) (string, error) {
	ttl := time.Duration(state.config.Auth.TokenTTLMinutes) * time.Minute
	claims := &tokenClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(state.config.Auth.Secret))
}

// parseToken validates a signed token and returns its claims.
func parseToken(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return []byte(state.config.Auth.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AuthRequired rejects requests without a valid bearer token and stores the
// authenticated account id on the request context for the handlers.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := parseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(accountIDKey, claims.Subject)
		c.Next()
	}
}

// callerID returns the authenticated account id set by AuthRequired.
func callerID(c *gin.Context) string {
	return c.GetString(accountIDKey)
}

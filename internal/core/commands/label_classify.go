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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// classification step of the result chain: turning the raw moderation labels
// of a succeeded job into a policy verdict.
//
// The classification itself lives in the moderation package and is a pure
// function; this command only adapts it to the chain's piping.
package commands

import (
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/moderation"
)

// GetVerdictParameterName returns the canonical context key holding the
// *model.Verdict produced by classification.
func GetVerdictParameterName() string {
	return "__VERDICT__"
}

// LabelClassify is the command that evaluates moderation labels against the
// content policy.
type LabelClassify struct {
	cor.BaseCommand
}

// NewLabelClassify is the constructor for the LabelClassify command.
func NewLabelClassify(name string) *LabelClassify {
	return &LabelClassify{BaseCommand: *cor.NewBaseCommand(name)}
}

// IsExecutable accepts an empty label list: a succeeded job with no
// detections is a valid, safe outcome, so the default non-nil input check is
// relaxed to only require a context.
func (c *LabelClassify) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the pure classifier and publishes the verdict.
func (c *LabelClassify) Execute(context cor.Context) {
	var labels []*model.ModerationLabel
	if in := context.Get(c.GetInputParam()); in != nil {
		labels = in.([]*model.ModerationLabel)
	}

	verdict := moderation.Classify(labels)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVerdictParameterName(), verdict)
	context.Add(c.GetOutputParam(), verdict)
}

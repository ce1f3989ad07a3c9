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

// Package cor (Chain of Responsibility) provides the building blocks for the
// processing pipelines: atomic commands, chains that execute them in order,
// and a shared context that carries data and errors between them. The
// interfaces keep the framework independent of any particular pipeline, so
// the same plumbing drives both the submission chain and the result chain.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a chain uses to pipe data between commands:
// whatever a command stores under CtxOut becomes the next command's CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution. It is a property
// bag carrying inputs, outputs, collected errors, and the Go context used for
// cancellation and tracing.
type Context interface {
	// SetContext sets the standard Go context, used for cancellation
	// signals and trace propagation.
	SetContext(context context.Context)

	// GetContext retrieves the standard Go context.
	GetContext() context.Context

	// Add stores a key-value pair. It returns the Context so calls can be
	// chained fluently.
	Add(key string, value interface{}) Context

	// AddError records an error under the name of the command that
	// produced it.
	AddError(key string, err error)

	// GetErrors returns all errors collected during the workflow.
	GetErrors() map[string]error

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any command recorded an error.
	HasErrors() bool
}

// Executable is anything with a core execution step.
type Executable interface {
	// Execute runs the business logic, reading inputs from the Context and
	// writing results back to it.
	Execute(context Context)
}

// Command is an atomic, thread-safe unit of work, the fundamental building
// block of a workflow.
type Command interface {
	Executable

	// GetName returns the command name used for logging and telemetry.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its
	// primary output to.
	GetOutputParam() string

	// IsExecutable is the precondition check run before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains can nest.
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after
	// a command records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}

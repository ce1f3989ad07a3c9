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
// last command of the result chain: announcing the terminal outcome to the
// owner and every connected account.
//
// The dispatch happens after the terminal transition has committed, so this
// command never records an error on the chain. A notification that cannot be
// delivered is logged inside the dispatcher and lost; the durable state is
// already correct and the client can always re-query it.
package commands

import (
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/cor"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
)

// NotifyFanout is the command that emits the processing_completed event.
type NotifyFanout struct {
	cor.BaseCommand
	dispatcher *notify.Dispatcher
}

// NewNotifyFanout is the constructor for the NotifyFanout command.
func NewNotifyFanout(name string, dispatcher *notify.Dispatcher) *NotifyFanout {
	return &NotifyFanout{BaseCommand: *cor.NewBaseCommand(name), dispatcher: dispatcher}
}

// Execute fans the completion event out to the recipient set.
func (c *NotifyFanout) Execute(context cor.Context) {
	video := context.Get(c.GetInputParam()).(*model.Video)

	var verdict *model.Verdict
	if v := context.Get(GetVerdictParameterName()); v != nil {
		verdict = v.(*model.Verdict)
	}

	c.dispatcher.DispatchCompleted(context.GetContext(), video, verdict)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), video)
}

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

// Package moderation implements the label-classification policy: the pure
// function that turns the list of moderation labels returned by the analysis
// service into a safety verdict.
//
// Policy:
//   - A fixed set of category names is flaggable. A label flags the video when
//     its own name or its parent category name is in that set.
//   - A smaller suggestive set exists for tunability but does not trigger
//     flagging on its own.
//   - Flags are deduplicated by name in first-seen order, then bucketed into
//     violence / nsfw / disturbing / other by case-insensitive substring match
//     on the flag name. Each flag lands in exactly one bucket.
//   - Confidence thresholding is delegated entirely to the service's own
//     minimum-confidence parameter at submission time; the max confidence
//     recorded here is diagnostic only.
//
// Classify has no side effects and no dependencies, so it is unit-testable in
// isolation and safe to call from any goroutine.
package moderation

import (
	"strings"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
)

// maxLabelDetails caps the label snapshot copied onto the persistent record.
const maxLabelDetails = 10

// flaggableCategories lists the label or parent-category names that mark a
// video as flagged.
var flaggableCategories = map[string]struct{}{
	"Explicit Nudity":              {},
	"Nudity":                       {},
	"Graphic Male Nudity":          {},
	"Graphic Female Nudity":        {},
	"Sexual Activity":              {},
	"Illustrated Explicit Nudity":  {},
	"Adult Toys":                   {},
	"Violence":                     {},
	"Graphic Violence":             {},
	"Physical Violence":            {},
	"Weapon Violence":              {},
	"Weapons":                      {},
	"Self Injury":                  {},
	"Emaciated Bodies":             {},
	"Corpses":                      {},
	"Hanging":                      {},
	"Air Crash":                    {},
	"Explosions And Blasts":        {},
	"Visually Disturbing":          {},
	"Gambling":                     {},
	"Hate Symbols":                 {},
	"Rude Gestures":                {},
	"Middle Finger":                {},
}

// suggestiveCategories are lower-severity labels. They are tracked as a named
// set so the policy can be tightened later, but they do not flag on their own.
var suggestiveCategories = map[string]struct{}{
	"Suggestive":                   {},
	"Female Swimwear Or Underwear": {},
	"Male Swimwear Or Underwear":   {},
	"Revealing Clothes":            {},
	"Partial Nudity":               {},
}

// IsSuggestive reports whether a label name is in the suggestive set.
func IsSuggestive(name string) bool {
	_, ok := suggestiveCategories[name]
	return ok
}

// Classify derives a Verdict from the ordered label list of a completed
// moderation job. It is deterministic: the same input always yields the same
// verdict.
func Classify(labels []*model.ModerationLabel) *model.Verdict {
	verdict := &model.Verdict{
		Flags:           make([]string, 0),
		ViolenceFlags:   make([]string, 0),
		NsfwFlags:       make([]string, 0),
		DisturbingFlags: make([]string, 0),
		OtherFlags:      make([]string, 0),
		TotalLabels:     len(labels),
	}

	seen := make(map[string]struct{})
	for _, label := range labels {
		if len(verdict.LabelDetails) < maxLabelDetails {
			verdict.LabelDetails = append(verdict.LabelDetails, label)
		}
		if label.Confidence > verdict.MaxConfidence {
			verdict.MaxConfidence = label.Confidence
		}

		_, nameFlagged := flaggableCategories[label.Name]
		_, parentFlagged := flaggableCategories[label.Parent]
		if !nameFlagged && !parentFlagged {
			continue
		}
		if _, dup := seen[label.Name]; dup {
			continue
		}
		seen[label.Name] = struct{}{}
		verdict.Flags = append(verdict.Flags, label.Name)
	}

	verdict.IsFlagged = len(verdict.Flags) > 0

	// Bucket each flag exactly once: violence wins over nsfw wins over
	// disturbing, anything unmatched falls into other.
	for _, flag := range verdict.Flags {
		lower := strings.ToLower(flag)
		switch {
		case strings.Contains(lower, "violence") || strings.Contains(lower, "weapon"):
			verdict.ViolenceFlags = append(verdict.ViolenceFlags, flag)
		case strings.Contains(lower, "nudity") || strings.Contains(lower, "sexual"):
			verdict.NsfwFlags = append(verdict.NsfwFlags, flag)
		case strings.Contains(lower, "disturbing") || strings.Contains(lower, "corpse") || strings.Contains(lower, "injury"):
			verdict.DisturbingFlags = append(verdict.DisturbingFlags, flag)
		default:
			verdict.OtherFlags = append(verdict.OtherFlags, flag)
		}
	}

	return verdict
}

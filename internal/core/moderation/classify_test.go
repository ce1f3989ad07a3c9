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

package moderation_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/zeebo/assert"

	"github.com/norisrivatsa/VideoProcessingApp/internal/core/model"
	"github.com/norisrivatsa/VideoProcessingApp/internal/core/moderation"
	test "github.com/norisrivatsa/VideoProcessingApp/internal/testutil"
)

func TestClassifyEmptyLabelSetIsSafe(t *testing.T) {
	verdict := moderation.Classify(nil)
	assert.False(t, verdict.IsFlagged)
	assert.Equal(t, 0, len(verdict.Flags))
	assert.Equal(t, 0, verdict.TotalLabels)
	assert.Equal(t, 0.0, verdict.MaxConfidence)
}

func TestClassifyFlagsByParentCategory(t *testing.T) {
	labels := []*model.ModerationLabel{
		// The leaf name is unknown to the policy; only the parent is
		// flaggable.
		{Name: "Prop Firearm", Confidence: 80.0, TimestampMs: 100, Parent: "Weapons"},
	}
	verdict := moderation.Classify(labels)
	assert.True(t, verdict.IsFlagged)
	assert.DeepEqual(t, []string{"Prop Firearm"}, verdict.Flags)
}

func TestClassifyWeaponsFootage(t *testing.T) {
	verdict := moderation.Classify(test.GetWeaponsLabels())

	assert.True(t, verdict.IsFlagged)
	// Duplicates collapse by name in first-seen order.
	assert.DeepEqual(t, []string{"Weapons", "Weapon Violence"}, verdict.Flags)
	assert.DeepEqual(t, []string{"Weapons", "Weapon Violence"}, verdict.ViolenceFlags)
	assert.Equal(t, 0, len(verdict.NsfwFlags))
	assert.Equal(t, 91.0, verdict.MaxConfidence)
	assert.Equal(t, 3, verdict.TotalLabels)
}

func TestClassifySuggestiveOnlyDoesNotFlag(t *testing.T) {
	verdict := moderation.Classify(test.GetSuggestiveLabels())
	assert.False(t, verdict.IsFlagged)
	assert.Equal(t, 0, len(verdict.Flags))
	assert.True(t, moderation.IsSuggestive("Revealing Clothes"))
	assert.False(t, moderation.IsSuggestive("Weapons"))
}

func TestClassifyBucketsPartitionFlags(t *testing.T) {
	verdict := moderation.Classify(test.GetMixedLabels())

	assert.True(t, verdict.IsFlagged)

	// Every flag lands in exactly one bucket and the buckets cover the
	// flag list.
	buckets := [][]string{
		verdict.ViolenceFlags,
		verdict.NsfwFlags,
		verdict.DisturbingFlags,
		verdict.OtherFlags,
	}
	total := 0
	seen := make(map[string]int)
	for _, bucket := range buckets {
		total += len(bucket)
		for _, flag := range bucket {
			seen[flag]++
		}
	}
	assert.Equal(t, len(verdict.Flags), total)
	for _, flag := range verdict.Flags {
		assert.Equal(t, 1, seen[flag])
	}

	assert.DeepEqual(t, []string{"Graphic Violence Or Gore"}, verdict.ViolenceFlags)
	assert.DeepEqual(t, []string{"Explicit Nudity"}, verdict.NsfwFlags)
	// "Emaciated Bodies" matches no bucket substring, so it falls through
	// to the other bucket alongside "Hate Symbols".
	assert.Equal(t, 0, len(verdict.DisturbingFlags))
	assert.DeepEqual(t, []string{"Emaciated Bodies", "Hate Symbols"}, verdict.OtherFlags)
}

func TestClassifyIsDeterministic(t *testing.T) {
	labels := test.GetMixedLabels()
	first := moderation.Classify(labels)
	second := moderation.Classify(labels)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("classification of identical input diverged:\n%+v\n%+v", first, second)
	}
}

func TestClassifyCapsLabelSnapshot(t *testing.T) {
	labels := make([]*model.ModerationLabel, 0, 25)
	for i := 0; i < 25; i++ {
		labels = append(labels, &model.ModerationLabel{
			Name:        fmt.Sprintf("Weapons %d", i),
			Confidence:  50.0 + float64(i),
			TimestampMs: int64(i * 100),
			Parent:      "Weapons",
		})
	}
	verdict := moderation.Classify(labels)
	assert.Equal(t, 10, len(verdict.LabelDetails))
	assert.Equal(t, 25, verdict.TotalLabels)
	assert.Equal(t, 25, len(verdict.Flags))
	assert.Equal(t, 74.0, verdict.MaxConfidence)
}

package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	one, two := 1, 2

	tests := []struct {
		name     string
		old      *FlowState
		new      *FlowState
		wantDiff *FlowDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &FlowState{
				SubscriptionID: "sub-1",
				StepIndex:      1,
				Answers:        Answers{"a": "x"},
			},
			wantDiff: &FlowDiff{
				SubscriptionID: "sub-1",
				StepIndex:      &one,
				Answers:        map[Field]any{"a": "x"},
			},
		},
		{
			name: "No Changes",
			old: &FlowState{
				SubscriptionID: "sub-1",
				StepIndex:      1,
				Answers:        Answers{"a": "x"},
			},
			new: &FlowState{
				SubscriptionID: "sub-1",
				StepIndex:      1,
				Answers:        Answers{"a": "x"},
			},
			wantDiff: nil,
		},
		{
			name: "Step Change & Answer Added",
			old: &FlowState{
				SubscriptionID: "sub-1",
				StepIndex:      1,
				Answers:        Answers{},
			},
			new: &FlowState{
				SubscriptionID: "sub-1",
				StepIndex:      2,
				Answers:        Answers{"a": []any{"r1"}},
			},
			wantDiff: &FlowDiff{
				SubscriptionID: "sub-1",
				StepIndex:      &two,
				Answers:        map[Field]any{"a": []any{"r1"}},
			},
		},
		{
			name: "Answer Purged",
			old: &FlowState{
				Answers: Answers{"a": 1, "b": 2},
			},
			new: &FlowState{
				Answers: Answers{"a": 1},
			},
			wantDiff: &FlowDiff{
				Answers: map[Field]any{"b": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %v", tt.wantDiff)
			}

			if got.SubscriptionID != tt.wantDiff.SubscriptionID {
				t.Errorf("Diff().SubscriptionID = %v, want %v", got.SubscriptionID, tt.wantDiff.SubscriptionID)
			}
			if !reflect.DeepEqual(got.Answers, tt.wantDiff.Answers) {
				t.Errorf("Diff().Answers = %v, want %v", got.Answers, tt.wantDiff.Answers)
			}
			if !equalPtr(got.StepIndex, tt.wantDiff.StepIndex) {
				t.Errorf("Diff().StepIndex = %v, want %v", got.StepIndex, tt.wantDiff.StepIndex)
			}
		})
	}
}

func TestDiffRemoved(t *testing.T) {
	d := Diff(&FlowState{Answers: Answers{"a": 1, "b": 2}}, &FlowState{Answers: Answers{"a": 1}})
	if got := d.Removed(); !reflect.DeepEqual(got, []Field{"b"}) {
		t.Errorf("Removed() = %v, want [b]", got)
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &FlowState{Answers: Answers{"a": 1, "b": 2}}
		s2 := &FlowState{Answers: Answers{"a": 1}}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

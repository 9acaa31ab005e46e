package models

import (
	"testing"
	"time"
)

func TestNewRunContext(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "utc midnight",
			input:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: "2024-01-01T00:00:00.000Z",
		},
		{
			name:     "milliseconds kept, finer precision dropped",
			input:    time.Date(2024, 6, 30, 23, 59, 59, 123456789, time.UTC),
			expected: "2024-06-30T23:59:59.123Z",
		},
		{
			name:     "converted to utc",
			input:    time.Date(2024, 1, 1, 3, 0, 0, 0, time.FixedZone("AST", 3*60*60)),
			expected: "2024-01-01T00:00:00.000Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRunContext(tt.input)
			if rc.Timestamp != tt.expected {
				t.Errorf("NewRunContext(%v).Timestamp = %q, want %q", tt.input, rc.Timestamp, tt.expected)
			}
			if rc.HasIssue() || rc.HasPull() {
				t.Error("new run context should not carry references")
			}
		})
	}
}

func TestRepository_refs(t *testing.T) {
	repo := Repository{Owner: "mo9a7i", Name: "time_now", Branch: "newest_time"}
	if repo.FullName() != "mo9a7i/time_now" {
		t.Errorf("FullName() = %q", repo.FullName())
	}
	if repo.HeadRef() != "mo9a7i:newest_time" {
		t.Errorf("HeadRef() = %q", repo.HeadRef())
	}
}

func TestRunReport_Failed(t *testing.T) {
	report := RunReport{Steps: []StepResult{
		{Step: "a", Outcome: OutcomeOK},
		{Step: "b", Outcome: OutcomeFailed},
		{Step: "c", Outcome: OutcomeExists},
		{Step: "d", Outcome: OutcomeSkipped},
		{Step: "e", Outcome: OutcomeFailed},
	}}
	if got := report.Failed(); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
}

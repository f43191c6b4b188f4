package extract

import (
	"testing"

	"github.com/uxlens/pagescope/internal/types"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		errors   int
		warnings int
		want     int
	}{
		{"clean page", 0, 0, 100},
		{"one error", 1, 0, 90},
		{"one warning", 0, 1, 97},
		{"mixed", 3, 4, 58},
		{"floor at zero", 12, 0, 0},
		{"warnings alone can hit floor", 0, 40, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.errors, tt.warnings); got != tt.want {
				t.Errorf("Score(%d, %d) = %d, want %d", tt.errors, tt.warnings, got, tt.want)
			}
		})
	}
}

func TestSummarizeCapsIssues(t *testing.T) {
	issues := make([]types.AccessibilityIssue, 80)
	for i := range issues {
		issues[i] = types.AccessibilityIssue{Type: types.IssueMissingAlt, Severity: types.SeverityError}
	}

	r := Summarize(issues)
	if len(r.Issues) != types.MaxReportedIssues {
		t.Errorf("len(Issues) = %d, want %d", len(r.Issues), types.MaxReportedIssues)
	}
	if r.IssueCount != 80 {
		t.Errorf("IssueCount = %d, want uncapped 80", r.IssueCount)
	}
	if r.Score != 0 {
		t.Errorf("Score = %d, want 0 for 80 errors", r.Score)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	r := Summarize(nil)
	if r.Score != 100 {
		t.Errorf("Score = %d, want 100", r.Score)
	}
	if r.IssueCount != 0 {
		t.Errorf("IssueCount = %d, want 0", r.IssueCount)
	}
	if r.Issues == nil {
		t.Error("Issues should be an empty slice, not nil, so it serializes as []")
	}
}

func TestSummarizeIgnoresInfoSeverity(t *testing.T) {
	r := Summarize([]types.AccessibilityIssue{
		{Severity: types.SeverityInfo},
		{Severity: types.SeverityWarning},
	})
	if r.Score != 97 {
		t.Errorf("Score = %d, want 97 (info findings must not affect the score)", r.Score)
	}
	if r.IssueCount != 2 {
		t.Errorf("IssueCount = %d, want 2", r.IssueCount)
	}
}

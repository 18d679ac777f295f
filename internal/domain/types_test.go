package domain

import (
	"testing"
	"time"
)

func TestRecommendation_UpgradeDowngrade(t *testing.T) {
	if got := RecommendInvest.Upgrade(); got != RecommendStrongInvest {
		t.Fatalf("Upgrade(invest) = %v", got)
	}
	if got := RecommendStrongInvest.Upgrade(); got != RecommendStrongInvest {
		t.Fatalf("Upgrade(strong_invest) = %v, want saturated", got)
	}
	if got := RecommendPass.Downgrade(); got != RecommendStrongPass {
		t.Fatalf("Downgrade(pass) = %v", got)
	}
	if got := RecommendStrongPass.Downgrade(); got != RecommendStrongPass {
		t.Fatalf("Downgrade(strong_pass) = %v, want saturated", got)
	}
	if got := Recommendation("bogus").Upgrade(); got != "bogus" {
		t.Fatalf("Upgrade(bogus) = %v, want unchanged", got)
	}
}

func TestRecommendation_Valid(t *testing.T) {
	if !RecommendMoreDiligence.Valid() {
		t.Fatalf("more_diligence should be valid")
	}
	if Recommendation("").Valid() {
		t.Fatalf("empty recommendation should be invalid")
	}
}

func TestMoney_Millions(t *testing.T) {
	cases := []struct {
		in   Money
		want float64
	}{
		{Money{Amount: 5, Unit: "M"}, 5},
		{Money{Amount: 5}, 5},
		{Money{Amount: 2, Unit: "B"}, 2000},
		{Money{Amount: 500, Unit: "K"}, 0.5},
		{Money{Amount: 7, Unit: "weird"}, 7},
	}
	for _, tc := range cases {
		if got := tc.in.Millions(); got != tc.want {
			t.Fatalf("Millions(%+v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStageState_Terminal(t *testing.T) {
	for _, s := range []StageState{StagePending, StageRunning, StageRetrying} {
		if s.Terminal() {
			t.Fatalf("%v should not be terminal", s)
		}
	}
	for _, s := range []StageState{StageCompleted, StageFailed} {
		if !s.Terminal() {
			t.Fatalf("%v should be terminal", s)
		}
	}
}

func TestExecutionStatus_DurationSeconds(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	var s ExecutionStatus
	if got := s.DurationSeconds(now); got != 0 {
		t.Fatalf("unstarted duration = %v", got)
	}

	started := now.Add(-10 * time.Second)
	s.StartedAt = &started
	if got := s.DurationSeconds(now); got != 10 {
		t.Fatalf("running duration = %v, want 10", got)
	}

	completed := now.Add(-4 * time.Second)
	s.CompletedAt = &completed
	if got := s.DurationSeconds(now); got != 6 {
		t.Fatalf("completed duration = %v, want 6", got)
	}
}

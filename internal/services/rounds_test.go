package services

import (
	"testing"

	"ai-interviewer/internal/models"
)

func TestAdvanceIncrementsRound(t *testing.T) {
	m := NewRoundStateMachine()

	state := models.InterviewSession{
		SessionID:    "s1",
		Status:       models.StatusOngoing,
		CurrentRound: 0,
		MaxRounds:    3,
	}

	for want := 1; want <= 3; want++ {
		state = m.Advance(state)
		if state.CurrentRound != want {
			t.Fatalf("expected round %d, got %d", want, state.CurrentRound)
		}
	}
}

func TestAdvanceStopsAtMaxRounds(t *testing.T) {
	m := NewRoundStateMachine()

	state := models.InterviewSession{
		Status:       models.StatusOngoing,
		CurrentRound: 3,
		MaxRounds:    3,
	}

	next := m.Advance(state)
	if next.CurrentRound != 3 {
		t.Fatalf("round advanced past limit: got %d", next.CurrentRound)
	}
	if next.Status != models.StatusOngoing {
		t.Fatalf("advance must not change status, got %s", next.Status)
	}
}

func TestAdvanceIsNoopOnCompletedSession(t *testing.T) {
	m := NewRoundStateMachine()

	state := models.InterviewSession{
		Status:       models.StatusCompleted,
		CurrentRound: 2,
		MaxRounds:    5,
	}

	next := m.Advance(state)
	if next.CurrentRound != 2 {
		t.Fatalf("completed session advanced: got round %d", next.CurrentRound)
	}
}

func TestIsFinalRound(t *testing.T) {
	m := NewRoundStateMachine()

	cases := []struct {
		current int
		max     int
		want    bool
	}{
		{0, 3, false},
		{2, 3, false},
		{3, 3, true},
		{1, 1, true},
	}

	for _, tc := range cases {
		state := models.InterviewSession{CurrentRound: tc.current, MaxRounds: tc.max}
		if got := m.IsFinalRound(state); got != tc.want {
			t.Errorf("IsFinalRound(%d/%d) = %v, want %v", tc.current, tc.max, got, tc.want)
		}
	}
}

func TestCompleteIsIrreversible(t *testing.T) {
	m := NewRoundStateMachine()

	state := models.InterviewSession{
		Status:       models.StatusOngoing,
		CurrentRound: 1,
		MaxRounds:    5,
	}

	done := m.Complete(state)
	if done.Status != models.StatusCompleted {
		t.Fatalf("expected completed status, got %s", done.Status)
	}

	after := m.Advance(done)
	if after.CurrentRound != 1 || after.Status != models.StatusCompleted {
		t.Fatalf("completed session mutated by Advance: %+v", after)
	}
}

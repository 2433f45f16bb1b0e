package services

import (
	"ai-interviewer/internal/models"
)

// RoundStateMachine holds the interview progress rules. All transitions are
// total functions over the state value; persistence of the returned state is
// the caller's responsibility. Callers advance exactly once per inbound turn.
type RoundStateMachine struct{}

func NewRoundStateMachine() *RoundStateMachine {
	return &RoundStateMachine{}
}

// Advance moves the interview to the next round. A no-op on completed
// sessions and once the round limit has been reached.
func (m *RoundStateMachine) Advance(state models.InterviewSession) models.InterviewSession {
	if state.Status != models.StatusOngoing {
		return state
	}
	if state.CurrentRound >= state.MaxRounds {
		return state
	}

	state.CurrentRound++
	return state
}

// IsFinalRound reports whether the session has reached its configured length.
func (m *RoundStateMachine) IsFinalRound(state models.InterviewSession) bool {
	return state.CurrentRound == state.MaxRounds
}

// Complete marks the session finished. Irreversible: completed sessions never
// transition back to ongoing.
func (m *RoundStateMachine) Complete(state models.InterviewSession) models.InterviewSession {
	state.Status = models.StatusCompleted
	return state
}

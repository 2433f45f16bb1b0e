package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/models"
	"ai-interviewer/internal/repositories"
)

type TurnEventType string

const (
	// EventUserSaved acknowledges the persisted user turn.
	EventUserSaved TurnEventType = "meta_user"
	// EventTextDelta carries one generated text fragment.
	EventTextDelta TurnEventType = "delta"
	// EventAssistantSaved acknowledges the persisted assistant turn.
	EventAssistantSaved TurnEventType = "meta_ai"
	// EventInterviewEnd marks the final configured round.
	EventInterviewEnd TurnEventType = "interview_end"
)

type TurnEvent struct {
	Type      TurnEventType
	MessageID uint
	Text      string
}

type TurnRequest struct {
	SessionID        string
	Content          string
	DeepThinking     bool
	MemoryLimit      int
	FileURI          string
	FileMimeType     string
	FileOriginalName string
}

type InterviewService interface {
	StartInterview(sessionID, topic, difficulty string, maxRounds int) (*models.InterviewSession, error)
	StreamTurn(ctx context.Context, req TurnRequest) (<-chan TurnEvent, error)
}

type interviewService struct {
	msgRepo     repositories.MessageRepository
	sessionRepo repositories.SessionRepository
	gemini      GeminiService
	assembler   *ContextAssembler
	rounds      *RoundStateMachine

	historyLimit int

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes turns within one session. The refs count lets the
// map entry be evicted once no turn holds or waits on it, so the lock table
// does not grow with every session the process ever saw.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewInterviewService(
	msgRepo repositories.MessageRepository,
	sessionRepo repositories.SessionRepository,
	gemini GeminiService,
	assembler *ContextAssembler,
	rounds *RoundStateMachine,
	cfg config.InterviewConfig,
) InterviewService {
	return &interviewService{
		msgRepo:      msgRepo,
		sessionRepo:  sessionRepo,
		gemini:       gemini,
		assembler:    assembler,
		rounds:       rounds,
		historyLimit: cfg.HistoryLimit,
		locks:        make(map[string]*sessionLock),
	}
}

// StartInterview implements InterviewService.
func (s *interviewService) StartInterview(sessionID, topic, difficulty string, maxRounds int) (*models.InterviewSession, error) {
	if maxRounds <= 0 {
		return nil, fmt.Errorf("max_rounds must be positive, got %d", maxRounds)
	}

	session := &models.InterviewSession{
		SessionID:    sessionID,
		Topic:        topic,
		Difficulty:   difficulty,
		Status:       models.StatusOngoing,
		CurrentRound: 0,
		MaxRounds:    maxRounds,
	}

	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	return session, nil
}

// StreamTurn processes one inbound turn and returns the event sequence:
// user acknowledgment, zero or more text deltas, assistant acknowledgment,
// and an interview-end marker after the final round. The channel is closed
// once the turn is finished or abandoned; the transport appends its own
// stream terminator.
//
// Turns within a session are strictly ordered: a new turn does not begin
// generation until the previous turn's assistant response is persisted or
// abandoned.
func (s *interviewService) StreamTurn(ctx context.Context, req TurnRequest) (<-chan TurnEvent, error) {
	lock := s.acquireSession(req.SessionID)

	var interviewCtx *InterviewContext
	finalRound := false

	state, err := s.sessionRepo.FindBySessionID(req.SessionID)
	if err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
		s.releaseSession(req.SessionID, lock)
		return nil, err
	}

	if state != nil && state.Status == models.StatusOngoing {
		next := s.rounds.Advance(*state)
		if next.CurrentRound != state.CurrentRound {
			if err := s.sessionRepo.Save(&next); err != nil {
				s.releaseSession(req.SessionID, lock)
				return nil, err
			}
		}
		interviewCtx = &InterviewContext{
			Topic:        next.Topic,
			Difficulty:   next.Difficulty,
			CurrentRound: next.CurrentRound,
			MaxRounds:    next.MaxRounds,
		}
		finalRound = s.rounds.IsFinalRound(next)
	}

	// The user turn is persisted before streaming begins (at-least-once).
	userMsgID, err := s.msgRepo.Append(&models.Message{
		SessionID:        req.SessionID,
		Role:             models.RoleUser,
		Content:          req.Content,
		FileURI:          req.FileURI,
		FileMimeType:     req.FileMimeType,
		FileOriginalName: req.FileOriginalName,
	})
	if err != nil {
		s.releaseSession(req.SessionID, lock)
		return nil, fmt.Errorf("failed to persist user turn: %w", err)
	}

	events := make(chan TurnEvent, 16)
	go s.runTurn(ctx, req, userMsgID, interviewCtx, finalRound, events, lock)

	return events, nil
}

func (s *interviewService) runTurn(
	ctx context.Context,
	req TurnRequest,
	userMsgID uint,
	interviewCtx *InterviewContext,
	finalRound bool,
	events chan<- TurnEvent,
	lock *sessionLock,
) {
	// Release before close: once the consumer sees the channel closed, the
	// next turn is already free to start.
	defer close(events)
	defer s.releaseSession(req.SessionID, lock)

	if !s.send(ctx, events, TurnEvent{Type: EventUserSaved, MessageID: userMsgID}) {
		return
	}

	history, err := s.loadHistory(req, userMsgID)
	if err != nil {
		log.Printf("⚠️  Failed to load history: %v\n", err)
		history = nil
	}

	prompt := s.assembler.Assemble(ctx, history, TurnInput{
		Content:          req.Content,
		FileURI:          req.FileURI,
		FileMimeType:     req.FileMimeType,
		FileOriginalName: req.FileOriginalName,
		DeepThinking:     req.DeepThinking,
	}, interviewCtx)

	chunks, err := s.gemini.StreamChat(ctx, prompt.Contents, GenerationOptions{
		SystemInstruction: prompt.SystemInstruction,
		DeepThinking:      req.DeepThinking,
	})
	if err != nil {
		// Configuration error: one human-readable fragment, clean termination.
		s.send(ctx, events, TurnEvent{Type: EventTextDelta, Text: fmt.Sprintf("[Service error: %v]", err)})
		return
	}

	var full strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			log.Printf("❌ Stream error: %v\n", chunk.Err)
			s.send(ctx, events, TurnEvent{Type: EventTextDelta, Text: fmt.Sprintf("\n[Service error: %v]", chunk.Err)})
			return
		}
		if chunk.Text == "" {
			continue
		}
		full.WriteString(chunk.Text)
		if !s.send(ctx, events, TurnEvent{Type: EventTextDelta, Text: chunk.Text}) {
			// Consumer disconnected: partial text is discarded, the
			// assistant turn is never persisted.
			return
		}
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	if full.Len() == 0 {
		return
	}

	// The assistant turn lands in storage only once the stream is exhausted.
	aiMsgID, err := s.msgRepo.Append(&models.Message{
		SessionID: req.SessionID,
		Role:      models.RoleAssistant,
		Content:   full.String(),
	})
	if err != nil {
		log.Printf("❌ Failed to persist assistant turn: %v\n", err)
		return
	}

	if !s.send(ctx, events, TurnEvent{Type: EventAssistantSaved, MessageID: aiMsgID}) {
		return
	}

	if finalRound {
		s.send(ctx, events, TurnEvent{Type: EventInterviewEnd})
	}
}

// loadHistory returns the recent turn window, excluding the turn being
// processed (it is appended separately with retrieval augmentation).
func (s *interviewService) loadHistory(req TurnRequest, currentMsgID uint) ([]models.Message, error) {
	limit := s.historyLimit
	if req.MemoryLimit > 0 {
		limit = req.MemoryLimit * 2
	}
	if limit <= 0 {
		return nil, nil
	}

	messages, err := s.msgRepo.ListBySession(req.SessionID, limit+1)
	if err != nil {
		return nil, err
	}

	history := messages[:0]
	for _, msg := range messages {
		if msg.ID == currentMsgID {
			continue
		}
		history = append(history, msg)
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (s *interviewService) send(ctx context.Context, events chan<- TurnEvent, ev TurnEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// acquireSession blocks until this turn holds the session's lock.
func (s *interviewService) acquireSession(sessionID string) *sessionLock {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseSession unlocks the session and drops the map entry once the last
// holder or waiter is gone.
func (s *interviewService) releaseSession(sessionID string, lock *sessionLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}

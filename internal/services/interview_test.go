package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"google.golang.org/genai"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/models"
	"ai-interviewer/internal/repositories"
)

// --- fakes ---

type fakeMessageRepo struct {
	mu     sync.Mutex
	nextID uint
	msgs   []models.Message
}

func (r *fakeMessageRepo) Append(msg *models.Message) (uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	r.msgs = append(r.msgs, *msg)
	return msg.ID, nil
}

func (r *fakeMessageRepo) ListBySession(sessionID string, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.msgs {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeMessageRepo) ListAllBySession(sessionID string) ([]models.Message, error) {
	return r.ListBySession(sessionID, int(^uint(0)>>1))
}

func (r *fakeMessageRepo) bySession(sessionID string, role string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.msgs {
		if m.SessionID == sessionID && m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]models.InterviewSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]models.InterviewSession)}
}

func (r *fakeSessionRepo) Create(session *models.InterviewSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionID] = *session
	return nil
}

func (r *fakeSessionRepo) FindBySessionID(sessionID string) (*models.InterviewSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, repositories.ErrSessionNotFound
	}
	copied := s
	return &copied, nil
}

func (r *fakeSessionRepo) Save(session *models.InterviewSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.SessionID]; !ok {
		return repositories.ErrSessionNotFound
	}
	r.sessions[session.SessionID] = *session
	return nil
}

type fakeReportRepo struct {
	mu      sync.Mutex
	records []models.InterviewRecord
}

func (r *fakeReportRepo) Create(record *models.InterviewRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeReportRepo) FindBySessionID(sessionID string) (*models.InterviewRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].SessionID == sessionID {
			copied := r.records[i]
			return &copied, nil
		}
	}
	return nil, repositories.ErrReportNotFound
}

type fakeGemini struct {
	mu sync.Mutex

	streamChunks  []StreamChunk
	streamInitErr error
	lastContents  []*genai.Content
	lastOpts      GenerationOptions

	jsonResponse string
	jsonErr      error
	jsonCalls    int
}

func (g *fakeGemini) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, 768), nil
}

func (g *fakeGemini) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	return "", errors.New("not implemented")
}

func (g *fakeGemini) GenerateJSON(ctx context.Context, prompt string, temperature float32) (string, error) {
	return g.GenerateJSONWithRetry(ctx, prompt, temperature, 1)
}

func (g *fakeGemini) GenerateJSONWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jsonCalls++
	if g.jsonErr != nil {
		return "", g.jsonErr
	}
	return g.jsonResponse, nil
}

func (g *fakeGemini) StreamChat(ctx context.Context, contents []*genai.Content, opts GenerationOptions) (<-chan StreamChunk, error) {
	g.mu.Lock()
	g.lastContents = contents
	g.lastOpts = opts
	chunks := g.streamChunks
	initErr := g.streamInitErr
	g.mu.Unlock()

	if initErr != nil {
		return nil, initErr
	}

	out := make(chan StreamChunk, len(chunks))
	for _, c := range chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func (g *fakeGemini) UploadFile(ctx context.Context, filePath string, mimeType string) (string, error) {
	return "files/fake-uri", nil
}

// --- helpers ---

func testInterviewConfig() config.InterviewConfig {
	return config.InterviewConfig{
		DefaultMaxRounds:  10,
		HistoryLimit:      20,
		RetrievalTopK:     3,
		DistanceThreshold: 0.6,
		MinScoredRounds:   2,
		RetryMaxAttempts:  3,
	}
}

func newTestInterviewService(gemini GeminiService) (InterviewService, *fakeMessageRepo, *fakeSessionRepo) {
	msgRepo := &fakeMessageRepo{}
	sessionRepo := newFakeSessionRepo()
	cfg := testInterviewConfig()
	assembler := NewContextAssembler(nil, NewPromptBuilder(), cfg)

	svc := NewInterviewService(msgRepo, sessionRepo, gemini, assembler, NewRoundStateMachine(), cfg)
	return svc, msgRepo, sessionRepo
}

func collectEvents(t *testing.T, events <-chan TurnEvent) []TurnEvent {
	t.Helper()
	var out []TurnEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// --- tests ---

func TestStartInterviewRejectsNonPositiveRounds(t *testing.T) {
	svc, _, _ := newTestInterviewService(&fakeGemini{})

	if _, err := svc.StartInterview("s1", "Golang", "senior", 0); err == nil {
		t.Fatal("expected error for max_rounds = 0")
	}
	if _, err := svc.StartInterview("s1", "Golang", "senior", -3); err == nil {
		t.Fatal("expected error for negative max_rounds")
	}
}

func TestStreamTurnEventOrder(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{{Text: "Hello"}, {Text: " candidate."}}}
	svc, msgRepo, sessionRepo := newTestInterviewService(gemini)

	if _, err := svc.StartInterview("s1", "Golang", "senior", 5); err != nil {
		t.Fatalf("StartInterview failed: %v", err)
	}

	events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Content: "I am ready."})
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(got), got)
	}
	if got[0].Type != EventUserSaved || got[0].MessageID == 0 {
		t.Errorf("first event should acknowledge the user turn, got %+v", got[0])
	}
	if got[1].Type != EventTextDelta || got[1].Text != "Hello" {
		t.Errorf("unexpected first delta: %+v", got[1])
	}
	if got[2].Type != EventTextDelta || got[2].Text != " candidate." {
		t.Errorf("unexpected second delta: %+v", got[2])
	}
	if got[3].Type != EventAssistantSaved || got[3].MessageID == 0 {
		t.Errorf("last event should acknowledge the assistant turn, got %+v", got[3])
	}

	assistants := msgRepo.bySession("s1", models.RoleAssistant)
	if len(assistants) != 1 {
		t.Fatalf("expected 1 persisted assistant turn, got %d", len(assistants))
	}
	if assistants[0].Content != "Hello candidate." {
		t.Errorf("assistant turn should be the concatenated stream, got %q", assistants[0].Content)
	}

	state, err := sessionRepo.FindBySessionID("s1")
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if state.CurrentRound != 1 {
		t.Errorf("expected round 1 after one turn, got %d", state.CurrentRound)
	}
}

func TestStreamTurnEmitsInterviewEndOnFinalRound(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{{Text: "Final question."}}}
	svc, _, _ := newTestInterviewService(gemini)

	if _, err := svc.StartInterview("s1", "Golang", "senior", 1); err != nil {
		t.Fatalf("StartInterview failed: %v", err)
	}

	events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Content: "Answer."})
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) == 0 {
		t.Fatal("no events emitted")
	}
	last := got[len(got)-1]
	if last.Type != EventInterviewEnd {
		t.Fatalf("expected interview_end as the final event, got %+v", last)
	}
}

func TestStreamTurnNoInterviewEndBeforeFinalRound(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{{Text: "Next question."}}}
	svc, _, _ := newTestInterviewService(gemini)

	if _, err := svc.StartInterview("s1", "Golang", "senior", 3); err != nil {
		t.Fatalf("StartInterview failed: %v", err)
	}

	events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Content: "Answer."})
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}

	for _, ev := range collectEvents(t, events) {
		if ev.Type == EventInterviewEnd {
			t.Fatal("interview_end emitted before the final round")
		}
	}
}

func TestStreamTurnErrorFragmentWithoutPersistence(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{
		{Text: "partial"},
		{Err: errors.New("backend unavailable")},
	}}
	svc, msgRepo, _ := newTestInterviewService(gemini)

	if _, err := svc.StartInterview("s1", "Golang", "senior", 5); err != nil {
		t.Fatalf("StartInterview failed: %v", err)
	}

	events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Content: "Answer."})
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}

	got := collectEvents(t, events)

	errorFragmentSeen := false
	for _, ev := range got {
		if ev.Type == EventAssistantSaved {
			t.Fatal("assistant ack emitted for a failed stream")
		}
		if ev.Type == EventTextDelta && strings.Contains(ev.Text, "[Service error:") {
			errorFragmentSeen = true
		}
	}
	if !errorFragmentSeen {
		t.Fatal("expected a human-readable error fragment in the deltas")
	}

	if assistants := msgRepo.bySession("s1", models.RoleAssistant); len(assistants) != 0 {
		t.Fatalf("failed stream must not persist an assistant turn, got %d", len(assistants))
	}
	if users := msgRepo.bySession("s1", models.RoleUser); len(users) != 1 {
		t.Fatalf("user turn should be persisted before streaming, got %d", len(users))
	}
}

func TestStreamTurnPlainChatWithoutSession(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{{Text: "Just chatting."}}}
	svc, _, _ := newTestInterviewService(gemini)

	events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "free-chat", Content: "Hi."})
	if err != nil {
		t.Fatalf("StreamTurn failed for a session-less chat: %v", err)
	}

	got := collectEvents(t, events)
	for _, ev := range got {
		if ev.Type == EventInterviewEnd {
			t.Fatal("plain chat must never emit interview_end")
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected user ack, delta, assistant ack; got %+v", got)
	}

	gemini.mu.Lock()
	sys := gemini.lastOpts.SystemInstruction
	gemini.mu.Unlock()
	if strings.Contains(sys, "round") {
		t.Error("plain chat system instruction must not mention interview rounds")
	}
}

func TestStreamTurnHistoryExcludesCurrentTurn(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{{Text: "ok"}}}
	svc, msgRepo, _ := newTestInterviewService(gemini)

	if _, err := svc.StartInterview("s1", "Golang", "senior", 5); err != nil {
		t.Fatalf("StartInterview failed: %v", err)
	}

	// Seed two prior turns.
	msgRepo.Append(&models.Message{SessionID: "s1", Role: models.RoleUser, Content: "earlier question"})
	msgRepo.Append(&models.Message{SessionID: "s1", Role: models.RoleAssistant, Content: "<think>hidden</think>earlier answer"})

	events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Content: "new question"})
	if err != nil {
		t.Fatalf("StreamTurn failed: %v", err)
	}
	collectEvents(t, events)

	gemini.mu.Lock()
	contents := gemini.lastContents
	gemini.mu.Unlock()

	if len(contents) != 3 {
		t.Fatalf("expected 2 history turns plus the current one, got %d", len(contents))
	}

	occurrences := 0
	for _, c := range contents {
		for _, p := range c.Parts {
			if strings.Contains(p.Text, "new question") {
				occurrences++
			}
			if strings.Contains(p.Text, "<think>") {
				t.Error("thinking trace leaked into replayed history")
			}
		}
	}
	if occurrences != 1 {
		t.Errorf("current turn should appear exactly once in contents, found %d times", occurrences)
	}
}

func TestSessionLockTableDoesNotLeak(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{{Text: "ok"}}}
	svc, _, _ := newTestInterviewService(gemini)

	impl := svc.(*interviewService)

	for _, sessionID := range []string{"s1", "s2", "s3"} {
		events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: sessionID, Content: "hi"})
		if err != nil {
			t.Fatalf("StreamTurn failed for %s: %v", sessionID, err)
		}
		collectEvents(t, events)
	}

	impl.mu.Lock()
	remaining := len(impl.locks)
	impl.mu.Unlock()

	if remaining != 0 {
		t.Fatalf("expected the lock table to be empty after all turns finished, got %d entries", remaining)
	}
}

func TestStreamTurnRoundsAdvanceAcrossTurns(t *testing.T) {
	gemini := &fakeGemini{streamChunks: []StreamChunk{{Text: "q"}}}
	svc, _, sessionRepo := newTestInterviewService(gemini)

	if _, err := svc.StartInterview("s1", "Golang", "senior", 3); err != nil {
		t.Fatalf("StartInterview failed: %v", err)
	}

	for turn := 1; turn <= 3; turn++ {
		events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Content: "answer"})
		if err != nil {
			t.Fatalf("turn %d failed: %v", turn, err)
		}
		collectEvents(t, events)

		state, _ := sessionRepo.FindBySessionID("s1")
		if state.CurrentRound != turn {
			t.Fatalf("after turn %d expected round %d, got %d", turn, turn, state.CurrentRound)
		}
	}

	// A fourth turn must not push the round past the limit.
	events, err := svc.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Content: "extra"})
	if err != nil {
		t.Fatalf("extra turn failed: %v", err)
	}
	collectEvents(t, events)

	state, _ := sessionRepo.FindBySessionID("s1")
	if state.CurrentRound != 3 {
		t.Fatalf("round advanced past max: %d", state.CurrentRound)
	}
}

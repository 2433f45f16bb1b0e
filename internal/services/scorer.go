package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-interviewer/internal/models"
	"ai-interviewer/internal/repositories"
)

// ScorerService converts a finished transcript into a structured report and
// marks the session completed. It always returns a well-formed report: backend
// failures degrade to a score-0 report instead of propagating.
type ScorerService interface {
	GenerateReport(ctx context.Context, sessionID string) (*models.InterviewRecord, error)
}

type scorerService struct {
	msgRepo     repositories.MessageRepository
	sessionRepo repositories.SessionRepository
	reportRepo  repositories.ReportRepository
	gemini      GeminiService
	rounds      *RoundStateMachine
	minRounds   int
	maxRetries  int
}

func NewScorerService(
	msgRepo repositories.MessageRepository,
	sessionRepo repositories.SessionRepository,
	reportRepo repositories.ReportRepository,
	gemini GeminiService,
	rounds *RoundStateMachine,
	minRounds int,
	maxRetries int,
) ScorerService {
	if minRounds <= 0 {
		minRounds = 2
	}
	return &scorerService{
		msgRepo:     msgRepo,
		sessionRepo: sessionRepo,
		reportRepo:  reportRepo,
		gemini:      gemini,
		rounds:      rounds,
		minRounds:   minRounds,
		maxRetries:  maxRetries,
	}
}

type reportPayload struct {
	Score       int            `json:"score"`
	Comment     string         `json:"comment"`
	Strengths   []string       `json:"strengths"`
	Suggestions []string       `json:"suggestions"`
	Dimensions  map[string]int `json:"dimensions,omitempty"`
}

// GenerateReport implements ScorerService.
func (s *scorerService) GenerateReport(ctx context.Context, sessionID string) (*models.InterviewRecord, error) {
	messages, err := s.msgRepo.ListAllBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	record := s.score(ctx, sessionID, messages)

	if err := s.reportRepo.Create(record); err != nil {
		log.Printf("❌ Failed to persist report for session %s: %v\n", sessionID, err)
	}

	s.completeSession(sessionID)

	return record, nil
}

func (s *scorerService) score(ctx context.Context, sessionID string, messages []models.Message) *models.InterviewRecord {
	exchanges := countExchanges(messages)

	// Guardrail: truncated sessions land in a narrow participation band no
	// matter how good the few answers look.
	if exchanges < s.minRounds {
		return &models.InterviewRecord{
			SessionID: sessionID,
			Score:     10,
			Summary: fmt.Sprintf(
				"Too few interview rounds were completed (%d) to fully evaluate the candidate. The score reflects participation only.",
				exchanges,
			),
			Strengths:   []string{"Not enough data to evaluate"},
			Suggestions: []string{"Complete the full set of interview rounds before requesting a report"},
		}
	}

	prompt := buildReportPrompt(messages)

	response, err := s.gemini.GenerateJSONWithRetry(ctx, prompt, 0.3, s.maxRetries)
	if err != nil {
		log.Printf("❌ Report generation failed for session %s: %v\n", sessionID, err)
		return degradedRecord(sessionID)
	}

	var payload reportPayload
	if err := json.Unmarshal([]byte(extractJSON(response)), &payload); err != nil {
		log.Printf("❌ Failed to parse report response: %v\n", err)
		return degradedRecord(sessionID)
	}

	score := payload.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	comment := strings.TrimSpace(payload.Comment)
	if comment == "" {
		comment = "No comment provided."
	}

	return &models.InterviewRecord{
		SessionID:   sessionID,
		Score:       score,
		Summary:     comment,
		Strengths:   payload.Strengths,
		Suggestions: payload.Suggestions,
		Dimensions:  payload.Dimensions,
	}
}

func (s *scorerService) completeSession(sessionID string) {
	state, err := s.sessionRepo.FindBySessionID(sessionID)
	if err != nil {
		return
	}
	if state.Status != models.StatusOngoing {
		return
	}

	completed := s.rounds.Complete(*state)
	if err := s.sessionRepo.Save(&completed); err != nil {
		log.Printf("⚠️  Failed to mark session %s completed: %v\n", sessionID, err)
	}
}

func degradedRecord(sessionID string) *models.InterviewRecord {
	return &models.InterviewRecord{
		SessionID:   sessionID,
		Score:       0,
		Summary:     "The evaluation service is currently unavailable. Please try again later.",
		Strengths:   []string{},
		Suggestions: []string{},
	}
}

func countExchanges(messages []models.Message) int {
	count := 0
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			count++
		}
	}
	return count
}

func buildReportPrompt(messages []models.Message) string {
	var transcript strings.Builder
	for _, msg := range messages {
		role := "Candidate"
		text := msg.Content
		if msg.Role == models.RoleAssistant {
			role = "Interviewer"
			text = StripThinking(text)
		}
		transcript.WriteString(fmt.Sprintf("%s: %s\n", role, text))
	}

	return fmt.Sprintf(`You are a strict, highly experienced senior technical interviewer. The interview has ended; produce an evaluation report from the TRANSCRIPT below.

Scoring model — a technical interview is a peer discussion, not a quiz. Break each answer down along the What-How-Why-Scenarios (WHWS) dimensions:

1. What (definitions, conclusions) — weight 20%%.
   Accurate definitions only. Answers that stop here are shallow and score low.
2. How (internals, mechanisms) — weight 30%%.
   Depth: underlying data structures, source-level mechanics, thread-safety details. This separates juniors from seniors.
3. Why & Comparison (trade-offs, alternatives) — weight 20%%.
   Breadth: comparisons with alternative approaches, pros and cons, selection rationale.
4. Scenarios (production experience) — weight 30%%.
   Real project evidence: concrete production problems (OOM, deadlocks, performance work) and how they were solved.

Score bands (apply strictly):
- Below 60 (fail): thin answers that stay at the What level, no depth.
- 60-84 (pass): solid fundamentals, understands the How, but lacks real-world scenarios.
- 85 and above (exceptional): full WHWS coverage — internals, comparisons, and first-hand production stories; the candidate drives the discussion.

Output format requirements:
1. Return pure JSON only, no markdown.
2. Use exactly this structure:
{
  "score": <integer 0-100>,
  "comment": "<short, direct overall assessment, naming the candidate's level (junior/intermediate/expert)>",
  "strengths": ["<WHWS-based highlight 1>", "<highlight 2>"],
  "suggestions": ["<concrete suggestion addressing a missing dimension 1>", "<suggestion 2>"],
  "dimensions": {"what": <0-100>, "how": <0-100>, "why": <0-100>, "scenarios": <0-100>}
}

TRANSCRIPT:
%s`, transcript.String())
}

// extractJSON pulls a JSON object or array out of text that may wrap it in
// markdown fences or prose.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

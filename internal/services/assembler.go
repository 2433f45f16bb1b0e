package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/models"
)

// AssembledPrompt is the final instruction set handed to the generation step:
// ordered contents (history plus the retrieval-augmented current turn) and a
// system instruction.
type AssembledPrompt struct {
	Contents          []*genai.Content
	SystemInstruction string
}

// TurnInput describes the inbound user turn being assembled.
type TurnInput struct {
	Content          string
	FileURI          string
	FileMimeType     string
	FileOriginalName string
	DeepThinking     bool
}

// ContextAssembler merges conversation history, filtered knowledge-base
// passages and round-aware instructions into one prompt.
type ContextAssembler struct {
	knowledge         KnowledgeService
	prompts           *PromptBuilder
	topK              int
	distanceThreshold float32
	ragEnabled        bool
}

func NewContextAssembler(knowledge KnowledgeService, prompts *PromptBuilder, cfg config.InterviewConfig) *ContextAssembler {
	return &ContextAssembler{
		knowledge:         knowledge,
		prompts:           prompts,
		topK:              cfg.RetrievalTopK,
		distanceThreshold: cfg.DistanceThreshold,
		ragEnabled:        knowledge != nil,
	}
}

// Assemble builds the prompt for one turn. Retrieval failures degrade to an
// unaugmented prompt; they never fail the turn.
func (a *ContextAssembler) Assemble(ctx context.Context, history []models.Message, input TurnInput, ic *InterviewContext) *AssembledPrompt {
	contents := a.historyContents(history)

	// Retrieve, filter by threshold, isolate. The three steps are a
	// prompt-injection defense and must stay together.
	referenceBlock := ""
	if a.ragEnabled {
		passages, err := a.knowledge.Query(ctx, input.Content, a.topK)
		if err != nil {
			log.Printf("⚠️  Knowledge retrieval failed, continuing without augmentation: %v\n", err)
		} else {
			kept := FilterPassages(passages, a.distanceThreshold)
			topic := ""
			if ic != nil {
				topic = ic.Topic
			}
			referenceBlock = BuildReferenceBlock(topic, kept)
			if referenceBlock != "" {
				log.Printf("✅ Knowledge base hit: %d relevant passages\n", len(kept))
			}
		}
	}

	finalPrompt := input.Content
	if referenceBlock != "" {
		finalPrompt = fmt.Sprintf("%s\nCandidate message: %s", referenceBlock, input.Content)
	}
	if input.FileMimeType == "application/pdf" && input.FileOriginalName != "" {
		finalPrompt = fmt.Sprintf("Please read the attached PDF: %s.\n%s", input.FileOriginalName, finalPrompt)
	}

	var currentParts []*genai.Part
	if input.FileURI != "" {
		currentParts = append(currentParts, genai.NewPartFromURI(input.FileURI, input.FileMimeType))
	}
	currentParts = append(currentParts, genai.NewPartFromText(finalPrompt))

	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: currentParts,
	})

	return &AssembledPrompt{
		Contents:          contents,
		SystemInstruction: a.prompts.BuildSystemInstruction(ic, input.DeepThinking),
	}
}

// historyContents converts persisted turns into generation contents. Thinking
// traces are stripped from assistant turns; that content must never be
// replayed back into history.
func (a *ContextAssembler) historyContents(history []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.RoleUser
		text := msg.Content
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
			text = StripThinking(text)
		}

		var parts []*genai.Part
		if msg.FileURI != "" && msg.FileMimeType != "" {
			parts = append(parts, genai.NewPartFromURI(msg.FileURI, msg.FileMimeType))
		}
		parts = append(parts, genai.NewPartFromText(text))

		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

package investigation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"dcia/internal/errors"
	"dcia/internal/models"
)

// qaErrorMessage substitutes the assistant reply when the question-answering
// collaborator fails. The failure is absorbed into the transcript and never
// surfaced to the caller of Ask.
const qaErrorMessage = "I encountered an error while processing your question. Please try again later."

// QAClient is the question-answering collaborator consumed by chat sessions.
type QAClient interface {
	Ask(ctx context.Context, question string) (models.Answer, error)
}

// ChatSession owns an append-only transcript and the lifecycle of at most one
// in-flight question.
//
// Serialization policy: a second Ask blocks until the earlier one has
// resolved, so the transcript never holds two unresolved placeholders and
// user messages appear in the order they were asked.
type ChatSession struct {
	qa     QAClient
	logger *slog.Logger

	// askMu serializes in-flight questions, mu guards the transcript.
	askMu sync.Mutex
	mu    sync.Mutex

	transcript []models.ChatMessage
}

// NewChatSession seeds the transcript with an assistant welcome message
// parameterized by the investigation context. The artefact name is optional
// and mentioned when the chat was opened from a specific artefact.
func NewChatSession(qa QAClient, logger *slog.Logger, subtype string, device models.DeviceType, artefact string) *ChatSession {
	welcome := fmt.Sprintf(
		"Welcome to the Digital Crime Investigation Assistant chat. How can I help you with your %s investigation on %s devices?",
		subtype, device)
	if subtype == "" {
		welcome = "Welcome to the Digital Crime Investigation Assistant chat. How can I help you with your investigation?"
	}
	if artefact != "" {
		welcome += fmt.Sprintf(" You were looking at the %s artefact.", artefact)
	}
	return &ChatSession{
		qa:     qa,
		logger: logger.With("source", "ChatSession"),
		transcript: []models.ChatMessage{
			{Role: models.RoleAssistant, Content: welcome},
		},
	}
}

// Ask appends the question and a pending placeholder to the transcript, asks
// the collaborator, and replaces the placeholder in place with the answer or
// a fixed error message. Collaborator failures never propagate to the caller.
//
// A whitespace-only question is rejected with ErrValidation before anything
// is appended or sent.
func (c *ChatSession) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.Wrap(ErrValidation, "empty question")
	}

	c.askMu.Lock()
	defer c.askMu.Unlock()

	c.mu.Lock()
	c.transcript = append(c.transcript,
		models.ChatMessage{Role: models.RoleUser, Content: question},
		models.ChatMessage{Role: models.RoleAssistant, Pending: true},
	)
	placeholder := len(c.transcript) - 1
	c.mu.Unlock()

	answer, err := c.qa.Ask(ctx, question)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "question answering failed", errors.SlogError(err))
		c.transcript[placeholder] = models.ChatMessage{Role: models.RoleAssistant, Content: qaErrorMessage}
		return nil
	}
	c.transcript[placeholder] = models.ChatMessage{Role: models.RoleAssistant, Content: formatAnswer(answer)}
	return nil
}

// Transcript returns a copy of the conversation in insertion order.
func (c *ChatSession) Transcript() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	transcript := make([]models.ChatMessage, len(c.transcript))
	copy(transcript, c.transcript)
	return transcript
}

// formatAnswer suffixes the answer text with a deterministically formatted
// citation list, preserving the collaborator's ranking order.
func formatAnswer(answer models.Answer) string {
	if len(answer.Sources) == 0 {
		return answer.Answer
	}
	var b strings.Builder
	b.WriteString(answer.Answer)
	b.WriteString("\n\nSources:")
	for i, source := range answer.Sources {
		fmt.Fprintf(&b, "\n%d. %s (%.0f%% relevance)", i+1, source.Name, math.Round(source.RelevanceScore))
	}
	return b.String()
}

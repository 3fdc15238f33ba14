package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/askweb/provider/models"
	"github.com/mohammad-safakhou/askweb/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type GenerationFailurePolicy string

const (
	ReturnErrorText GenerationFailurePolicy = "return_error_text"
	Abort           GenerationFailurePolicy = "abort"
)

// ResponseGenerator answers a query from the retrieved context and the conversation so far.
type ResponseGenerator struct {
	LLM       Completer
	Params    models.Params
	OnFailure GenerationFailurePolicy
	Timeout   time.Duration
	Logger    *log.Logger
	Metrics   *Metrics
}

// Generate returns the answer. With ReturnErrorText a model failure becomes the
// answer text and err is nil; with Abort it is returned wrapped in ErrExternal or ErrTimeout.
func (g *ResponseGenerator) Generate(ctx context.Context, query, contextText string, history []session.Message) (string, error) {
	ctx, span := chatTracer.Start(ctx, "chat.generate")
	defer span.End()

	msgs := buildMessages(query, contextText, history)
	span.SetAttributes(attribute.Int("generate.messages", len(msgs)))
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	out, err := g.LLM.Complete(ctx, msgs, g.Params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.Metrics.observeGenerationFailure()
		if g.Logger != nil {
			g.Logger.Printf("generation failed: %v", err)
		}
		if g.OnFailure == Abort {
			return "", classify("generate", err)
		}
		return fmt.Sprintf("Error generating response: %v", err), nil
	}
	return out, nil
}

// buildMessages replays history between the system prompt and the query. A
// trailing human turn equal to query is not replayed, so the query appears once.
func buildMessages(query, contextText string, history []session.Message) []models.Message {
	if n := len(history); n > 0 && history[n-1].Role == session.RoleHuman && history[n-1].Content == query {
		history = history[:n-1]
	}
	msgs := make([]models.Message, 0, len(history)+2)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: generatorSystemPrompt(contextText)})
	for _, m := range history {
		switch m.Role {
		case session.RoleHuman:
			msgs = append(msgs, models.Message{Role: models.RoleUser, Content: m.Content})
		case session.RoleAssistant:
			if strings.HasPrefix(m.Content, skipPrefix) || m.Content == skipExact {
				continue
			}
			msgs = append(msgs, models.Message{Role: models.RoleAssistant, Content: m.Content})
		}
	}
	return append(msgs, models.Message{Role: models.RoleUser, Content: query})
}

package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/askweb/provider/models"
	"github.com/mohammad-safakhou/askweb/tools/search"
	"github.com/mohammad-safakhou/askweb/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Completer is the completion-model collaborator.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message, params models.Params) (string, error)
}

type GateFailurePolicy string

const (
	AssumeRelevant   GateFailurePolicy = "assume_relevant"
	AssumeIrrelevant GateFailurePolicy = "assume_irrelevant"
)

// Verdict sources
const (
	VerdictModel      = "model"
	VerdictSimilarity = "similarity"
	VerdictFailure    = "error"
)

type Verdict struct {
	Relevant bool
	Source   string
}

// TopicGate decides whether a query continues the topic of the best cached chunk.
type TopicGate struct {
	LLM           Completer
	Params        models.Params
	ContextChars  int
	MinSimilarity float64 // 0 disables the similarity pre-filter
	OnFailure     GateFailurePolicy
	Timeout       time.Duration
	Logger        *log.Logger
}

// Check returns the verdict for query against best. When the hit carries a
// vector similarity below MinSimilarity the model is not consulted.
func (g *TopicGate) Check(ctx context.Context, query string, best search.Hit) Verdict {
	ctx, span := chatTracer.Start(ctx, "chat.gate")
	defer span.End()

	if g.MinSimilarity > 0 && best.HasSimilarity && best.Similarity < g.MinSimilarity {
		span.SetAttributes(attribute.String("gate.source", VerdictSimilarity), attribute.Float64("gate.similarity", best.Similarity))
		return Verdict{Relevant: false, Source: VerdictSimilarity}
	}

	n := g.ContextChars
	if n <= 0 {
		n = 500
	}
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: gateSystemPrompt},
		{Role: models.RoleUser, Content: gateUserPrompt(utils.Truncate(best.Text, n), query)},
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	out, err := g.LLM.Complete(ctx, msgs, g.Params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if g.Logger != nil {
			g.Logger.Printf("error checking relevance: %v", err)
		}
		return Verdict{Relevant: g.OnFailure != AssumeIrrelevant, Source: VerdictFailure}
	}
	relevant := isRelevantAnswer(out)
	span.SetAttributes(attribute.String("gate.source", VerdictModel), attribute.Bool("gate.relevant", relevant))
	return Verdict{Relevant: relevant, Source: VerdictModel}
}

// isRelevantAnswer is true when the trimmed, upper-cased answer contains RELEVANT
// but is not an IRRELEVANT verdict. IRRELEVANT contains RELEVANT as a substring,
// so it is removed before the search or every negative verdict would pass.
func isRelevantAnswer(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Contains(strings.ReplaceAll(s, "IRRELEVANT", ""), verdictRelevant)
}

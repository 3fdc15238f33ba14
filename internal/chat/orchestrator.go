package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/askweb/session"
	"github.com/mohammad-safakhou/askweb/tools/retriever"
	"github.com/mohammad-safakhou/askweb/tools/search"
	"github.com/mohammad-safakhou/askweb/tools/web_ingest"
	"github.com/mohammad-safakhou/askweb/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const previewChars = 200

// ContentRetriever searches the web and scrapes the results.
type ContentRetriever interface {
	Retrieve(ctx context.Context, q string) (retriever.Result, error)
}

// DocumentIndexer splits text and builds a new index over it.
type DocumentIndexer interface {
	Build(ctx context.Context, blob string, sources []string) (search.Index, error)
}

type Request struct {
	Query     string
	SessionID string
}

type Response struct {
	Response           string            `json:"response"`
	History            []session.Message `json:"history"`
	SessionID          string            `json:"session_id"`
	NewSearchPerformed bool              `json:"new_search_performed"`
	ContextPreview     string            `json:"context_preview"`
	Sources            []string          `json:"sources,omitempty"`
}

// Orchestrator runs one query through the reuse-or-search state machine.
type Orchestrator struct {
	Sessions  session.Store
	Retriever ContentRetriever
	Indexer   DocumentIndexer
	Gate      *TopicGate
	Generator *ResponseGenerator

	ProbeK       int // matches requested when probing an existing index
	ContextK     int // matches requested from a fresh index
	IndexTimeout time.Duration

	Metrics *Metrics
	Logger  *log.Logger
}

// Handle answers req. The session is locked for the whole run, so queries on
// one session are serialized while different sessions proceed in parallel.
// Retrieval failures and aborted generations leave the session's history and
// index as they were. A caller whose ctx ends while waiting for the session
// gets ErrTimeout and changes nothing.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, fmt.Errorf("%w: no query provided", ErrValidation)
	}
	start := time.Now()

	ctx, span := chatTracer.Start(ctx, "chat.handle")
	defer span.End()

	sess, err := o.acquire(ctx, req.SessionID)
	if err != nil {
		return Response{}, err
	}
	defer sess.Unlock()
	span.SetAttributes(attribute.String("session.id", sess.ID()))

	var (
		contextText string
		needSearch  = true
		topicShift  bool
		active      = sess.Index()
		fresh       search.Index
	)

	if active != nil {
		hits, err := active.Search(ctx, query, o.probeK())
		if err != nil {
			o.logf("Session %s: search on existing index failed: %v", sess.ID(), err)
		}
		if len(hits) > 0 {
			verdict := o.Gate.Check(ctx, query, hits[0])
			o.Metrics.observeVerdict(verdict)
			if verdict.Relevant {
				contextText = hits[0].Text
				needSearch = false
				o.logf("Session %s: Using existing index - query is relevant to current topic", sess.ID())
			} else {
				topicShift = true
				o.logf("Session %s: Query not relevant to existing context (%s) - performing new search", sess.ID(), verdict.Source)
			}
		} else {
			o.logf("Session %s: No results found in existing index - performing new search", sess.ID())
		}
	}

	if needSearch {
		o.logf("Session %s: Performing web search for: %s", sess.ID(), query)
		idx, err := o.newIndex(ctx, query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.logf("Session %s: new search failed: %v", sess.ID(), err)
			return Response{}, err
		}
		fresh, active = idx, idx

		hits, err := idx.Search(ctx, query, o.contextK())
		switch {
		case err != nil:
			o.logf("Session %s: search on new index failed: %v", sess.ID(), err)
			contextText = SentinelNoSearchMatch
		case len(hits) > 0:
			contextText = hits[0].Text
			o.logf("Session %s: New context found: %s", sess.ID(), utils.Preview(contextText, 100))
		default:
			contextText = SentinelNoSearchMatch
		}
	}

	if strings.TrimSpace(contextText) == "" {
		contextText = SentinelEmptyContext
	}

	var history []session.Message
	if !topicShift {
		history = sess.History()
	}
	history = append(history, session.Message{Role: session.RoleHuman, Content: query})
	answer, err := o.Generator.Generate(ctx, query, contextText, history)
	if err != nil {
		if fresh != nil {
			_ = fresh.Close()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}
	if fresh != nil {
		if topicShift {
			sess.ResetHistory()
			o.logf("Session %s: Cleared conversation memory for new topic", sess.ID())
		}
		sess.ReplaceIndex(fresh)
	}
	sess.Append(session.RoleHuman, query)
	sess.Append(session.RoleAssistant, answer)
	sess.Touch(time.Now())

	path := "reuse"
	if needSearch {
		path = "search"
	}
	o.Metrics.observeQuery(path, time.Since(start))
	span.SetAttributes(attribute.Bool("chat.new_search", needSearch))

	return Response{
		Response:           answer,
		History:            sess.History(),
		SessionID:          sess.ID(),
		NewSearchPerformed: needSearch,
		ContextPreview:     utils.Preview(contextText, previewChars),
		Sources:            active.Sources(),
	}, nil
}

// acquire returns the locked session for id. A session removed from the
// store while we waited for its lock is replaced by a fresh one. The wait
// ends with ctx.
func (o *Orchestrator) acquire(ctx context.Context, id string) (*session.Session, error) {
	for attempt := 0; attempt < 3; attempt++ {
		sess, created, err := o.Sessions.GetOrCreate(id)
		if err != nil {
			return nil, err
		}
		if created && id != "" {
			o.logf("Session %s not found, created %s", id, sess.ID())
		}
		if err := sess.LockContext(ctx); err != nil {
			o.logf("Session %s: gave up waiting for the session: %v", sess.ID(), err)
			return nil, classify("session "+sess.ID(), err)
		}
		if !sess.Closed() {
			return sess, nil
		}
		sess.Unlock()
		id = ""
	}
	return nil, fmt.Errorf("could not acquire a live session")
}

// newIndex runs NEW_SEARCH: retrieve, concatenate, split and index.
func (o *Orchestrator) newIndex(ctx context.Context, query string) (search.Index, error) {
	rctx, rspan := chatTracer.Start(ctx, "chat.retrieve")
	res, err := o.Retriever.Retrieve(rctx, query)
	rspan.SetAttributes(attribute.Int("retrieve.links", len(res.Links)))
	rspan.End()
	if err != nil {
		err = classify("retrieve", err)
		o.Metrics.observeFailure(failureKind(err))
		return nil, err
	}
	if len(res.Links) == 0 {
		o.Metrics.observeFailure("no_links")
		return nil, ErrNoLinksFound
	}
	blob := res.Text()
	if strings.TrimSpace(blob) == "" {
		o.Metrics.observeFailure("no_content")
		return nil, ErrNoContent
	}

	ictx, ispan := chatTracer.Start(ctx, "chat.index")
	defer ispan.End()
	if o.IndexTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ictx, o.IndexTimeout)
		defer cancel()
	}
	idx, err := o.Indexer.Build(ictx, blob, res.Links)
	switch {
	case errors.Is(err, web_ingest.ErrNoValidDocuments):
		o.Metrics.observeFailure("no_valid_documents")
		return nil, ErrNoValidDocuments
	case err != nil:
		err = classify("index", err)
		o.Metrics.observeFailure(failureKind(err))
		return nil, err
	}
	ispan.SetAttributes(attribute.Int("index.chunks", idx.Len()))
	return idx, nil
}

func failureKind(err error) string {
	if errors.Is(err, ErrTimeout) {
		return "timeout"
	}
	return "external"
}

func (o *Orchestrator) probeK() int {
	if o.ProbeK > 0 {
		return o.ProbeK
	}
	return 3
}

func (o *Orchestrator) contextK() int {
	if o.ContextK > 0 {
		return o.ContextK
	}
	return 1
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

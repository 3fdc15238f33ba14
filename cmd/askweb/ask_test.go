package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/mohammad-safakhou/askweb/internal/chat"
	"github.com/mohammad-safakhou/askweb/internal/logging"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/mohammad-safakhou/askweb/session/inmemory"
)

type scriptedChat struct {
	store    *inmemory.Store
	requests []chat.Request
	answered []string // session ids of successful turns
	fail     map[string]error
}

func (s *scriptedChat) Handle(_ context.Context, req chat.Request) (chat.Response, error) {
	s.requests = append(s.requests, req)
	if err := s.fail[req.Query]; err != nil {
		return chat.Response{}, err
	}
	sess, created, err := s.store.GetOrCreate(req.SessionID)
	if err != nil {
		return chat.Response{}, err
	}
	sess.Append(session.RoleHuman, req.Query)
	sess.Append(session.RoleAssistant, "answer to "+req.Query)
	s.answered = append(s.answered, sess.ID())
	return chat.Response{
		Response:           "answer to " + req.Query,
		SessionID:          sess.ID(),
		NewSearchPerformed: created,
		ContextPreview:     "preview",
	}, nil
}

func newLoop(input string) (*chatLoop, *scriptedChat, *bytes.Buffer) {
	color.NoColor = true
	store := inmemory.NewInMemorySessionStore(inmemory.Options{Logger: logging.Discard()})
	sc := &scriptedChat{store: store, fail: map[string]error{}}
	out := &bytes.Buffer{}
	return &chatLoop{chat: sc, sessions: store, in: strings.NewReader(input), out: out, showPreview: true}, sc, out
}

func TestChatLoopKeepsSession(t *testing.T) {
	loop, sc, out := newLoop("first question\n\nfollow up\n/quit\nnever asked\n")
	if err := loop.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sc.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(sc.requests))
	}
	if sc.requests[0].SessionID != "" || sc.requests[1].SessionID == "" {
		t.Fatalf("session not carried over: %+v", sc.requests)
	}
	text := out.String()
	for _, want := range []string{"answer to first question", "answer to follow up", "(new web search performed)", "context: preview"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output lacks %q:\n%s", want, text)
		}
	}
	if strings.Count(text, "(new web search performed)") != 1 {
		t.Fatalf("follow up should reuse the session:\n%s", text)
	}
}

func TestChatLoopCommands(t *testing.T) {
	loop, sc, out := newLoop("/clear\nhello\n/clear\n/new\nagain\n")
	if err := loop.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "nothing to clear") || !strings.Contains(text, "cleared session") || !strings.Contains(text, "started a new session") {
		t.Fatalf("unexpected output:\n%s", text)
	}
	if len(sc.requests) != 2 || sc.requests[1].SessionID != "" || sc.answered[0] == sc.answered[1] {
		t.Fatalf("/new should drop the session id: %+v", sc.requests)
	}
	sess, err := sc.store.Get(sc.answered[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := len(sess.History()); n != 0 {
		t.Fatalf("expected cleared history, got %d messages", n)
	}
}

func TestChatLoopReportsErrorsAndContinues(t *testing.T) {
	loop, sc, out := newLoop("broken\nfine\n")
	sc.fail["broken"] = chat.ErrNoLinksFound
	if err := loop.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "error: no links found") || !strings.Contains(out.String(), "answer to fine") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestChatLoopStopsOnCancel(t *testing.T) {
	loop, sc, _ := newLoop("question\n")
	sc.fail["question"] = context.Canceled
	if err := loop.run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("run: %v", err)
	}
}

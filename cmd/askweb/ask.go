package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mohammad-safakhou/askweb/config"
	"github.com/mohammad-safakhou/askweb/internal/chat"
	srv "github.com/mohammad-safakhou/askweb/internal/server"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/spf13/cobra"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	answerColor = color.New(color.FgGreen).SprintFunc()
	noteColor   = color.New(color.FgYellow).SprintFunc()
	errorColor  = color.New(color.FgRed).SprintFunc()
)

func askCMD(load func() (*config.Config, error)) *cobra.Command {
	var showPreview bool
	var ask = &cobra.Command{
		Use:   "ask",
		Short: "Chat interactively in the terminal",
		Long:  "Reads questions from stdin. Commands: /new starts a fresh session, /clear forgets the current one, /quit exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := srv.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			loop := &chatLoop{
				chat:        app.Orchestrator,
				sessions:    app.Sessions,
				in:          os.Stdin,
				out:         cmd.OutOrStdout(),
				showPreview: showPreview,
			}
			return loop.run(cmd.Context())
		},
	}
	ask.Flags().BoolVar(&showPreview, "preview", true, "print the retrieved context preview after each answer")
	return ask
}

type answerer interface {
	Handle(ctx context.Context, req chat.Request) (chat.Response, error)
}

// chatLoop is a read-eval-print loop over one session at a time.
type chatLoop struct {
	chat        answerer
	sessions    session.Store
	in          io.Reader
	out         io.Writer
	showPreview bool

	sessionID string
}

func (l *chatLoop) run(ctx context.Context) error {
	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(l.out, promptColor("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(l.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			l.sessionID = ""
			fmt.Fprintln(l.out, noteColor("started a new session"))
			continue
		case "/clear":
			l.clear()
			continue
		}

		resp, err := l.chat.Handle(ctx, chat.Request{Query: line, SessionID: l.sessionID})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(l.out, errorColor("error: "+err.Error()))
			continue
		}
		l.sessionID = resp.SessionID
		fmt.Fprintln(l.out, answerColor(resp.Response))
		if resp.NewSearchPerformed {
			fmt.Fprintln(l.out, noteColor("(new web search performed)"))
		}
		if l.showPreview && resp.ContextPreview != "" {
			fmt.Fprintln(l.out, noteColor("context: "+resp.ContextPreview))
		}
	}
}

func (l *chatLoop) clear() {
	if l.sessionID == "" {
		fmt.Fprintln(l.out, noteColor("nothing to clear"))
		return
	}
	if err := l.sessions.Clear(l.sessionID); err != nil {
		fmt.Fprintln(l.out, errorColor("error: "+err.Error()))
		return
	}
	fmt.Fprintln(l.out, noteColor("cleared session "+l.sessionID))
}

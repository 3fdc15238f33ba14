package server

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/askweb/session"
)

// OpsHandler serves the landing page and a read-only session dashboard.
type OpsHandler struct {
	Sessions session.Store
}

func (h *OpsHandler) Register(e *echo.Echo) {
	e.GET("/", h.index)
	e.GET("/dashboard", h.dashboard)
}

const pageHead = "<!doctype html><html><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>askweb</title></head><body style=\"font-family:system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial,sans-serif; color:#e5e7eb; background:#0f172a;\"><div style=\"max-width:960px;margin:24px auto;padding:0 16px\">"

const pageTail = "</div></body></html>"

var endpoints = [][2]string{
	{"POST /new-chat", "start a session"},
	{"POST /query", "ask a question: {\"query\": \"...\", \"session_id\": \"...\"}"},
	{"POST /clear", "forget a session's history and search results"},
	{"GET /sessions", "list live sessions"},
	{"POST /delete-session", "remove a session"},
	{"GET /dashboard", "session overview"},
	{"GET /api/docs", "API reference"},
}

func (h *OpsHandler) index(c echo.Context) error {
	var b strings.Builder
	b.WriteString(pageHead)
	b.WriteString("<h1 style=\"font-size:18px;font-weight:600;margin-bottom:8px\">askweb</h1>")
	b.WriteString("<p>Ask a question; answers are grounded in fresh web search results and follow-ups reuse them while the topic holds.</p><ul>")
	for _, ep := range endpoints {
		b.WriteString("<li><code>")
		b.WriteString(template.HTMLEscapeString(ep[0]))
		b.WriteString("</code> ")
		b.WriteString(template.HTMLEscapeString(ep[1]))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	b.WriteString(pageTail)
	return c.HTML(http.StatusOK, b.String())
}

// dashboard renders the live sessions without JS.
func (h *OpsHandler) dashboard(c echo.Context) error {
	list := h.Sessions.List()
	var b strings.Builder
	b.WriteString(pageHead)
	b.WriteString("<h1 style=\"font-size:18px;font-weight:600;margin-bottom:8px\">Sessions</h1>")
	if len(list) == 0 {
		b.WriteString("<p>No live sessions.</p>")
	} else {
		b.WriteString("<table style=\"border-collapse:collapse;width:100%\"><tr><th align=\"left\">id</th><th align=\"left\">created</th><th align=\"left\">last used</th><th align=\"right\">messages</th><th align=\"right\">index</th></tr>")
		for _, s := range list {
			b.WriteString("<tr><td><code>")
			b.WriteString(template.HTMLEscapeString(s.ID))
			b.WriteString("</code></td><td>")
			b.WriteString(s.CreatedAt.Format(time.RFC3339))
			b.WriteString("</td><td>")
			b.WriteString(s.LastUsed.Format(time.RFC3339))
			b.WriteString("</td><td align=\"right\">")
			b.WriteString(strconv.Itoa(s.MessageCount))
			b.WriteString("</td><td align=\"right\">")
			if s.HasIndex {
				b.WriteString("yes")
			} else {
				b.WriteString("no")
			}
			b.WriteString("</td></tr>")
		}
		b.WriteString("</table>")
	}
	b.WriteString(pageTail)
	return c.HTML(http.StatusOK, b.String())
}

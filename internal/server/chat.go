package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/askweb/internal/chat"
	"github.com/mohammad-safakhou/askweb/session"
)

// Answerer runs one query turn.
type Answerer interface {
	Handle(ctx context.Context, req chat.Request) (chat.Response, error)
}

type ChatHandler struct {
	Chat           Answerer
	Sessions       session.Store
	RequestTimeout time.Duration
	Logger         *log.Logger
}

func (h *ChatHandler) Register(e *echo.Echo) {
	e.POST("/new-chat", h.newChat)
	e.POST("/query", h.query)
	e.POST("/clear", h.clear)
	e.GET("/sessions", h.sessions)
	e.POST("/delete-session", h.deleteSession)
}

// newChat allocates an empty session.
//
//	@Summary  Start a new chat session
//	@Tags     chat
//	@Produce  json
//	@Success  200 {object} NewChatResponse
//	@Router   /new-chat [post]
func (h *ChatHandler) newChat(c echo.Context) error {
	sess, _, err := h.Sessions.GetOrCreate("")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewChatResponse{
		Message:   "New chat session created",
		SessionID: sess.ID(),
		CreatedAt: sess.CreatedAt(),
	})
}

// query answers a question inside a session, creating the session when needed.
//
//	@Summary  Ask a question
//	@Tags     chat
//	@Accept   json
//	@Produce  json
//	@Param    body body QueryRequest true "query and optional session id"
//	@Success  200 {object} chat.Response
//	@Failure  400 {object} ErrorResponse
//	@Failure  404 {object} ErrorResponse
//	@Router   /query [post]
func (h *ChatHandler) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No query provided")
	}
	ctx := c.Request().Context()
	if h.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.RequestTimeout)
		defer cancel()
	}
	resp, err := h.Chat.Handle(ctx, chat.Request{Query: req.Query, SessionID: req.SessionID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// clear empties a session's history and index.
//
//	@Summary  Clear a session
//	@Tags     chat
//	@Accept   json
//	@Produce  json
//	@Success  200 {object} ClearResponse
//	@Failure  404 {object} ErrorResponse
//	@Router   /clear [post]
func (h *ChatHandler) clear(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if err := h.Sessions.Clear(req.SessionID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ClearResponse{
		Message:   fmt.Sprintf("Memory and vector store cleared for session %s", req.SessionID),
		SessionID: req.SessionID,
	})
}

// sessions lists live sessions.
//
//	@Summary  List sessions
//	@Tags     chat
//	@Produce  json
//	@Success  200 {object} SessionsResponse
//	@Router   /sessions [get]
func (h *ChatHandler) sessions(c echo.Context) error {
	list := h.Sessions.List()
	return c.JSON(http.StatusOK, SessionsResponse{Sessions: list, TotalSessions: len(list)})
}

// deleteSession removes a session.
//
//	@Summary  Delete a session
//	@Tags     chat
//	@Accept   json
//	@Produce  json
//	@Success  200 {object} DeleteResponse
//	@Failure  400 {object} ErrorResponse
//	@Failure  404 {object} ErrorResponse
//	@Router   /delete-session [post]
func (h *ChatHandler) deleteSession(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No session_id provided")
	}
	if err := h.Sessions.Delete(req.SessionID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResponse{
		Message:          fmt.Sprintf("Session %s deleted successfully", req.SessionID),
		DeletedSessionID: req.SessionID,
	})
}

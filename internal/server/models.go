package server

import (
	"time"

	"github.com/mohammad-safakhou/askweb/session"
)

type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type NewChatResponse struct {
	Message   string    `json:"message"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ClearResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type DeleteResponse struct {
	Message          string `json:"message"`
	DeletedSessionID string `json:"deleted_session_id"`
}

type SessionsResponse struct {
	Sessions      []session.Info `json:"sessions"`
	TotalSessions int            `json:"total_sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

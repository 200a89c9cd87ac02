package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talkweave/engine/internal/store"
	"github.com/talkweave/engine/pkg/api"
)

var (
	ErrMissingConversation = errors.New("conversation_identity is required")
	ErrMissingVersion      = errors.New("graph_version_id is required")
)

// handleEvent receives one inbound event from the transport layer and
// returns the engine's ordered responses
func (s *Server) handleEvent(c *gin.Context) {
	botID := api.BotID(c.Param("botID"))

	var ev api.InboundEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if ev.Conversation == "" {
		abortError(c, http.StatusBadRequest, ErrMissingConversation)
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	responses, err := s.engine.HandleEvent(c.Request.Context(), botID, &ev)
	if err != nil {
		abortError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, api.EventResult{Responses: responses})
}

// handleTestSession starts a session against an explicit graph version,
// letting builders exercise drafts without touching production traffic
func (s *Server) handleTestSession(c *gin.Context) {
	botID := api.BotID(c.Param("botID"))

	var req api.TestSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if req.Version == "" {
		abortError(c, http.StatusBadRequest, ErrMissingVersion)
		return
	}
	if req.Conversation == "" {
		abortError(c, http.StatusBadRequest, ErrMissingConversation)
		return
	}

	responses, sess, err := s.engine.StartTestSession(
		c.Request.Context(), botID, req.Version, req.Conversation,
	)
	if err != nil {
		abortError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, api.TestSessionResult{
		Session:   sess,
		Responses: responses,
	})
}

func (s *Server) getSession(c *gin.Context) {
	id := api.SessionID(c.Param("sessionID"))
	sess, err := s.engine.GetSession(c.Request.Context(), id)
	if err != nil {
		abortError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) getSessionLog(c *gin.Context) {
	id := api.SessionID(c.Param("sessionID"))
	entries, err := s.engine.GetLog(c.Request.Context(), id)
	if err != nil {
		abortError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrBotNotFound),
		errors.Is(err, store.ErrGraphNotFound),
		errors.Is(err, store.ErrNoProduction):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrSessionExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortError(c *gin.Context, status int, err error) {
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

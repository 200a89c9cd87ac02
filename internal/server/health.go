package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	talkweave "github.com/talkweave/engine"
)

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.engine.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": talkweave.Name,
		"version": talkweave.Version,
	})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SubmitInboxDocument accepts a raw market document exactly as the hub
// would deliver it. Processing stays asynchronous: the response only
// acknowledges storage, GetInboxMessage reports routing progress.
func (s *Server) SubmitInboxDocument(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	msg, err := s.inboxSvc.Enqueue(c.Request.Context(), raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("message_id", msg.MessageID)
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{
		"message_id":  msg.MessageID,
		"received_at": msg.ReceivedAt,
	}})
}

func (s *Server) GetInboxMessage(c *gin.Context) {
	messageID := strings.TrimSpace(c.Param("message_id"))
	if messageID == "" {
		AbortWithError(c, newValidationError("message_id", "invalid_message_id", "invalid message id"))
		return
	}

	resp, err := s.inboxSvc.GetByMessageID(c.Request.Context(), messageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kidsqa/realtime-gateway/internal/observability"
	"github.com/kidsqa/realtime-gateway/internal/pubsub"
)

// publishEventRequest is the body of an internal publish call.
type publishEventRequest struct {
	Name       string         `json:"name" binding:"required"`
	QuestionID string         `json:"question_id" binding:"required"`
	UserID     string         `json:"user_id" binding:"required"`
	Question   string         `json:"question"`
	Status     string         `json:"status"`
	Answer     string         `json:"answer"`
	Metadata   map[string]any `json:"metadata"`
}

// publishEventResponse reports the fan-out result.
type publishEventResponse struct {
	Delivered int `json:"delivered"`
}

// handlePublishEvent accepts an application event from a trusted producer
// and broadcasts it. The endpoint is meant to be reachable only from the
// internal network.
func (s *Server) handlePublishEvent(c *gin.Context) {
	var req publishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, question_id and user_id are required"})
		return
	}

	var (
		delivered int
		err       error
	)
	switch req.Name {
	case pubsub.EventNameQuestionProcessing:
		delivered, err = s.broadcaster.PublishQuestionProcessing(c.Request.Context(), pubsub.QuestionProcessingEvent{
			QuestionID: req.QuestionID,
			UserID:     req.UserID,
			Question:   req.Question,
			Status:     req.Status,
			Metadata:   req.Metadata,
		})
	case pubsub.EventNameAnswerGenerated:
		delivered, err = s.broadcaster.PublishAnswerGenerated(c.Request.Context(), pubsub.AnswerGeneratedEvent{
			QuestionID: req.QuestionID,
			UserID:     req.UserID,
			Question:   req.Question,
			Answer:     req.Answer,
			Metadata:   req.Metadata,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event name: " + req.Name})
		return
	}

	if err != nil {
		s.logger.Error("event publish failed",
			observability.String("event", req.Name),
			observability.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish event"})
		return
	}

	c.JSON(http.StatusAccepted, publishEventResponse{Delivered: delivered})
}

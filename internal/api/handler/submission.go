package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/doctranslate/internal/domain"
)

const maxHistoryLimit = 500

// SubmissionLister reads the submission journal.
type SubmissionLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Submission, error)
}

// SubmissionHandler serves the local submission history.
type SubmissionHandler struct {
	journal SubmissionLister
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(journal SubmissionLister) *SubmissionHandler {
	return &SubmissionHandler{journal: journal}
}

// List handles GET /api/v1/submissions?limit=N.
func (h *SubmissionHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	subs, err := h.journal.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list submissions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"total":       len(subs),
	})
}

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/language"
	"github.com/timmy/doctranslate/internal/logger"
	"github.com/timmy/doctranslate/internal/refresh"
	"github.com/timmy/doctranslate/internal/status"
)

// ListErrorMessage replaces the list when the last fetch failed.
const ListErrorMessage = "Something went wrong, try again later or contact support!"

// DocumentList is the list refresh coordinator as seen by the API.
type DocumentList interface {
	State() refresh.State
	SetDay(ctx context.Context, day string) error
	Refresh(ctx context.Context, target *time.Time) error
}

// DocumentHandler serves the date-scoped document list.
type DocumentHandler struct {
	list DocumentList
}

// NewDocumentHandler creates a new document handler.
// Parameters:
//   - list: coordinator owning the list cursor.
// Returns:
//   - *DocumentHandler: initialized handler.
func NewDocumentHandler(list DocumentList) *DocumentHandler {
	return &DocumentHandler{list: list}
}

// StageView is one progress marker.
type StageView struct {
	Stage        domain.Stage `json:"stage"`
	Label        string       `json:"label"`
	State        string       `json:"state"`
	URL          string       `json:"url,omitempty"`
	Downloadable bool         `json:"downloadable"`
}

// DocumentView is one list item, ready to render.
type DocumentView struct {
	Key            string      `json:"key"`
	FileName       string      `json:"file_name"`
	FileType       string      `json:"file_type,omitempty"`
	UploadDatetime string      `json:"upload_datetime,omitempty"`
	FromLanguage   string      `json:"from_language"`
	FromName       string      `json:"from_language_name"`
	ToLanguage     string      `json:"to_language"`
	ToName         string      `json:"to_language_name"`
	Status         string      `json:"status"`
	Spinning       bool        `json:"spinning"`
	URL            string      `json:"url,omitempty"`
	Stages         []StageView `json:"stages"`
	Glossary       []string    `json:"glossary,omitempty"`
	ExclusionText  string      `json:"exclusion_text,omitempty"`
}

// ListResponse is the document list state.
type ListResponse struct {
	Date         string         `json:"date"`
	SnapshotDate string         `json:"snapshot_date,omitempty"`
	Loading      bool           `json:"loading"`
	FetchedAt    *time.Time     `json:"fetched_at,omitempty"`
	Error        string         `json:"error,omitempty"`
	Documents    []DocumentView `json:"documents"`
}

// NewDocumentView renders one document through the status engine.
func NewDocumentView(doc *domain.Document) DocumentView {
	p := status.Describe(doc)
	stages := make([]StageView, len(p.Stages))
	for i, s := range p.Stages {
		stages[i] = StageView{
			Stage:        s.Stage,
			Label:        s.Stage.Label(),
			State:        s.State.String(),
			URL:          s.ArtifactURL,
			Downloadable: s.Downloadable,
		}
	}
	return DocumentView{
		Key:            doc.Key(),
		FileName:       doc.FileName,
		FileType:       doc.FileType,
		UploadDatetime: doc.UploadDatetime,
		FromLanguage:   doc.FromLanguage,
		FromName:       language.Name(doc.FromLanguage),
		ToLanguage:     doc.ToLanguage,
		ToName:         language.Name(doc.ToLanguage),
		Status:         p.Aggregate.String(),
		Spinning:       p.Spinning,
		URL:            p.PrimaryURL,
		Stages:         stages,
		Glossary:       doc.Glossary(),
		ExclusionText:  doc.ExclusionText,
	}
}

// NewListResponse renders coordinator state. The error view and the list are
// mutually exclusive, and neither is shown as an error while loading.
func NewListResponse(st refresh.State) ListResponse {
	resp := ListResponse{
		Date:         st.Date,
		SnapshotDate: st.SnapshotDate,
		Loading:      st.Loading,
		Documents:    []DocumentView{},
	}
	if !st.FetchedAt.IsZero() {
		fetched := st.FetchedAt
		resp.FetchedAt = &fetched
	}
	if st.Failed() {
		resp.Error = ListErrorMessage
		return resp
	}
	for i := range st.Documents {
		resp.Documents = append(resp.Documents, NewDocumentView(&st.Documents[i]))
	}
	return resp
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, NewListResponse(h.list.State()))
}

// SetDateRequest selects a calendar day.
type SetDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// SetDate handles PUT /api/v1/documents/date.
func (h *DocumentHandler) SetDate(c *gin.Context) {
	var req SetDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	err := h.list.SetDay(c.Request.Context(), req.Date)
	if errors.Is(err, refresh.ErrInvalidDay) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
		return
	}
	h.respond(c, err)
}

// RefreshRequest optionally names the day the refresh is about.
type RefreshRequest struct {
	Date string `json:"date"`
}

// Refresh handles POST /api/v1/documents/refresh.
// Without a date, or with the cursor's own day, the current day is re-fetched.
func (h *DocumentHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
	}

	var target *time.Time
	if req.Date != "" {
		day, err := domain.ParseDay(req.Date, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
			return
		}
		target = &day
	}

	h.respond(c, h.list.Refresh(c.Request.Context(), target))
}

// respond renders the state after a fetch. Fetch failures are part of the
// state, so only a closed coordinator is an HTTP error.
func (h *DocumentHandler) respond(c *gin.Context, err error) {
	switch {
	case errors.Is(err, refresh.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service is shutting down"})
		return
	case err != nil && !errors.Is(err, refresh.ErrSuperseded):
		logger.FromContext(c.Request.Context()).WithError(err).Debug("List fetch failed")
	}
	c.JSON(http.StatusOK, NewListResponse(h.list.State()))
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/language"
	"github.com/timmy/doctranslate/internal/logger"
	"github.com/timmy/doctranslate/internal/storage"
	"github.com/timmy/doctranslate/internal/upload"
)

// SubmissionForm is the upload form as seen by the API.
type SubmissionForm interface {
	State() upload.FormState
	Stage(ctx context.Context, name string, r io.Reader) (storage.StagedFile, error)
	RemoveFile(ctx context.Context)
	SetLanguages(from, to string)
	SetExclusionText(text string)
	SelectPrompt(id int64) error
	ApplyPrompts(prompts []domain.Prompt)
	Submit(ctx context.Context) (upload.Outcome, error)
}

// PromptSource loads the prompt list from the backend.
type PromptSource interface {
	Prompts(ctx context.Context) ([]domain.Prompt, error)
}

// FormHandler serves the submission form.
type FormHandler struct {
	form    SubmissionForm
	prompts PromptSource
	maxSize int64
}

// NewFormHandler creates a new form handler.
// Parameters:
//   - form: the submission form shared by all clients of this server.
//   - prompts: prompt list collaborator.
//   - maxSize: upload size limit in bytes, checked before staging.
// Returns:
//   - *FormHandler: initialized handler.
func NewFormHandler(form SubmissionForm, prompts PromptSource, maxSize int64) *FormHandler {
	return &FormHandler{form: form, prompts: prompts, maxSize: maxSize}
}

// Get handles GET /api/v1/form.
func (h *FormHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.form.State())
}

// UpdateFormRequest changes form fields; omitted fields are left alone.
type UpdateFormRequest struct {
	FromLang      string  `json:"from_lang"`
	ToLang        string  `json:"to_lang"`
	ExclusionText *string `json:"exclusion_text"`
	PromptID      *int64  `json:"prompt_id"`
}

// Update handles PUT /api/v1/form.
func (h *FormHandler) Update(c *gin.Context) {
	var req UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	for _, code := range []string{req.FromLang, req.ToLang} {
		if code != "" && !language.Known(code) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Unknown language %q", code)})
			return
		}
	}
	if req.PromptID != nil {
		if err := h.form.SelectPrompt(*req.PromptID); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Unknown prompt %d", *req.PromptID)})
			return
		}
	}

	h.form.SetLanguages(req.FromLang, req.ToLang)
	if req.ExclusionText != nil {
		h.form.SetExclusionText(*req.ExclusionText)
	}
	c.JSON(http.StatusOK, h.form.State())
}

// StageFile handles POST /api/v1/form/file (multipart field "file").
func (h *FormHandler) StageFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Multipart field 'file' is required"})
		return
	}
	if h.maxSize > 0 && header.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File is larger than %d MB", h.maxSize>>20)})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file: " + err.Error()})
		return
	}
	defer f.Close()

	staged, err := h.form.Stage(c.Request.Context(), header.Filename, f)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Only .txt, .pdf, .docx and .doc files are accepted"})
		return
	case errors.Is(err, storage.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File is larger than %d MB", h.maxSize>>20)})
		return
	case errors.Is(err, storage.ErrEmptyFile):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "File is empty"})
		return
	case err != nil:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to stage file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stage file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"file": staged,
		"form": h.form.State(),
	})
}

// RemoveFile handles DELETE /api/v1/form/file.
func (h *FormHandler) RemoveFile(c *gin.Context) {
	h.form.RemoveFile(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// Submit handles POST /api/v1/form/submit. The request blocks until the
// upload settles; a transport failure is a normal outcome, not an HTTP error.
func (h *FormHandler) Submit(c *gin.Context) {
	out, err := h.form.Submit(c.Request.Context())
	switch {
	case errors.Is(err, upload.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "A submission is already in progress"})
		return
	case errors.Is(err, upload.ErrNoFile):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No file staged"})
		return
	case errors.Is(err, upload.ErrNoPrompt):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No prompt selected"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome": out,
		"form":    h.form.State(),
	})
}

// Prompts handles GET /api/v1/prompts. The first successful load selects
// the first prompt on the form.
func (h *FormHandler) Prompts(c *gin.Context) {
	prompts, err := h.prompts.Prompts(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Warn("Failed to load prompts")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load prompts"})
		return
	}
	h.form.ApplyPrompts(prompts)

	c.JSON(http.StatusOK, gin.H{
		"prompts":  prompts,
		"selected": h.form.State().PromptID,
	})
}

// Languages handles GET /api/v1/languages.
func (h *FormHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": language.Options()})
}

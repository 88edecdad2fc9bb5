package domain

import (
	"io"
	"strings"
)

// Prompt is a translation prompt template selectable for a submission.
type Prompt struct {
	ID         int64  `json:"id"`
	PromptName string `json:"prompt_name"`
	PromptText string `json:"prompt_text"`
}

// NormalizePromptText turns literal "\n" escape sequences stored by the backend into newlines.
func NormalizePromptText(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}

// UploadRequest is the multipart payload sent to the upload transport.
type UploadRequest struct {
	FileName    string
	ContentType string
	Body        io.Reader
	PromptID    int64
	FromLang    string
	ToLang      string
	// ExclusionText is omitted from the request when nil.
	ExclusionText *string
}

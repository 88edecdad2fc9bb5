// Package upload orchestrates submitting a staged file to the translation
// pipeline and reports the outcome through callbacks.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/logger"
	"github.com/timmy/doctranslate/internal/storage"
)

var (
	// ErrInFlight is returned when a submission is already running for the form.
	ErrInFlight = errors.New("upload: submission already in flight")
	// ErrNoFile is returned when no file is staged.
	ErrNoFile = errors.New("upload: no file staged")
	// ErrNoPrompt is returned before a prompt has been selected.
	ErrNoPrompt = errors.New("upload: no prompt selected")
)

// Transport sends one multipart upload to the backend.
type Transport interface {
	Upload(ctx context.Context, req domain.UploadRequest) (string, error)
}

// Opener reads back a staged file.
type Opener interface {
	Open(ctx context.Context, f storage.StagedFile) (io.ReadCloser, error)
}

// Input is one submission. PromptID 0 means no prompt is resolved yet.
type Input struct {
	File          *storage.StagedFile
	FromLang      string
	ToLang        string
	TextToExclude string
	PromptID      int64
}

// exclusion returns the trimmed exclusion text, nil when blank.
func (in Input) exclusion() *string {
	text := strings.TrimSpace(in.TextToExclude)
	if text == "" {
		return nil
	}
	return &text
}

// Workflow runs at most one submission at a time.
type Workflow struct {
	transport Transport
	files     Opener
	inFlight  atomic.Bool
}

// NewWorkflow creates a Workflow.
func NewWorkflow(transport Transport, files Opener) *Workflow {
	return &Workflow{transport: transport, files: files}
}

// InFlight reports whether a submission is running; the submit control is
// disabled while it is true.
func (w *Workflow) InFlight() bool {
	return w.inFlight.Load()
}

// Submit uploads in.File and blocks until the transport settles.
//
// Precondition failures and a concurrent submission return an error without
// invoking either callback. Otherwise exactly one of onSuccess and onFailure
// runs and Submit returns nil. onSuccess receives the backend's
// acknowledgement. The in-flight flag stays set until the callback returns.
func (w *Workflow) Submit(ctx context.Context, in Input, onSuccess func(ack string), onFailure func(error)) error {
	if in.File == nil {
		return ErrNoFile
	}
	if in.PromptID == 0 {
		return ErrNoPrompt
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}

	defer w.inFlight.Store(false)

	start := time.Now()
	ack, err := w.send(ctx, in)

	entry := logger.With(logger.Fields{
		"file_name":      in.File.Name,
		logger.FieldSize: in.File.Size,
		"prompt_id":      in.PromptID,
	}).WithDuration(time.Since(start).Milliseconds())

	if err != nil {
		entry.WithStatus("failed").Warn(ctx, "Upload failed: %v", err)
		if onFailure != nil {
			onFailure(err)
		}
		return nil
	}
	entry.WithStatus("succeeded").Info(ctx, "Upload succeeded")
	if onSuccess != nil {
		onSuccess(ack)
	}
	return nil
}

func (w *Workflow) send(ctx context.Context, in Input) (string, error) {
	body, err := w.files.Open(ctx, *in.File)
	if err != nil {
		return "", fmt.Errorf("failed to read staged file: %w", err)
	}
	defer body.Close()

	return w.transport.Upload(ctx, domain.UploadRequest{
		FileName:      in.File.Name,
		ContentType:   in.File.ContentType,
		Body:          body,
		PromptID:      in.PromptID,
		FromLang:      in.FromLang,
		ToLang:        in.ToLang,
		ExclusionText: in.exclusion(),
	})
}

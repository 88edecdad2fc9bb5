package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/logger"
	"github.com/timmy/doctranslate/internal/notify"
	"github.com/timmy/doctranslate/internal/storage"
)

// ErrUnknownPrompt is returned when selecting a prompt that is not in the loaded list.
var ErrUnknownPrompt = errors.New("upload: unknown prompt")

// Default language pair of a fresh form.
const (
	DefaultFromLang = "pl"
	DefaultToLang   = "en"
)

// Files stages, reads back and discards user files.
type Files interface {
	Opener
	Stage(ctx context.Context, name string, r io.Reader) (storage.StagedFile, error)
	Discard(ctx context.Context, f storage.StagedFile) error
}

// Notifier receives submission outcome messages.
type Notifier interface {
	Enqueue(kind notify.Kind, message string) notify.Notification
}

// RefreshSignal is told when a file was uploaded so the list can re-sync.
type RefreshSignal interface {
	Notify(at time.Time)
}

// Journal records submit attempts. It is optional.
type Journal interface {
	Create(ctx context.Context, s *domain.Submission) error
	Settle(ctx context.Context, id string, status domain.SubmissionStatus, errMessage string) error
}

// FormConfig holds the collaborators of a Form.
type FormConfig struct {
	Transport Transport
	Files     Files
	Notifier  Notifier
	Refresh   RefreshSignal
	Journal   Journal
	FromLang  string
	ToLang    string
	Now       func() time.Time
}

// FormState is a copy of the form's fields.
type FormState struct {
	File          *storage.StagedFile `json:"file"`
	FromLang      string              `json:"from_lang"`
	ToLang        string              `json:"to_lang"`
	ExclusionText string              `json:"exclusion_text"`
	PromptID      int64               `json:"prompt_id"`
	Prompts       []domain.Prompt     `json:"prompts"`
	Submitting    bool                `json:"submitting"`
	CanSubmit     bool                `json:"can_submit"`
}

// Outcome is the result of one settled submission.
// StoredName is the name the backend filed the document under; it differs
// from the staged name when the backend renamed a duplicate.
type Outcome struct {
	SubmissionID string              `json:"submission_id"`
	Succeeded    bool                `json:"succeeded"`
	StoredName   string              `json:"stored_name,omitempty"`
	Notification notify.Notification `json:"notification"`
	Err          error               `json:"-"`
}

// Form is one submission form: a staged file plus the fields sent with it.
// Exactly one submission may run per Form.
type Form struct {
	workflow *Workflow
	files    Files
	notifier Notifier
	refresh  RefreshSignal
	journal  Journal
	now      func() time.Time

	mu             sync.Mutex
	file           *storage.StagedFile
	fromLang       string
	toLang         string
	exclusion      string
	promptID       int64
	prompts        []domain.Prompt
	promptsApplied bool

	// sending is the file being uploaded. Discarding it waits until the
	// upload settles.
	sending     *storage.StagedFile
	discardSent bool
}

// NewForm creates an empty form.
func NewForm(cfg FormConfig) *Form {
	f := &Form{
		workflow: NewWorkflow(cfg.Transport, cfg.Files),
		files:    cfg.Files,
		notifier: cfg.Notifier,
		refresh:  cfg.Refresh,
		journal:  cfg.Journal,
		now:      cfg.Now,
		fromLang: cfg.FromLang,
		toLang:   cfg.ToLang,
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.fromLang == "" {
		f.fromLang = DefaultFromLang
	}
	if f.toLang == "" {
		f.toLang = DefaultToLang
	}
	return f
}

// Stage validates and stages a file, replacing any previously staged one.
// A replaced file that is still uploading is discarded once the upload settles.
func (f *Form) Stage(ctx context.Context, name string, r io.Reader) (storage.StagedFile, error) {
	staged, err := f.files.Stage(ctx, name, r)
	if err != nil {
		return storage.StagedFile{}, err
	}

	f.mu.Lock()
	prev := f.file
	f.file = &staged
	f.mu.Unlock()

	f.discard(ctx, prev)
	return staged, nil
}

// RemoveFile drops the staged file.
func (f *Form) RemoveFile(ctx context.Context) {
	f.mu.Lock()
	prev := f.file
	f.file = nil
	f.mu.Unlock()

	f.discard(ctx, prev)
}

// SetLanguages sets the language pair; an empty code keeps the current one.
func (f *Form) SetLanguages(from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if from = strings.TrimSpace(from); from != "" {
		f.fromLang = from
	}
	if to = strings.TrimSpace(to); to != "" {
		f.toLang = to
	}
}

// SetExclusionText sets the text the translation must leave untouched.
func (f *Form) SetExclusionText(text string) {
	f.mu.Lock()
	f.exclusion = text
	f.mu.Unlock()
}

// SelectPrompt selects a prompt from the loaded list.
func (f *Form) SelectPrompt(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if p.ID == id {
			f.promptID = id
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownPrompt, id)
}

// ApplyPrompts stores a freshly loaded prompt list. The first non-empty list
// selects its first prompt; later loads never change the selection.
func (f *Form) ApplyPrompts(prompts []domain.Prompt) {
	list := make([]domain.Prompt, len(prompts))
	copy(list, prompts)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = list
	if !f.promptsApplied && len(list) > 0 {
		f.promptID = list[0].ID
		f.promptsApplied = true
	}
}

// State returns a copy of the form.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()

	var file *storage.StagedFile
	if f.file != nil {
		copied := *f.file
		file = &copied
	}
	prompts := make([]domain.Prompt, len(f.prompts))
	copy(prompts, f.prompts)

	submitting := f.sending != nil || f.workflow.InFlight()
	return FormState{
		File:          file,
		FromLang:      f.fromLang,
		ToLang:        f.toLang,
		ExclusionText: f.exclusion,
		PromptID:      f.promptID,
		Prompts:       prompts,
		Submitting:    submitting,
		CanSubmit:     !submitting && file != nil && f.promptID != 0,
	}
}

// Submit sends the staged file with the current fields and blocks until it settles.
//
// On success one success notification is queued, the list is signalled to
// refresh, and the staged file and exclusion text are cleared. On failure one
// error notification is queued and the form is left as it was so the user can
// retry. ErrInFlight, ErrNoFile and ErrNoPrompt are returned without any of
// these effects.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	in := Input{
		File:          f.file,
		FromLang:      f.fromLang,
		ToLang:        f.toLang,
		TextToExclude: f.exclusion,
		PromptID:      f.promptID,
	}
	var err error
	switch {
	case in.File == nil:
		err = ErrNoFile
	case in.PromptID == 0:
		err = ErrNoPrompt
	case f.sending != nil:
		err = ErrInFlight
	default:
		f.sending = in.File
	}
	f.mu.Unlock()
	if err != nil {
		return Outcome{}, err
	}

	id := uuid.NewString()
	ctx = logger.SetSubmissionID(logger.SetComponent(ctx, "upload"), id)
	defer f.finishSending(ctx)

	name := in.File.Name
	f.begin(ctx, id, in)

	var out Outcome
	onSuccess := func(ack string) {
		out = Outcome{
			SubmissionID: id,
			Succeeded:    true,
			StoredName:   storedName(ack, name),
			Notification: f.notifier.Enqueue(notify.KindSuccess, successMessage(name)),
		}
		if f.refresh != nil {
			f.refresh.Notify(f.now())
		}
		f.clearSubmitted(ctx, in.File.Key)
		f.settle(ctx, id, domain.SubmissionSucceeded, "")
	}
	onFailure := func(err error) {
		out = Outcome{
			SubmissionID: id,
			Notification: f.notifier.Enqueue(notify.KindError, failureMessage(name, err)),
			Err:          err,
		}
		f.settle(ctx, id, domain.SubmissionFailed, errorText(err))
	}

	if err = f.workflow.Submit(ctx, in, onSuccess, onFailure); err != nil {
		f.settle(ctx, id, domain.SubmissionFailed, err.Error())
		return Outcome{}, err
	}
	return out, nil
}

// clearSubmitted resets the file and exclusion text, unless the user has
// staged a different file while the upload was running.
func (f *Form) clearSubmitted(ctx context.Context, key string) {
	f.mu.Lock()
	if f.file == nil || f.file.Key != key {
		f.mu.Unlock()
		return
	}
	prev := f.file
	f.file = nil
	f.exclusion = ""
	f.mu.Unlock()

	f.discard(ctx, prev)
}

// finishSending releases the form for the next submission and discards the
// sent file if it was dropped while the upload ran.
func (f *Form) finishSending(ctx context.Context) {
	f.mu.Lock()
	sent, pending := f.sending, f.discardSent
	f.sending, f.discardSent = nil, false
	f.mu.Unlock()

	if pending {
		f.discard(ctx, sent)
	}
}

func (f *Form) discard(ctx context.Context, file *storage.StagedFile) {
	if file == nil {
		return
	}
	f.mu.Lock()
	if f.sending != nil && f.sending.Key == file.Key {
		f.discardSent = true
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	if err := f.files.Discard(ctx, *file); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to discard staged file")
	}
}

func (f *Form) begin(ctx context.Context, id string, in Input) {
	if f.journal == nil {
		return
	}
	s := &domain.Submission{
		ID:            id,
		FileName:      in.File.Name,
		FileSize:      in.File.Size,
		FromLang:      in.FromLang,
		ToLang:        in.ToLang,
		PromptID:      in.PromptID,
		ExclusionText: strings.TrimSpace(in.TextToExclude),
		Status:        domain.SubmissionPending,
		SubmittedAt:   f.now(),
	}
	if err := f.journal.Create(ctx, s); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record submission")
	}
}

func (f *Form) settle(ctx context.Context, id string, status domain.SubmissionStatus, msg string) {
	if f.journal == nil {
		return
	}
	if err := f.journal.Settle(ctx, id, status, msg); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to settle submission")
	}
}

var ackPattern = regexp.MustCompile(`^File (.+) uploaded successfully`)

// storedName extracts the file name from an upload acknowledgement such as
// "File report_20240105093000.pdf uploaded successfully".
func storedName(ack, fallback string) string {
	if m := ackPattern.FindStringSubmatch(strings.TrimSpace(ack)); m != nil {
		return m[1]
	}
	return fallback
}

func successMessage(name string) string {
	return fmt.Sprintf("File %s uploaded successfully! Processing, translating and watermarking the file are in progress right now :)", name)
}

func failureMessage(name string, err error) string {
	if msg := errorText(err); msg != "" {
		return fmt.Sprintf("Error uploading file: %s. %s", name, msg)
	}
	return fmt.Sprintf("Error uploading file: %s", name)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

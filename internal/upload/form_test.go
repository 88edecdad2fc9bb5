package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/notify"
	"github.com/timmy/doctranslate/internal/refresh"
	"github.com/timmy/doctranslate/internal/storage"
)

// fakeTransport records uploads; when gate is set each upload waits on it.
type fakeTransport struct {
	mu       sync.Mutex
	requests []domain.UploadRequest
	bodies   []string
	err      error
	ack      string
	gate     chan struct{}
	started  chan struct{}
}

func (f *fakeTransport) Upload(ctx context.Context, req domain.UploadRequest) (string, error) {
	body, _ := io.ReadAll(req.Body)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return "", f.err
	}
	if f.ack != "" {
		return f.ack, nil
	}
	return "File " + req.FileName + " uploaded successfully", nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeJournal struct {
	mu      sync.Mutex
	created []domain.Submission
	settled map[string]domain.SubmissionStatus
	msgs    map[string]string
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{settled: map[string]domain.SubmissionStatus{}, msgs: map[string]string{}}
}

func (j *fakeJournal) Create(ctx context.Context, s *domain.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.created = append(j.created, *s)
	return nil
}

func (j *fakeJournal) Settle(ctx context.Context, id string, status domain.SubmissionStatus, msg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.settled[id] = status
	j.msgs[id] = msg
	return nil
}

type formFixture struct {
	form      *Form
	transport *fakeTransport
	queue     *notify.Queue
	trigger   *refresh.Trigger
	journal   *fakeJournal
	store     *storage.LocalStore
}

var testNow = time.Date(2024, 1, 5, 10, 30, 0, 0, time.Local)

func newFormFixture(t *testing.T) *formFixture {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fx := &formFixture{
		transport: &fakeTransport{},
		queue:     notify.NewQueue(notify.WithAfterFunc(func(time.Duration, func()) *time.Timer { return nil })),
		trigger:   refresh.NewTrigger(),
		journal:   newFakeJournal(),
		store:     store,
	}
	fx.form = NewForm(FormConfig{
		Transport: fx.transport,
		Files:     storage.NewStager(store, storage.StagerConfig{}),
		Notifier:  fx.queue,
		Refresh:   fx.trigger,
		Journal:   fx.journal,
		Now:       func() time.Time { return testNow },
	})
	return fx
}

// ready stages a file, loads prompts and sets the exclusion text.
func (fx *formFixture) ready(t *testing.T) storage.StagedFile {
	t.Helper()
	f, err := fx.form.Stage(context.Background(), "umowa.txt", strings.NewReader("tekst umowy"))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	fx.form.ApplyPrompts([]domain.Prompt{{ID: 4, PromptName: "Legal"}, {ID: 9, PromptName: "Plain"}})
	fx.form.SetExclusionText("  ACME Sp. z o.o.  ")
	return f
}

func TestNewFormDefaults(t *testing.T) {
	fx := newFormFixture(t)
	st := fx.form.State()
	if st.FromLang != "pl" || st.ToLang != "en" {
		t.Errorf("languages = %s -> %s, want pl -> en", st.FromLang, st.ToLang)
	}
	if st.CanSubmit || st.File != nil || st.PromptID != 0 {
		t.Errorf("fresh form = %+v", st)
	}
}

func TestApplyPromptsDefaultsOnce(t *testing.T) {
	fx := newFormFixture(t)

	fx.form.ApplyPrompts(nil)
	if got := fx.form.State().PromptID; got != 0 {
		t.Fatalf("empty list selected prompt %d", got)
	}

	fx.form.ApplyPrompts([]domain.Prompt{{ID: 4}, {ID: 9}})
	if got := fx.form.State().PromptID; got != 4 {
		t.Fatalf("PromptID = %d, want first prompt 4", got)
	}

	fx.form.ApplyPrompts([]domain.Prompt{{ID: 9}, {ID: 4}})
	if got := fx.form.State().PromptID; got != 4 {
		t.Errorf("reload changed selection to %d", got)
	}

	if err := fx.form.SelectPrompt(9); err != nil {
		t.Fatalf("SelectPrompt: %v", err)
	}
	fx.form.ApplyPrompts([]domain.Prompt{{ID: 1}, {ID: 9}})
	if got := fx.form.State().PromptID; got != 9 {
		t.Errorf("reload overrode user selection: %d", got)
	}
}

func TestSelectUnknownPrompt(t *testing.T) {
	fx := newFormFixture(t)
	fx.form.ApplyPrompts([]domain.Prompt{{ID: 4}})
	if err := fx.form.SelectPrompt(99); !errors.Is(err, ErrUnknownPrompt) {
		t.Errorf("SelectPrompt(99) = %v, want ErrUnknownPrompt", err)
	}
	if got := fx.form.State().PromptID; got != 4 {
		t.Errorf("selection changed to %d", got)
	}
}

func TestSubmitSuccess(t *testing.T) {
	fx := newFormFixture(t)
	staged := fx.ready(t)

	out, err := fx.form.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Succeeded || out.Err != nil || out.StoredName != "umowa.txt" {
		t.Errorf("outcome = %+v", out)
	}

	if fx.transport.count() != 1 {
		t.Fatalf("uploads = %d, want 1", fx.transport.count())
	}
	req := fx.transport.requests[0]
	if req.FileName != "umowa.txt" || req.PromptID != 4 || req.FromLang != "pl" || req.ToLang != "en" {
		t.Errorf("request = %+v", req)
	}
	if req.ExclusionText == nil || *req.ExclusionText != "ACME Sp. z o.o." {
		t.Errorf("exclusion text = %v, want trimmed value", req.ExclusionText)
	}
	if fx.transport.bodies[0] != "tekst umowy" {
		t.Errorf("body = %q", fx.transport.bodies[0])
	}

	items := fx.queue.List()
	if len(items) != 1 || items[0].Kind != notify.KindSuccess {
		t.Fatalf("notifications = %+v, want exactly one success", items)
	}
	want := "File umowa.txt uploaded successfully! Processing, translating and watermarking the file are in progress right now :)"
	if items[0].Message != want {
		t.Errorf("message = %q", items[0].Message)
	}

	select {
	case at := <-fx.trigger.C():
		if !at.Equal(testNow) {
			t.Errorf("refresh target = %v, want %v", at, testNow)
		}
	default:
		t.Error("a same-day refresh should be signalled after success")
	}

	st := fx.form.State()
	if st.File != nil || st.ExclusionText != "" {
		t.Errorf("file and exclusion text should be cleared: %+v", st)
	}
	if st.PromptID != 4 || st.FromLang != "pl" {
		t.Errorf("prompt and languages should be kept: %+v", st)
	}
	if ok, _ := fx.store.Exists(context.Background(), staged.Key); ok {
		t.Error("staged file should be discarded after success")
	}

	if len(fx.journal.created) != 1 || fx.journal.settled[out.SubmissionID] != domain.SubmissionSucceeded {
		t.Errorf("journal = %+v / %+v", fx.journal.created, fx.journal.settled)
	}
}

func TestSubmitFailureKeepsForm(t *testing.T) {
	fx := newFormFixture(t)
	staged := fx.ready(t)
	fx.transport.err = errors.New("Exception occurred during upload: disk full")

	out, err := fx.form.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Succeeded || out.Err == nil {
		t.Errorf("outcome = %+v", out)
	}

	items := fx.queue.List()
	if len(items) != 1 || items[0].Kind != notify.KindError {
		t.Fatalf("notifications = %+v, want exactly one error", items)
	}
	if items[0].Message != "Error uploading file: umowa.txt. Exception occurred during upload: disk full" {
		t.Errorf("message = %q", items[0].Message)
	}

	select {
	case <-fx.trigger.C():
		t.Error("failure must not signal a refresh")
	default:
	}

	st := fx.form.State()
	if st.File == nil || st.File.Key != staged.Key {
		t.Errorf("staged file should be kept, got %+v", st.File)
	}
	if st.ExclusionText != "  ACME Sp. z o.o.  " {
		t.Errorf("exclusion text changed to %q", st.ExclusionText)
	}
	if !st.CanSubmit {
		t.Error("form should allow a retry")
	}
	if ok, _ := fx.store.Exists(context.Background(), staged.Key); !ok {
		t.Error("staged file should survive a failure")
	}
	if fx.journal.settled[out.SubmissionID] != domain.SubmissionFailed {
		t.Errorf("journal status = %q", fx.journal.settled[out.SubmissionID])
	}

	// Retry with the same staged file.
	fx.transport.err = nil
	if _, err := fx.form.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if fx.transport.count() != 2 || fx.transport.bodies[1] != "tekst umowy" {
		t.Errorf("retry did not resend the staged file: %v", fx.transport.bodies)
	}
}

func TestSubmitPreconditions(t *testing.T) {
	fx := newFormFixture(t)

	if _, err := fx.form.Submit(context.Background()); !errors.Is(err, ErrNoFile) {
		t.Errorf("Submit without file = %v, want ErrNoFile", err)
	}
	if _, err := fx.form.Stage(context.Background(), "a.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.form.Submit(context.Background()); !errors.Is(err, ErrNoPrompt) {
		t.Errorf("Submit without prompt = %v, want ErrNoPrompt", err)
	}
	if fx.transport.count() != 0 || fx.queue.Len() != 0 {
		t.Error("refused submissions must not upload or notify")
	}
	if len(fx.journal.created) != 0 {
		t.Error("refused submissions must not be journaled")
	}
}

func TestSubmitRejectsConcurrent(t *testing.T) {
	fx := newFormFixture(t)
	fx.ready(t)
	fx.transport.gate = make(chan struct{})
	fx.transport.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := fx.form.Submit(context.Background())
		done <- err
	}()
	<-fx.transport.started

	st := fx.form.State()
	if !st.Submitting || st.CanSubmit {
		t.Errorf("state while in flight = %+v", st)
	}
	if _, err := fx.form.Submit(context.Background()); !errors.Is(err, ErrInFlight) {
		t.Errorf("second Submit = %v, want ErrInFlight", err)
	}

	close(fx.transport.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if fx.transport.count() != 1 {
		t.Errorf("uploads = %d, want 1", fx.transport.count())
	}
	if fx.queue.Len() != 1 {
		t.Errorf("notifications = %d, want 1", fx.queue.Len())
	}
	if fx.form.State().Submitting {
		t.Error("in-flight flag should clear after settling")
	}
}

func TestRestageDuringUploadIsKept(t *testing.T) {
	fx := newFormFixture(t)
	first := fx.ready(t)
	fx.transport.gate = make(chan struct{})
	fx.transport.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := fx.form.Submit(context.Background())
		done <- err
	}()
	<-fx.transport.started

	next, err := fx.form.Stage(context.Background(), "next.pdf", strings.NewReader("%PDF-1.4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := fx.store.Exists(context.Background(), first.Key); !ok {
		t.Error("file being uploaded was discarded before the upload settled")
	}
	close(fx.transport.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if ok, _ := fx.store.Exists(context.Background(), first.Key); ok {
		t.Error("replaced file should be discarded once the upload settles")
	}

	st := fx.form.State()
	if st.File == nil || st.File.Key != next.Key {
		t.Errorf("file staged during upload was cleared: %+v", st.File)
	}
}

func TestStageReplacesPreviousFile(t *testing.T) {
	fx := newFormFixture(t)
	first, err := fx.form.Stage(context.Background(), "a.txt", strings.NewReader("a"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fx.form.Stage(context.Background(), "b.txt", strings.NewReader("b")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := fx.store.Exists(context.Background(), first.Key); ok {
		t.Error("replaced file should be discarded")
	}

	fx.form.RemoveFile(context.Background())
	if fx.form.State().File != nil {
		t.Error("RemoveFile should clear the staged file")
	}
}

func TestStageRejectsInvalidFile(t *testing.T) {
	fx := newFormFixture(t)
	if _, err := fx.form.Stage(context.Background(), "photo.jpg", strings.NewReader("x")); !errors.Is(err, storage.ErrUnsupportedType) {
		t.Errorf("Stage = %v, want ErrUnsupportedType", err)
	}
	if fx.form.State().File != nil {
		t.Error("invalid file must not be staged")
	}
}

func TestSetLanguagesKeepsBlank(t *testing.T) {
	fx := newFormFixture(t)
	fx.form.SetLanguages("de", "")
	st := fx.form.State()
	if st.FromLang != "de" || st.ToLang != "en" {
		t.Errorf("languages = %s -> %s", st.FromLang, st.ToLang)
	}
}

func TestBlankExclusionOmitted(t *testing.T) {
	fx := newFormFixture(t)
	fx.ready(t)
	fx.form.SetExclusionText("   ")

	if _, err := fx.form.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fx.transport.requests[0].ExclusionText != nil {
		t.Errorf("blank exclusion text should be omitted, got %q", *fx.transport.requests[0].ExclusionText)
	}
}

func TestFailureMessage(t *testing.T) {
	if got := failureMessage("a.pdf", nil); got != "Error uploading file: a.pdf" {
		t.Errorf("failureMessage(nil) = %q", got)
	}
	if got := failureMessage("a.pdf", errors.New("timeout")); got != "Error uploading file: a.pdf. timeout" {
		t.Errorf("failureMessage = %q", got)
	}
}

// hookNotifier runs hook after queueing, from inside the submit callback.
type hookNotifier struct {
	*notify.Queue
	hook func()
}

func (n *hookNotifier) Enqueue(kind notify.Kind, message string) notify.Notification {
	item := n.Queue.Enqueue(kind, message)
	if n.hook != nil {
		n.hook()
	}
	return item
}

func TestSubmitHoldsFormUntilCleared(t *testing.T) {
	fx := newFormFixture(t)
	notifier := &hookNotifier{Queue: fx.queue}
	fx.form = NewForm(FormConfig{
		Transport: fx.transport,
		Files:     storage.NewStager(fx.store, storage.StagerConfig{}),
		Notifier:  notifier,
		Now:       func() time.Time { return testNow },
	})

	var during FormState
	var nested error
	notifier.hook = func() {
		during = fx.form.State()
		_, nested = fx.form.Submit(context.Background())
	}
	fx.ready(t)

	out, err := fx.form.Submit(context.Background())
	if err != nil || !out.Succeeded {
		t.Fatalf("Submit = %+v, %v", out, err)
	}
	if !during.Submitting || during.CanSubmit {
		t.Errorf("state before the form was cleared = submitting %v, can_submit %v", during.Submitting, during.CanSubmit)
	}
	if !errors.Is(nested, ErrInFlight) {
		t.Errorf("second Submit = %v, want ErrInFlight", nested)
	}
	if fx.transport.count() != 1 {
		t.Errorf("uploads = %d, want 1: %v", fx.transport.count(), fx.transport.bodies)
	}
	if st := fx.form.State(); st.Submitting || st.File != nil {
		t.Errorf("state after settling = %+v", st)
	}
}

func TestRemoveDuringUploadDefersDiscard(t *testing.T) {
	fx := newFormFixture(t)
	staged := fx.ready(t)
	fx.transport.gate = make(chan struct{})
	fx.transport.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := fx.form.Submit(context.Background())
		done <- err
	}()
	<-fx.transport.started

	fx.form.RemoveFile(context.Background())
	if fx.form.State().File != nil {
		t.Error("RemoveFile should clear the form immediately")
	}
	if ok, _ := fx.store.Exists(context.Background(), staged.Key); !ok {
		t.Error("file being uploaded was discarded before the upload settled")
	}

	close(fx.transport.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if ok, _ := fx.store.Exists(context.Background(), staged.Key); ok {
		t.Error("removed file should be discarded once the upload settles")
	}
}

func TestSubmitReportsRenamedFile(t *testing.T) {
	fx := newFormFixture(t)
	fx.ready(t)
	fx.transport.ack = "File umowa_20240105103000.txt uploaded successfully"

	out, err := fx.form.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.StoredName != "umowa_20240105103000.txt" {
		t.Errorf("StoredName = %q", out.StoredName)
	}
	if !strings.HasPrefix(out.Notification.Message, "File umowa.txt uploaded successfully!") {
		t.Errorf("notification should name the staged file: %q", out.Notification.Message)
	}
}

func TestStoredName(t *testing.T) {
	tests := []struct {
		ack  string
		want string
	}{
		{"File a.pdf uploaded successfully", "a.pdf"},
		{"File my report_20240105093000.docx uploaded successfully\n", "my report_20240105093000.docx"},
		{"ok", "a.pdf"},
		{"", "a.pdf"},
	}
	for _, tt := range tests {
		if got := storedName(tt.ack, "a.pdf"); got != tt.want {
			t.Errorf("storedName(%q) = %q, want %q", tt.ack, got, tt.want)
		}
	}
}

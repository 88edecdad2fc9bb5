package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/timmy/doctranslate/internal/config"
	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/language"
	"github.com/timmy/doctranslate/internal/logger"
	"github.com/timmy/doctranslate/internal/notify"
	"github.com/timmy/doctranslate/internal/refresh"
	"github.com/timmy/doctranslate/internal/status"
	"github.com/timmy/doctranslate/internal/storage"
	"github.com/timmy/doctranslate/internal/upload"
)

// clockSkew is how far the backend's upload time may trail the local submit time.
const clockSkew = 5 * time.Minute

var errSubmitFailed = errors.New("upload failed")

type submitOptions struct {
	from     string
	to       string
	exclude  string
	promptID int64
	wait     bool
	interval time.Duration
	timeout  time.Duration
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Upload a document for translation",
		Long: "Upload a .txt, .pdf, .docx or .doc file with a language pair and prompt.\n" +
			"With --wait the command follows the document through the pipeline until it completes or fails.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "Source language code (default from config)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Target language code (default from config)")
	cmd.Flags().StringVar(&opts.exclude, "exclude", "", "Text the translation must leave untouched")
	cmd.Flags().Int64Var(&opts.promptID, "prompt", 0, "Prompt ID (default: first prompt offered)")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Wait until the pipeline finishes")
	cmd.Flags().DurationVar(&opts.interval, "interval", 10*time.Second, "Polling interval with --wait")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "Give up waiting after this long")
	return cmd
}

func runSubmit(cmd *cobra.Command, cctx *commandContext, path string, opts submitOptions) error {
	for _, code := range []string{opts.from, opts.to} {
		if code != "" && !language.Known(code) {
			return fmt.Errorf("unknown language %q", code)
		}
	}

	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	client, err := cctx.client()
	if err != nil {
		return err
	}
	ctx := logger.SetComponent(cmd.Context(), "submit")

	form, cleanup, err := newCLIForm(cctx, cfg, client)
	if err != nil {
		return err
	}
	defer cleanup()

	staged, err := stageLocalFile(ctx, form, path)
	if err != nil {
		return err
	}

	prompts, err := client.Prompts(ctx)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}
	form.ApplyPrompts(prompts)
	if opts.promptID != 0 {
		if err := form.SelectPrompt(opts.promptID); err != nil {
			return fmt.Errorf("prompt %d is not offered by the backend; see `translate prompts`", opts.promptID)
		}
	}
	form.SetLanguages(opts.from, opts.to)
	form.SetExclusionText(opts.exclude)

	submittedAt := time.Now()
	outcome, err := form.Submit(ctx)
	switch {
	case errors.Is(err, upload.ErrNoPrompt):
		return errors.New("the backend offers no prompts; cannot submit")
	case err != nil:
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, outcome.Notification.Kind.Title())
	fmt.Fprintln(w, outcome.Notification.Message)
	if !outcome.Succeeded {
		return errSubmitFailed
	}
	if !opts.wait {
		return nil
	}
	name := outcome.StoredName
	if name == "" {
		name = staged.Name
	}
	return waitForDocument(ctx, client, name, submittedAt, opts.interval, opts.timeout, w)
}

// newCLIForm builds a one-shot form backed by a temporary staging directory.
// The journal is best effort; a broken database does not block the upload.
func newCLIForm(cctx *commandContext, cfg *config.Config, transport upload.Transport) (*upload.Form, func(), error) {
	dir, err := os.MkdirTemp("", "translate-submit-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create staging dir: %w", err)
	}
	store, err := storage.NewLocalStore(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, nil, err
	}

	formCfg := upload.FormConfig{
		Transport: transport,
		Files: storage.NewStager(store, storage.StagerConfig{
			MaxSize:    cfg.Form.MaxFileSize,
			Extensions: cfg.Form.AllowedExtensions,
		}),
		Notifier: notify.NewQueue(notify.WithTTL(cfg.Notifications.TTL)),
		FromLang: cfg.Form.DefaultFromLang,
		ToLang:   cfg.Form.DefaultToLang,
	}

	closeJournal := func() {}
	journal, closeFn, err := cctx.openJournal()
	if err != nil {
		logger.GetDefault().WithError(err).Warn("Submission history disabled")
	} else {
		formCfg.Journal = journal
		closeJournal = closeFn
	}

	cleanup := func() {
		closeJournal()
		_ = os.RemoveAll(dir)
	}
	return upload.NewForm(formCfg), cleanup, nil
}

func stageLocalFile(ctx context.Context, form *upload.Form, path string) (storage.StagedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return storage.StagedFile{}, err
	}
	defer f.Close()

	staged, err := form.Stage(ctx, filepath.Base(path), f)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return storage.StagedFile{}, errors.New("only .txt, .pdf, .docx and .doc files are accepted")
	case errors.Is(err, storage.ErrFileTooLarge), errors.Is(err, storage.ErrEmptyFile):
		return storage.StagedFile{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	case err != nil:
		return storage.StagedFile{}, err
	}
	return staged, nil
}

// waitForDocument polls the submission day's list until the newest document
// named name settles, printing each change of progress.
func waitForDocument(ctx context.Context, list refresh.Fetcher, name string, since time.Time, interval, timeout time.Duration, w io.Writer) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	coord := refresh.New(list)
	defer coord.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		err := coord.Refresh(ctx, &since)
		if err != nil && ctx.Err() == nil {
			logger.CtxWarn(ctx, "List refresh failed: %v", err)
		}
		if err == nil {
			docs := coord.State().Documents
			if doc, ok := findSubmitted(docs, name, since); ok {
				p := status.Describe(doc)
				if line := progressLine(doc, p); line != last {
					fmt.Fprintln(w, line)
					last = line
				}
				switch p.Aggregate {
				case status.Completed:
					if p.PrimaryURL != "" {
						fmt.Fprintf(w, "Download: %s\n", p.PrimaryURL)
					}
					return nil
				case status.Failed:
					return fmt.Errorf("%s: pipeline failed", name)
				}
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("stopped waiting for %s: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// findSubmitted returns the newest document named name uploaded no earlier
// than since, allowing for clock skew. Documents without a parsable upload
// time match by name only.
func findSubmitted(docs []domain.Document, name string, since time.Time) (*domain.Document, bool) {
	var best *domain.Document
	var bestAt time.Time
	for i := range docs {
		doc := &docs[i]
		if doc.FileName != name {
			continue
		}
		at, ok := doc.UploadedAt(time.Local)
		if ok && at.Before(since.Add(-clockSkew)) {
			continue
		}
		if best == nil || at.After(bestAt) {
			best, bestAt = doc, at
		}
	}
	return best, best != nil
}

func progressLine(doc *domain.Document, p status.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", doc.FileName, p.Aggregate)
	for _, s := range p.Stages {
		fmt.Fprintf(&b, "  %s %s", s.Stage.Label(), stageMarker(s))
	}
	return b.String()
}

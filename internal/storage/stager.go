package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/timmy/doctranslate/internal/logger"
)

var (
	// ErrUnsupportedType is returned for file extensions outside the allowlist.
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("storage: file too large")
	// ErrEmptyFile is returned for zero-byte files.
	ErrEmptyFile = errors.New("storage: empty file")
)

// Defaults for the pipeline's accepted inputs.
const (
	DefaultMaxFileSize = 20 << 20
	DefaultPrefix      = "staging"
)

// DefaultExtensions are the document types the pipeline accepts.
var DefaultExtensions = []string{".txt", ".pdf", ".docx", ".doc"}

// StagedFile describes one file waiting to be submitted.
type StagedFile struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	StagedAt    time.Time `json:"staged_at"`
}

// StagerConfig configures validation and key layout.
type StagerConfig struct {
	Prefix     string
	MaxSize    int64
	Extensions []string
}

// Stager validates user files and keeps them in a Store.
type Stager struct {
	store   Store
	prefix  string
	maxSize int64
	allowed map[string]bool
	now     func() time.Time
}

// NewStager creates a Stager; zero config fields take the package defaults.
func NewStager(store Store, cfg StagerConfig) *Stager {
	s := &Stager{
		store:   store,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		maxSize: cfg.MaxSize,
		allowed: make(map[string]bool),
		now:     time.Now,
	}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}
	if s.maxSize <= 0 {
		s.maxSize = DefaultMaxFileSize
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.allowed[ext] = true
	}
	return s
}

// MaxSize returns the size limit in bytes.
func (s *Stager) MaxSize() int64 {
	return s.maxSize
}

// Accepts reports whether name has an allowed extension.
func (s *Stager) Accepts(name string) bool {
	return s.allowed[strings.ToLower(filepath.Ext(name))]
}

// Stage validates and stores one file. The content type is sniffed from the data.
// Parameters:
//   - name: the user's file name; only its base name is kept.
//   - r: file content, read at most once up to the size limit.
// Returns:
//   - StagedFile: the stored file.
//   - error: ErrUnsupportedType, ErrFileTooLarge, ErrEmptyFile or a storage error.
func (s *Stager) Stage(ctx context.Context, name string, r io.Reader) (StagedFile, error) {
	name = baseName(name)
	if name == "" || !s.Accepts(name) {
		return StagedFile{}, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return StagedFile{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if n > s.maxSize {
		return StagedFile{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, name, s.maxSize)
	}
	if n == 0 {
		return StagedFile{}, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}

	f := StagedFile{
		Key:         path.Join(s.prefix, uuid.NewString(), name),
		Name:        name,
		Size:        n,
		ContentType: mimetype.Detect(buf.Bytes()).String(),
		StagedAt:    s.now(),
	}
	if err := s.store.Put(ctx, f.Key, &buf, f.Size, f.ContentType); err != nil {
		return StagedFile{}, err
	}

	logger.With(logger.Fields{
		logger.FieldSize: f.Size,
		"key":            f.Key,
		"content_type":   f.ContentType,
	}).Debug(ctx, "Staged %s", f.Name)
	return f, nil
}

// Open returns the content of a staged file.
func (s *Stager) Open(ctx context.Context, f StagedFile) (io.ReadCloser, error) {
	return s.store.Open(ctx, f.Key)
}

// Discard deletes a staged file.
func (s *Stager) Discard(ctx context.Context, f StagedFile) error {
	if f.Key == "" {
		return nil
	}
	return s.store.Delete(ctx, f.Key)
}

// baseName strips client-side directories, which browsers and CLIs may send
// with either separator.
func baseName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

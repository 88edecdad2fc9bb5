package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     Type
	}{
		{"", TypeLocal},
		{"https://abc.r2.cloudflarestorage.com", TypeR2},
		{"s3.eu-central-1.amazonaws.com", TypeS3},
		{"localhost:9000", TypeS3Compatible},
	}
	for _, tt := range tests {
		if got := detectType(tt.endpoint); got != tt.want {
			t.Errorf("detectType(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestNewUnknownType(t *testing.T) {
	if _, err := New(Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	if got := normalizeEndpoint("https://minio.local:9000/some/path"); got != "minio.local:9000" {
		t.Errorf("normalizeEndpoint = %q", got)
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Put(ctx, "staging/abc/a.txt", strings.NewReader("hello"), 5, "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := store.Exists(ctx, "staging/abc/a.txt")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	rc, err := store.Open(ctx, "staging/abc/a.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if err := store.Delete(ctx, "staging/abc/a.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "staging/abc/a.txt"); err != nil {
		t.Errorf("second Delete should be a no-op: %v", err)
	}
	if _, err := store.Open(ctx, "staging/abc/a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after delete = %v, want ErrNotFound", err)
	}
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../outside.txt", "/etc/passwd", "."} {
		if err := store.Put(context.Background(), key, strings.NewReader("x"), 1, ""); err == nil {
			t.Errorf("Put(%q) should fail", key)
		}
	}
}

func newTestStager(t *testing.T, cfg StagerConfig) (*Stager, *LocalStore) {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewStager(store, cfg), store
}

func TestStageAndDiscard(t *testing.T) {
	ctx := context.Background()
	stager, store := newTestStager(t, StagerConfig{})

	f, err := stager.Stage(ctx, `C:\Users\me\Umowa.TXT`, strings.NewReader("plain text body"))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if f.Name != "Umowa.TXT" {
		t.Errorf("Name = %q, want base name", f.Name)
	}
	if !strings.HasPrefix(f.Key, "staging/") || !strings.HasSuffix(f.Key, "/Umowa.TXT") {
		t.Errorf("Key = %q", f.Key)
	}
	if f.Size != int64(len("plain text body")) {
		t.Errorf("Size = %d", f.Size)
	}
	if !strings.HasPrefix(f.ContentType, "text/plain") {
		t.Errorf("ContentType = %q", f.ContentType)
	}

	rc, err := stager.Open(ctx, f)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "plain text body" {
		t.Errorf("content = %q", data)
	}

	if err := stager.Discard(ctx, f); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if ok, _ := store.Exists(ctx, f.Key); ok {
		t.Error("staged file should be gone after Discard")
	}
}

func TestStageDetectsPDF(t *testing.T) {
	stager, _ := newTestStager(t, StagerConfig{})
	f, err := stager.Stage(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if f.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q, want application/pdf", f.ContentType)
	}
}

func TestStageValidation(t *testing.T) {
	stager, _ := newTestStager(t, StagerConfig{MaxSize: 8})

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr error
	}{
		{"unsupported extension", "image.png", "x", ErrUnsupportedType},
		{"no extension", "README", "x", ErrUnsupportedType},
		{"empty name", "", "x", ErrUnsupportedType},
		{"too large", "big.txt", "123456789", ErrFileTooLarge},
		{"empty", "empty.doc", "", ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := stager.Stage(context.Background(), tt.file, strings.NewReader(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Stage error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := stager.Stage(context.Background(), "exact.txt", bytes.NewReader([]byte("12345678"))); err != nil {
		t.Errorf("file at the size limit should be accepted: %v", err)
	}
}

func TestStagerDefaults(t *testing.T) {
	stager, _ := newTestStager(t, StagerConfig{Extensions: []string{"PDF", " .docx "}})
	if stager.MaxSize() != DefaultMaxFileSize {
		t.Errorf("MaxSize = %d", stager.MaxSize())
	}
	if !stager.Accepts("a.pdf") || !stager.Accepts("b.DOCX") || stager.Accepts("c.txt") {
		t.Error("extension allowlist not normalized")
	}
}

func TestDiscardZeroValue(t *testing.T) {
	stager, _ := newTestStager(t, StagerConfig{})
	if err := stager.Discard(context.Background(), StagedFile{}); err != nil {
		t.Errorf("Discard of empty StagedFile = %v", err)
	}
}

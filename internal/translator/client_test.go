package translator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timmy/doctranslate/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret"})
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestListByDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_logs_by_date" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2024-01-05" {
			t.Errorf("date = %q", got)
		}
		if got := r.Header.Get(SubscriptionKeyHeader); got != "secret" {
			t.Errorf("subscription key = %q", got)
		}
		writeJSON(w, `[{"id":"1","file_name":"a.pdf","upload_status":"done","glossary_processing_status":null,"translation_status":"failed"}]`)
	})

	docs, err := c.ListByDate(context.Background(), "2024-01-05")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents", len(docs))
	}
	d := docs[0]
	if d.FileName != "a.pdf" || d.UploadStatus != domain.StageDone || d.TranslationStatus != domain.StageFailed {
		t.Errorf("decoded document = %+v", d)
	}
	if d.GlossaryProcessingStatus != domain.StageAbsent || d.WatermarkStatus != domain.StageAbsent {
		t.Errorf("null and missing statuses should be absent: %+v", d)
	}
}

func TestListByDateEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[]`)
	})
	docs, err := c.ListByDate(context.Background(), "2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("docs = %#v, want empty non-nil slice", docs)
	}
}

func TestListByDateServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Error fetching logs: connection refused", http.StatusInternalServerError)
	})

	_, err := c.ListByDate(context.Background(), "2024-01-05")
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("error = %v, want ErrStatus", err)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error %T is not a *StatusError", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", se.StatusCode)
	}
	if !strings.Contains(se.Message, "connection refused") {
		t.Errorf("message = %q", se.Message)
	}
}

func TestListAll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_all_logs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, `[{"file_name":"a.txt"},{"file_name":"b.txt"}]`)
	})
	docs, err := c.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[1].FileName != "b.txt" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestPromptsNormalizesText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_all_prompts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, `[{"id":3,"prompt_name":"Legal","prompt_text":"line one\\nline two"},{"id":1,"prompt_name":"Plain","prompt_text":"x"}]`)
	})

	prompts, err := c.Prompts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(prompts) != 2 || prompts[0].ID != 3 || prompts[1].ID != 1 {
		t.Fatalf("prompts = %+v, want backend order", prompts)
	}
	if prompts[0].PromptText != "line one\nline two" {
		t.Errorf("prompt text = %q", prompts[0].PromptText)
	}
}

func TestUploadMultipart(t *testing.T) {
	tests := []struct {
		name      string
		exclusion *string
		wantField bool
	}{
		{name: "with exclusion text", exclusion: strPtr("ACME Corp"), wantField: true},
		{name: "without exclusion text", exclusion: nil, wantField: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/upload_file" {
					t.Errorf("%s %s", r.Method, r.URL.Path)
				}
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("ParseMultipartForm: %v", err)
					return
				}
				if got := r.FormValue("prompt_id"); got != "7" {
					t.Errorf("prompt_id = %q", got)
				}
				if r.FormValue("fromLang") != "pl" || r.FormValue("toLang") != "en" {
					t.Errorf("langs = %q -> %q", r.FormValue("fromLang"), r.FormValue("toLang"))
				}
				_, present := r.MultipartForm.Value["exclusion_text"]
				if present != tt.wantField {
					t.Errorf("exclusion_text present = %v, want %v", present, tt.wantField)
				}
				if tt.wantField && r.FormValue("exclusion_text") != *tt.exclusion {
					t.Errorf("exclusion_text = %q", r.FormValue("exclusion_text"))
				}

				f, hdr, err := r.FormFile("file")
				if err != nil {
					t.Errorf("FormFile: %v", err)
					return
				}
				defer f.Close()
				body, _ := io.ReadAll(f)
				if hdr.Filename != "contract.txt" || string(body) != "hello" {
					t.Errorf("file = %s %q", hdr.Filename, body)
				}
				if ct := hdr.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
					t.Errorf("part content type = %q", ct)
				}
				_, _ = io.WriteString(w, "File contract_1.txt uploaded successfully")
			})

			ack, err := c.Upload(context.Background(), domain.UploadRequest{
				FileName:      "contract.txt",
				ContentType:   "text/plain; charset=utf-8",
				Body:          strings.NewReader("hello"),
				PromptID:      7,
				FromLang:      "pl",
				ToLang:        "en",
				ExclusionText: tt.exclusion,
			})
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if ack != "File contract_1.txt uploaded successfully" {
				t.Errorf("ack = %q", ack)
			}
		})
	}
}

func TestUploadFailureCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Language information not provided in the request", http.StatusBadRequest)
	})

	_, err := c.Upload(context.Background(), domain.UploadRequest{
		FileName: "a.txt",
		Body:     strings.NewReader("x"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Language information not provided in the request" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestStatusErrorWithoutBody(t *testing.T) {
	err := &StatusError{StatusCode: 502}
	if err.Error() != "request failed with status code 502" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func strPtr(s string) *string { return &s }

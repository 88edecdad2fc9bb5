package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// StageStatus is the state of one pipeline stage as reported by the backend.
// Values are StageAbsent, StageDone and StageFailed.
type StageStatus int

const (
	StageAbsent StageStatus = iota
	StageDone
	StageFailed
)

// ParseStageStatus maps a raw backend value to a StageStatus.
// Parameters:
//   - raw: status string from the backend ("done", "failed" or anything else).
// Returns:
//   - StageStatus: StageDone or StageFailed for known values, StageAbsent otherwise.
func ParseStageStatus(raw string) StageStatus {
	switch strings.TrimSpace(raw) {
	case "done":
		return StageDone
	case "failed":
		return StageFailed
	default:
		return StageAbsent
	}
}

// String returns the backend wire value, empty for StageAbsent.
func (s StageStatus) String() string {
	switch s {
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return ""
	}
}

// MarshalJSON encodes StageAbsent as null.
func (s StageStatus) MarshalJSON() ([]byte, error) {
	if s == StageAbsent {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts null, a string, or a missing value.
func (s *StageStatus) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = StageAbsent
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStageStatus(raw)
	return nil
}

// Stage identifies one of the four pipeline steps.
type Stage string

const (
	StageUpload      Stage = "uploaded"
	StageGlossary    Stage = "processed"
	StageTranslation Stage = "translated"
	StageWatermark   Stage = "watermarked"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageUpload, StageGlossary, StageTranslation, StageWatermark}

// Label returns the human-readable stage name.
func (s Stage) Label() string {
	switch s {
	case StageUpload:
		return "Uploaded"
	case StageGlossary:
		return "Processed"
	case StageTranslation:
		return "Translated"
	case StageWatermark:
		return "Watermarked"
	default:
		return string(s)
	}
}

// Document is one translation log record owned by the backend.
// The client only ever holds it inside a fetched snapshot.
type Document struct {
	ID             string `json:"id,omitempty"`
	FileName       string `json:"file_name"`
	FileType       string `json:"file_type,omitempty"`
	UploadDate     string `json:"upload_date,omitempty"`
	UploadDatetime string `json:"upload_datetime,omitempty"`
	UploadedBy     string `json:"uploaded_by,omitempty"`
	FromLanguage   string `json:"fromLanguage,omitempty"`
	ToLanguage     string `json:"toLanguage,omitempty"`

	UploadStatus             StageStatus `json:"upload_status"`
	GlossaryProcessingStatus StageStatus `json:"glossary_processing_status"`
	TranslationStatus        StageStatus `json:"translation_status"`
	WatermarkStatus          StageStatus `json:"watermark_status"`

	LandingZonePath    string `json:"landing_zone_path,omitempty"`
	GlossaryZonePath   string `json:"glossary_zone_path,omitempty"`
	TranslatedZonePath string `json:"translated_zone_path,omitempty"`
	WatermarkZonePath  string `json:"watermark_zone_path,omitempty"`

	GlossaryContent string `json:"glossary_content,omitempty"`
	ExclusionText   string `json:"exclusion_text,omitempty"`
}

// Status returns the status field that backs the given stage.
func (d *Document) Status(stage Stage) StageStatus {
	switch stage {
	case StageUpload:
		return d.UploadStatus
	case StageGlossary:
		return d.GlossaryProcessingStatus
	case StageTranslation:
		return d.TranslationStatus
	case StageWatermark:
		return d.WatermarkStatus
	default:
		return StageAbsent
	}
}

// ArtifactPath returns the artifact location recorded for the given stage.
func (d *Document) ArtifactPath(stage Stage) string {
	switch stage {
	case StageUpload:
		return d.LandingZonePath
	case StageGlossary:
		return d.GlossaryZonePath
	case StageTranslation:
		return d.TranslatedZonePath
	case StageWatermark:
		return d.WatermarkZonePath
	default:
		return ""
	}
}

// Key returns a stable identity for the record across refreshes.
// The backend id wins when present; otherwise file name and upload time are combined.
func (d *Document) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.FileName + "@" + d.UploadDatetime
}

var uploadTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	DayLayout,
}

// UploadedAt parses UploadDatetime. Timestamps without a zone are read in loc.
// Parameters:
//   - loc: location for zone-less timestamps; nil means time.Local.
// Returns:
//   - time.Time: parsed upload time.
//   - bool: false when the timestamp is missing or unparsable.
func (d *Document) UploadedAt(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(d.UploadDatetime)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range uploadTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type glossaryItem struct {
	Items string `json:"items"`
}

// Glossary decodes GlossaryContent into its terms, skipping blanks.
// Malformed content yields nil.
func (d *Document) Glossary() []string {
	if strings.TrimSpace(d.GlossaryContent) == "" {
		return nil
	}
	var items []glossaryItem
	if err := json.Unmarshal([]byte(d.GlossaryContent), &items); err != nil {
		return nil
	}
	terms := make([]string, 0, len(items))
	for _, item := range items {
		if term := strings.TrimSpace(item.Items); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

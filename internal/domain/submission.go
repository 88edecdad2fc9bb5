package domain

import "time"

// SubmissionStatus represents the outcome of a local submit attempt.
// Values include SubmissionPending, SubmissionSucceeded, and SubmissionFailed.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Submission is one journal row recording a submit attempt made from this client.
// It is operator history only; document state stays on the backend.
type Submission struct {
	ID            string           `gorm:"type:text;primaryKey" json:"id"`
	FileName      string           `gorm:"type:text;not null" json:"file_name"`
	FileSize      int64            `gorm:"default:0" json:"file_size"`
	FromLang      string           `gorm:"type:text" json:"from_lang"`
	ToLang        string           `gorm:"type:text" json:"to_lang"`
	PromptID      int64            `json:"prompt_id"`
	ExclusionText string           `gorm:"type:text" json:"exclusion_text,omitempty"`
	Status        SubmissionStatus `gorm:"type:text;index:idx_submissions_status;default:pending" json:"status"`
	ErrorMessage  string           `gorm:"type:text" json:"error_message,omitempty"`
	SubmittedAt   time.Time        `gorm:"index:idx_submissions_submitted_at" json:"submitted_at"`
	SettledAt     *time.Time       `json:"settled_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName returns the database table name for Submission.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Submission) TableName() string {
	return "submissions"
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/doctranslate/internal/domain"
	"gorm.io/gorm"
)

// ErrSubmissionNotFound is returned when a journal row does not exist.
var ErrSubmissionNotFound = errors.New("repository: submission not found")

// SubmissionRepository is the local journal of submit attempts.
type SubmissionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSubmissionRepository creates a new SubmissionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *SubmissionRepository: repository instance bound to db.
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db, now: time.Now}
}

// Create inserts a pending submission.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - s: submission record to persist.
//
// Returns:
//   - error: non-nil if the insert fails.
func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	if s.Status == "" {
		s.Status = domain.SubmissionPending
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = r.now()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

// Settle records the outcome of a submission.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: submission ID.
//   - status: final status.
//   - errMessage: failure reason, empty on success.
//
// Returns:
//   - error: ErrSubmissionNotFound if no row matches, or the update error.
func (r *SubmissionRepository) Settle(ctx context.Context, id string, status domain.SubmissionStatus, errMessage string) error {
	settledAt := r.now()
	result := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMessage,
			"settled_at":    settledAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to settle submission %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return nil
}

// GetByID retrieves one submission.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: submission ID.
//
// Returns:
//   - *domain.Submission: matching submission.
//   - error: ErrSubmissionNotFound if missing.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	var s domain.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
		}
		return nil, err
	}
	return &s, nil
}

// ListRecent returns the newest submissions first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of rows; values <= 0 mean 50.
//
// Returns:
//   - []domain.Submission: submissions ordered by submission time, newest first.
//   - error: non-nil if the query fails.
func (r *SubmissionRepository) ListRecent(ctx context.Context, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Submission
	if err := r.db.WithContext(ctx).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus returns how many submissions are in each status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//
// Returns:
//   - map[domain.SubmissionStatus]int64: counts keyed by status.
//   - error: non-nil if the query fails.
func (r *SubmissionRepository) CountByStatus(ctx context.Context) (map[domain.SubmissionStatus]int64, error) {
	var rows []struct {
		Status domain.SubmissionStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&domain.Submission{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.SubmissionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

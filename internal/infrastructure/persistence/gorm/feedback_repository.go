package gorm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// FeedbackRepository implements outbound.FeedbackRepository.
type FeedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates the repository.
func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

var _ outbound.FeedbackRepository = (*FeedbackRepository)(nil)

// ListSince returns a user's ratings created at or after since,
// newest first.
func (r *FeedbackRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]outbound.Feedback, error) {
	var rows []FeedbackModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID.String(), since).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing feedback: %v", outbound.ErrStoreUnavailable, err)
	}

	out := make([]outbound.Feedback, 0, len(rows))
	for _, row := range rows {
		uid, err := uuid.Parse(row.UserID)
		if err != nil {
			continue
		}
		rid, err := uuid.Parse(row.RecipeID)
		if err != nil {
			continue
		}
		out = append(out, outbound.Feedback{
			UserID:    uid,
			RecipeID:  rid,
			Rating:    row.Rating,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// Create stores one rating.
func (r *FeedbackRepository) Create(ctx context.Context, fb *outbound.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
	row := FeedbackModel{
		UserID:    fb.UserID.String(),
		RecipeID:  fb.RecipeID.String(),
		Rating:    fb.Rating,
		CreatedAt: fb.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: creating feedback: %v", outbound.ErrStoreUnavailable, err)
	}
	return nil
}

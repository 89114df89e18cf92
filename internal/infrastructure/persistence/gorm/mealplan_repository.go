package gorm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/recipe"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/outbound"
)

// MealPlanRepository implements outbound.MealPlanRepository.
type MealPlanRepository struct {
	db *gorm.DB
}

// NewMealPlanRepository creates the repository.
func NewMealPlanRepository(db *gorm.DB) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

var _ outbound.MealPlanRepository = (*MealPlanRepository)(nil)

// Save writes the plan and all its items in one transaction. Failures
// wrap mealplan.ErrPlanPersistence.
func (r *MealPlanRepository) Save(ctx context.Context, plan *mealplan.WeeklyPlan) error {
	row := MealPlanModel{
		ID:        plan.ID.String(),
		UserID:    plan.UserID.String(),
		StartDate: plan.StartDate,
		CreatedAt: plan.CreatedAt,
	}
	for slotIdx, slot := range plan.Slots {
		for pos, sug := range slot.Suggestions {
			selected := slot.SelectedIndex != nil && *slot.SelectedIndex == pos
			row.Items = append(row.Items, MealPlanItemModel{
				SlotIndex:  slotIdx,
				Date:       slot.Date,
				MealType:   string(slot.MealType),
				RecipeID:   sug.Recipe.ID.String(),
				RecipeName: sug.Recipe.Name,
				Origin:     string(sug.Origin),
				Score:      sug.Score,
				Position:   pos,
				Selected:   selected,
			})
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", mealplan.ErrPlanPersistence, err)
	}
	return nil
}

// FindByID reloads a stored plan. Suggestions come back as name and
// score references; full recipes are joined in lazily by callers that
// need them.
func (r *MealPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*mealplan.WeeklyPlan, error) {
	var row MealPlanModel
	err := r.db.WithContext(ctx).Preload("Items").First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, mealplan.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading plan: %v", outbound.ErrStoreUnavailable, err)
	}

	planID, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing plan id: %w", err)
	}
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}

	plan := &mealplan.WeeklyPlan{
		ID:        planID,
		UserID:    userID,
		StartDate: row.StartDate,
		CreatedAt: row.CreatedAt,
	}

	bySlot := make(map[int][]MealPlanItemModel)
	slotOrder := make([]int, 0)
	for _, item := range row.Items {
		if _, seen := bySlot[item.SlotIndex]; !seen {
			slotOrder = append(slotOrder, item.SlotIndex)
		}
		bySlot[item.SlotIndex] = append(bySlot[item.SlotIndex], item)
	}
	sort.Ints(slotOrder)

	for _, slotIdx := range slotOrder {
		items := bySlot[slotIdx]
		sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })

		slot := mealplan.MealSlot{
			Date:     items[0].Date,
			MealType: mealplan.MealType(items[0].MealType),
		}
		for pos, item := range items {
			rid, err := uuid.Parse(item.RecipeID)
			if err != nil {
				continue
			}
			slot.Suggestions = append(slot.Suggestions, mealplan.Suggestion{
				Recipe: recipe.Recipe{ID: rid, Name: item.RecipeName},
				Origin: mealplan.Origin(item.Origin),
				Score:  item.Score,
			})
			if item.Selected {
				p := pos
				slot.SelectedIndex = &p
			}
		}
		plan.Slots = append(plan.Slots, slot)
	}
	return plan, nil
}

// ListItemsSince returns recipe references from a user's plans created
// at or after since.
func (r *MealPlanRepository) ListItemsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]outbound.PlanItemRef, error) {
	var items []MealPlanItemModel
	err := r.db.WithContext(ctx).
		Joins("JOIN meal_plans ON meal_plans.id = meal_plan_items.plan_id").
		Where("meal_plans.user_id = ? AND meal_plans.created_at >= ?", userID.String(), since).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing plan items: %v", outbound.ErrStoreUnavailable, err)
	}

	out := make([]outbound.PlanItemRef, 0, len(items))
	for _, item := range items {
		rid, err := uuid.Parse(item.RecipeID)
		if err != nil {
			continue
		}
		out = append(out, outbound.PlanItemRef{RecipeID: rid, Date: item.Date})
	}
	return out, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"gorm.io/gorm"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.Result) error {
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}
	return nil
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, id string) (*models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).First(&result, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Result{})
	query = r.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	query = r.applySorting(query, filters)
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var results []*models.Result
	if err := query.Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}

	return results, total, nil
}

func (r *ResultPostgreSQL) GetLatest(ctx context.Context, assignmentID, userID string) (*models.Result, error) {
	var result models.Result
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Order("submitted_at DESC").
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) CountByAssignmentAndUser(ctx context.Context, assignmentID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Result{}).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// GetAssignmentStats aggregates submitted results for one assignment. Score
// totals live in the JSONB summary column, so aggregation happens in Go
// rather than SQL.
func (r *ResultPostgreSQL) GetAssignmentStats(ctx context.Context, assignmentID string) (*repositories.AssignmentStats, error) {
	var results []*models.Result
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load results for stats: %w", err)
	}

	stats := &repositories.AssignmentStats{TotalAttempts: len(results)}
	if len(results) == 0 {
		return stats, nil
	}

	totalCorrect := 0
	totalElapsed := 0
	for _, result := range results {
		if result.EndReason == models.AdvanceTimeout {
			stats.TimedOutAttempts++
		}
		correct, _ := result.CorrectTotal()
		totalCorrect += correct
		totalElapsed += result.ElapsedSec
	}

	stats.AverageCorrect = float64(totalCorrect) / float64(len(results))
	stats.AverageElapsed = totalElapsed / len(results)
	return stats, nil
}

func (r *ResultPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if filters.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filters.AssignmentID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Mode != nil {
		query = query.Where("mode = ?", *filters.Mode)
	}
	if filters.DateFrom != nil {
		query = query.Where("submitted_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("submitted_at <= ?", *filters.DateTo)
	}
	return query
}

func (r *ResultPostgreSQL) applySorting(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	sortBy := "submitted_at"
	switch filters.SortBy {
	case "elapsed_sec", "submitted_at":
		sortBy = filters.SortBy
	}
	sortOrder := "DESC"
	if filters.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	return query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package repositories

import (
	"context"

	"github.com/lumiprep/session-service/internal/models"
)

// ResultRepository interface for submitted attempt results
type ResultRepository interface {
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id string) (*models.Result, error)

	// Query operations
	List(ctx context.Context, filters ResultFilters) ([]*models.Result, int64, error)
	GetLatest(ctx context.Context, assignmentID, userID string) (*models.Result, error)

	// Attempt accounting
	CountByAssignmentAndUser(ctx context.Context, assignmentID, userID string) (int64, error)

	// Statistics
	GetAssignmentStats(ctx context.Context, assignmentID string) (*AssignmentStats, error)
}

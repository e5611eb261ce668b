package repositories

import (
	"context"

	"github.com/lumiprep/session-service/internal/models"
)

// AssignmentRepository interface for assignment definitions
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, limit, offset int) ([]*models.Assignment, int64, error)
}

// QuestionRepository interface for the question bank
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id string) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id string) error

	// Bulk operations used by the import pipeline
	CreateBatch(ctx context.Context, questions []*models.Question) error
	DeleteByModuleKey(ctx context.Context, moduleKey string) error

	// Query operations
	GetByModuleKey(ctx context.Context, moduleKey string) ([]*models.Question, error)
	GetByModuleKeys(ctx context.Context, moduleKeys []string) (map[string][]*models.Question, error)
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)
	CountByModuleKey(ctx context.Context, moduleKey string) (int64, error)
}

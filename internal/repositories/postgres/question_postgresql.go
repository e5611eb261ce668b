package postgres

import (
	"context"
	"fmt"

	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := q.db.WithContext(ctx).First(&question, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id string) error {
	result := q.db.WithContext(ctx).Delete(&models.Question{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateBatch inserts imported questions in a single transaction so a failed
// import never leaves a module half-populated.
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(questions, 100).Error; err != nil {
			return fmt.Errorf("failed to create questions batch: %w", err)
		}
		return nil
	})
}

func (q *QuestionPostgreSQL) DeleteByModuleKey(ctx context.Context, moduleKey string) error {
	err := q.db.WithContext(ctx).
		Where("module_key = ?", moduleKey).
		Delete(&models.Question{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete questions for module %s: %w", moduleKey, err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByModuleKey(ctx context.Context, moduleKey string) ([]*models.Question, error) {
	var questions []*models.Question
	err := q.db.WithContext(ctx).
		Where("module_key = ?", moduleKey).
		Order("position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for module %s: %w", moduleKey, err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetByModuleKeys(ctx context.Context, moduleKeys []string) (map[string][]*models.Question, error) {
	var questions []*models.Question
	err := q.db.WithContext(ctx).
		Where("module_key IN ?", moduleKeys).
		Order("module_key ASC, position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	byModule := make(map[string][]*models.Question, len(moduleKeys))
	for _, question := range questions {
		byModule[question.ModuleKey] = append(byModule[question.ModuleKey], question)
	}
	return byModule, nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	query := q.db.WithContext(ctx).Model(&models.Question{})
	if filters.ModuleKey != nil {
		query = query.Where("module_key = ?", *filters.ModuleKey)
	}
	if filters.Skill != nil {
		query = query.Where("skill = ?", *filters.Skill)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var questions []*models.Question
	if err := query.Order("module_key ASC, position ASC").Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

func (q *QuestionPostgreSQL) CountByModuleKey(ctx context.Context, moduleKey string) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("module_key = ?", moduleKey).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"github.com/lumiprep/session-service/internal/validator"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

// QuestionSourceService assembles the module decks a session runs against and
// handles question-bank imports.
type QuestionSourceService interface {
	// LoadModules materializes the assignment's module layout into fully
	// populated, normalized modules. It fails closed: a layout with no
	// modules, or a module with no questions, is an error rather than a
	// degraded session.
	LoadModules(ctx context.Context, assignment *models.Assignment) ([]models.Module, error)

	// Import operations
	ImportQuestionsFromFile(ctx context.Context, reader io.Reader, filename string) (*ImportResult, error)
	ImportQuestionsFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error)
	ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error)
}

type questionSourceService struct {
	assignments repositories.AssignmentRepository
	questions   repositories.QuestionRepository
	logger      *slog.Logger
	validator   *validator.Validator
}

func NewQuestionSourceService(
	assignments repositories.AssignmentRepository,
	questions repositories.QuestionRepository,
	logger *slog.Logger,
	validator *validator.Validator,
) QuestionSourceService {
	return &questionSourceService{
		assignments: assignments,
		questions:   questions,
		logger:      logger,
		validator:   validator,
	}
}

// ===== MODULE LOADING =====

func (s *questionSourceService) LoadModules(ctx context.Context, assignment *models.Assignment) ([]models.Module, error) {
	layout := assignment.ModuleLayout.Data()
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: assignment %s has an empty module layout", ErrAssignmentEmpty, assignment.ID)
	}

	keys := make([]string, 0, len(layout))
	for _, descriptor := range layout {
		keys = append(keys, descriptor.Key)
	}

	byModule, err := s.questions.GetByModuleKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for assignment %s: %w", assignment.ID, err)
	}

	modules := make([]models.Module, 0, len(layout))
	for _, descriptor := range layout {
		rows := byModule[descriptor.Key]
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: module %s has no questions", ErrAssignmentEmpty, descriptor.Key)
		}

		questions := make([]models.Question, 0, len(rows))
		for _, row := range rows {
			questions = append(questions, normalizeQuestion(*row))
		}

		modules = append(modules, models.Module{
			Key:         descriptor.Key,
			Title:       descriptor.Title,
			DurationSec: descriptor.DurationSec,
			Questions:   questions,
		})
	}

	// Shuffle happens once at load, so a resumed attempt sees the same
	// order it started with via the persisted snapshot indices.
	if assignment.ShuffleModules {
		rand.Shuffle(len(modules), func(i, j int) {
			modules[i], modules[j] = modules[j], modules[i]
		})
	}

	s.logger.Info("Loaded assignment modules",
		"assignment_id", assignment.ID,
		"module_count", len(modules))

	return modules, nil
}

// normalizeQuestion scrubs a stored row into the shape the engine grades
// against: options without rendered text are dropped, and an unset answer
// type is inferred from whether any options survive.
func normalizeQuestion(q models.Question) models.Question {
	choices := q.ChoiceList()
	kept := make([]models.Choice, 0, len(choices))
	for _, choice := range choices {
		if strings.TrimSpace(choice.Label) == "" {
			continue
		}
		kept = append(kept, choice)
	}
	q.Choices = datatypes.NewJSONType(kept)

	if q.AnswerType == "" {
		if len(kept) > 0 {
			q.AnswerType = models.AnswerChoice
		} else {
			q.AnswerType = models.AnswerNumeric
		}
	}

	return q
}

// ===== IMPORT OPERATIONS =====

type ImportValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ImportResult struct {
	TotalRows    int                     `json:"total_rows"`
	SuccessCount int                     `json:"success_count"`
	ErrorCount   int                     `json:"error_count"`
	Errors       []ImportValidationError `json:"errors,omitempty"`
	Questions    []*models.Question      `json:"questions,omitempty"`
}

func (s *questionSourceService) ImportQuestionsFromFile(ctx context.Context, reader io.Reader, filename string) (*ImportResult, error) {
	s.logger.Info("Starting question import", "filename", filename)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return s.ImportQuestionsFromCSV(ctx, reader)
	case ".xlsx", ".xls":
		return s.ImportQuestionsFromExcel(ctx, reader)
	default:
		return nil, fmt.Errorf("%w: %s", ErrImportInvalidFormat, filename)
	}
}

func (s *questionSourceService) ImportQuestionsFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrImportEmptyFile
	}

	return s.importRows(ctx, records[0], records[1:])
}

func (s *questionSourceService) ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrImportEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrImportEmptyFile
	}

	return s.importRows(ctx, rows[0], rows[1:])
}

var optionColumns = []string{"option_a", "option_b", "option_c", "option_d"}

func (s *questionSourceService) importRows(ctx context.Context, header []string, rows [][]string) (*ImportResult, error) {
	headerMap := make(map[string]int, len(header))
	for i, name := range header {
		headerMap[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range []string{"module_key", "question_text"} {
		if _, ok := headerMap[col]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", ErrImportInvalidFormat, col)
		}
	}

	result := &ImportResult{TotalRows: len(rows)}
	positions := make(map[string]int)

	var questions []*models.Question
	for rowIndex, row := range rows {
		question, rowErrors := s.parseImportRow(row, headerMap, rowIndex+2, positions)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		questions = append(questions, question)
		result.SuccessCount++
	}

	if len(questions) > 0 {
		if err := s.questions.CreateBatch(ctx, questions); err != nil {
			return nil, fmt.Errorf("failed to save imported questions: %w", err)
		}
	}

	result.Questions = questions
	s.logger.Info("Question import completed",
		"total_rows", result.TotalRows,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)

	return result, nil
}

func (s *questionSourceService) parseImportRow(row []string, headerMap map[string]int, rowNum int, positions map[string]int) (*models.Question, []ImportValidationError) {
	cell := func(name string) string {
		idx, ok := headerMap[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var errs []ImportValidationError

	moduleKey := cell("module_key")
	if moduleKey == "" {
		errs = append(errs, ImportValidationError{Row: rowNum, Field: "module_key", Message: "is required"})
	}
	text := cell("question_text")
	if text == "" {
		errs = append(errs, ImportValidationError{Row: rowNum, Field: "question_text", Message: "is required"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	var choices []models.Choice
	for i, col := range optionColumns {
		if label := cell(col); label != "" {
			choices = append(choices, models.Choice{
				Value: string(rune('A' + i)),
				Label: label,
			})
		}
	}

	positions[moduleKey]++
	question := &models.Question{
		ID:        uuid.NewString(),
		ModuleKey: moduleKey,
		Position:  positions[moduleKey],
		Text:      text,
		Choices:   datatypes.NewJSONType(choices),
	}

	if passage := cell("passage"); passage != "" {
		question.Passage = &passage
	}
	if correct := cell("correct_answer"); correct != "" {
		question.Correct = &correct
	}
	if skill := cell("skill"); skill != "" {
		question.Skill = &skill
	}
	if difficulty := cell("difficulty"); difficulty != "" {
		level := models.DifficultyLevel(difficulty)
		switch level {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			question.Difficulty = &level
		default:
			return nil, []ImportValidationError{{Row: rowNum, Field: "difficulty", Message: "must be Easy, Medium, or Hard"}}
		}
	}

	if answerType := cell("answer_type"); answerType != "" {
		question.AnswerType = models.AnswerType(answerType)
		if err := s.validator.ValidateStruct(question); err != nil {
			return nil, []ImportValidationError{{Row: rowNum, Field: "answer_type", Message: "must be choice, numeric, or text"}}
		}
	}

	return question, nil
}

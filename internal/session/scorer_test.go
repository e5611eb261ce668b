package session

import (
	"testing"

	"github.com/lumiprep/session-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func choiceQuestion(id, correct string) models.Question {
	return models.Question{
		ID:         id,
		AnswerType: models.AnswerChoice,
		Correct:    strPtr(correct),
	}
}

func TestIsCorrect_Choice(t *testing.T) {
	q := choiceQuestion("q1", "b")

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "exact match", value: "b", want: true},
		{name: "case normalized", value: "B", want: true},
		{name: "whitespace trimmed", value: " b ", want: true},
		{name: "wrong option", value: "A", want: false},
		{name: "empty value", value: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCorrect(&q, tt.value))
		})
	}
}

func TestIsCorrect_Numeric(t *testing.T) {
	tests := []struct {
		name    string
		correct string
		value   string
		want    bool
	}{
		{name: "exact string match", correct: "6", value: "6", want: true},
		{name: "decimal equivalence", correct: "6.0", value: "6", want: true},
		{name: "reverse decimal equivalence", correct: "6", value: "6.00", want: true},
		{name: "trimmed input", correct: "42", value: " 42 ", want: true},
		{name: "wrong number", correct: "6", value: "7", want: false},
		{name: "unparseable input", correct: "6.0", value: "6a", want: false},
		{name: "empty input", correct: "6", value: "", want: false},
		{name: "fraction not evaluated", correct: "0.5", value: "1/2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := models.Question{ID: "q", AnswerType: models.AnswerNumeric, Correct: strPtr(tt.correct)}
			assert.Equal(t, tt.want, IsCorrect(&q, tt.value))
		})
	}
}

func TestIsCorrect_Text(t *testing.T) {
	q := models.Question{ID: "q", AnswerType: models.AnswerText, Correct: strPtr("Photosynthesis")}

	assert.True(t, IsCorrect(&q, "photosynthesis"))
	assert.True(t, IsCorrect(&q, "  PHOTOSYNTHESIS  "))
	assert.False(t, IsCorrect(&q, "photo synthesis"))
	assert.False(t, IsCorrect(&q, ""))
}

// IsCorrect must be total: no combination of answer type and value panics.
func TestIsCorrect_Total(t *testing.T) {
	types := []models.AnswerType{models.AnswerChoice, models.AnswerNumeric, models.AnswerText, models.AnswerType("bogus")}
	corrects := []*string{nil, strPtr(""), strPtr("A"), strPtr("6.0")}
	values := []string{"", "A", "6", "6a", "   ", "NaN", "Inf"}

	for _, at := range types {
		for _, correct := range corrects {
			for _, v := range values {
				q := models.Question{ID: "q", AnswerType: at, Correct: correct}
				assert.NotPanics(t, func() { IsCorrect(&q, v) })
			}
		}
	}
	assert.False(t, IsCorrect(nil, "A"))
}

func TestIsCorrect_NaNAndInfNeverCorrect(t *testing.T) {
	q := models.Question{ID: "q", AnswerType: models.AnswerNumeric, Correct: strPtr("NaN")}
	assert.False(t, IsCorrect(&q, "nan"))

	q.Correct = strPtr("Inf")
	assert.False(t, IsCorrect(&q, "inf"))
}

func testModules() []models.Module {
	easy := models.DifficultyEasy
	hard := models.DifficultyHard
	return []models.Module{
		{
			Key: "math-1",
			Questions: []models.Question{
				{ID: "m1q1", AnswerType: models.AnswerChoice, Correct: strPtr("A"), Skill: strPtr("algebra"), Difficulty: &easy},
				{ID: "m1q2", AnswerType: models.AnswerNumeric, Correct: strPtr("6.0"), Skill: strPtr("algebra"), Difficulty: &hard},
			},
		},
		{
			Key: "math-2",
			Questions: []models.Question{
				{ID: "m2q1", AnswerType: models.AnswerChoice, Correct: strPtr("C"), Skill: strPtr("geometry"), Difficulty: &easy},
			},
		},
		{
			Key: "reading-1",
			Questions: []models.Question{
				{ID: "r1q1", AnswerType: models.AnswerText, Correct: strPtr("irony")},
			},
		},
	}
}

func TestScoreSummary_BucketsPerSection(t *testing.T) {
	modules := testModules()
	answers := AnswerSnapshot{
		"math-1":    {"m1q1": "A", "m1q2": "6"},
		"math-2":    {"m2q1": "B"},
		"reading-1": {"r1q1": "Irony"},
	}

	summary := ScoreSummary(modules, answers)

	assert.Equal(t, models.SectionSummary{Correct: 2, Total: 3}, summary["math"])
	assert.Equal(t, models.SectionSummary{Correct: 1, Total: 1}, summary["reading"])
	assert.Len(t, summary, 2)
}

func TestScoreSummary_UnansweredCountTowardTotal(t *testing.T) {
	modules := testModules()
	summary := ScoreSummary(modules, AnswerSnapshot{})

	assert.Equal(t, models.SectionSummary{Correct: 0, Total: 3}, summary["math"])
	assert.Equal(t, models.SectionSummary{Correct: 0, Total: 1}, summary["reading"])
}

func TestAggregatePercentsBy_OmitsEmptyBuckets(t *testing.T) {
	modules := testModules()
	answers := AnswerSnapshot{
		"math-1": {"m1q1": "A"},
	}

	skills := SkillPercents(modules, answers)

	// The reading question has no skill tag: no bucket, not a 0% bucket.
	assert.Equal(t, 50, skills["algebra"])
	assert.Equal(t, 0, skills["geometry"])
	assert.NotContains(t, skills, "")
	assert.Len(t, skills, 2)
}

func TestDifficultyPercents_Rounding(t *testing.T) {
	modules := testModules()
	answers := AnswerSnapshot{
		"math-1": {"m1q1": "A"},
		"math-2": {"m2q1": "B"},
	}

	diffs := DifficultyPercents(modules, answers)

	// Easy: 1 of 2 correct -> 50. Hard: 0 of 1 -> 0 (observed, so reported).
	assert.Equal(t, 50, diffs[string(models.DifficultyEasy)])
	assert.Equal(t, 0, diffs[string(models.DifficultyHard)])
}

func TestSectionOf(t *testing.T) {
	assert.Equal(t, "math", models.SectionOf("math-1"))
	assert.Equal(t, "reading-writing", models.SectionOf("reading-writing-2"))
	assert.Equal(t, "practice", models.SectionOf("practice"))
}

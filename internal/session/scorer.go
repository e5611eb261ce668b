package session

import (
	"math"
	"strconv"
	"strings"

	"github.com/lumiprep/session-service/internal/models"
)

// AnswerSnapshot is a frozen moduleKey -> questionID -> value view of an
// AnswerStore. Absent entries are unanswered.
type AnswerSnapshot map[string]map[string]string

// IsCorrect grades one submitted value against a question. It is total: any
// combination of answer type and value, including empty and unparseable
// input, evaluates to a boolean without panicking. A question without a
// correct answer (ungraded practice content) is never correct.
func IsCorrect(q *models.Question, value string) bool {
	if q == nil || q.Correct == nil {
		return false
	}
	switch q.AnswerType {
	case models.AnswerChoice:
		v := strings.ToUpper(strings.TrimSpace(value))
		if v == "" {
			return false
		}
		return v == strings.ToUpper(strings.TrimSpace(*q.Correct))
	case models.AnswerNumeric:
		return numericEqual(strings.TrimSpace(value), strings.TrimSpace(*q.Correct))
	case models.AnswerText:
		return strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(*q.Correct))
	default:
		return false
	}
}

// numericEqual accepts an exact string match, or numeric equality when both
// sides parse as finite numbers ("6" matches "6.0"). Anything unparseable on
// either side falls back to the string comparison result.
func numericEqual(got, want string) bool {
	if got == "" {
		return false
	}
	if got == want {
		return true
	}
	g, errG := strconv.ParseFloat(got, 64)
	w, errW := strconv.ParseFloat(want, 64)
	if errG != nil || errW != nil {
		return false
	}
	if math.IsInf(g, 0) || math.IsNaN(g) || math.IsInf(w, 0) || math.IsNaN(w) {
		return false
	}
	return g == w
}

// ScoreSummary buckets correct/total per top-level section. Every question
// of every module counts toward its section's total, answered or not. The
// walk always starts from the full snapshot so the summary is consistent
// even if an earlier edit never reached an incremental counter.
func ScoreSummary(modules []models.Module, answers AnswerSnapshot) map[string]models.SectionSummary {
	summary := make(map[string]models.SectionSummary)
	for mi := range modules {
		m := &modules[mi]
		section := m.Section()
		s := summary[section]
		for qi := range m.Questions {
			q := &m.Questions[qi]
			s.Total++
			if IsCorrect(q, answers[m.Key][q.ID]) {
				s.Correct++
			}
		}
		summary[section] = s
	}
	return summary
}

// AggregatePercentsBy generalizes the section summary to an arbitrary
// secondary dimension. keyFn returns the bucket for a question, or ok=false
// to leave it out. Buckets with zero observations are omitted rather than
// reported as 0%.
func AggregatePercentsBy(modules []models.Module, answers AnswerSnapshot, keyFn func(*models.Question) (string, bool)) map[string]int {
	type tally struct{ correct, total int }
	tallies := make(map[string]*tally)
	for mi := range modules {
		m := &modules[mi]
		for qi := range m.Questions {
			q := &m.Questions[qi]
			key, ok := keyFn(q)
			if !ok {
				continue
			}
			t := tallies[key]
			if t == nil {
				t = &tally{}
				tallies[key] = t
			}
			t.total++
			if IsCorrect(q, answers[m.Key][q.ID]) {
				t.correct++
			}
		}
	}
	percents := make(map[string]int, len(tallies))
	for key, t := range tallies {
		if t.total == 0 {
			continue
		}
		percents[key] = int(math.Round(100 * float64(t.correct) / float64(t.total)))
	}
	return percents
}

// SkillPercents aggregates by the question skill tag.
func SkillPercents(modules []models.Module, answers AnswerSnapshot) map[string]int {
	return AggregatePercentsBy(modules, answers, func(q *models.Question) (string, bool) {
		if q.Skill == nil || *q.Skill == "" {
			return "", false
		}
		return *q.Skill, true
	})
}

// DifficultyPercents aggregates by the question difficulty tag.
func DifficultyPercents(modules []models.Module, answers AnswerSnapshot) map[string]int {
	return AggregatePercentsBy(modules, answers, func(q *models.Question) (string, bool) {
		if q.Difficulty == nil || *q.Difficulty == "" {
			return "", false
		}
		return string(*q.Difficulty), true
	})
}

package session

import "github.com/lumiprep/session-service/internal/models"

// QuestionStatus is the derived navigator state of one question slot.
type QuestionStatus string

const (
	StatusCurrent   QuestionStatus = "current"
	StatusFlagged   QuestionStatus = "flagged"
	StatusAnswered  QuestionStatus = "answered"
	StatusUnvisited QuestionStatus = "unvisited"
)

// NavigatorStates derives one status per question of a module, in question
// order, with fixed precedence current > flagged > answered > unvisited.
// It is a pure view over snapshot reads; the navigator owns no state.
func NavigatorStates(module *models.Module, answers *AnswerStore, flags *FlagSet, currentPage int) []QuestionStatus {
	if module == nil {
		return nil
	}
	states := make([]QuestionStatus, len(module.Questions))
	for i := range module.Questions {
		q := &module.Questions[i]
		switch {
		case i+1 == currentPage:
			states[i] = StatusCurrent
		case flags.Flagged(module.Key, q.ID):
			states[i] = StatusFlagged
		case answers.Answered(module.Key, q.ID):
			states[i] = StatusAnswered
		default:
			states[i] = StatusUnvisited
		}
	}
	return states
}

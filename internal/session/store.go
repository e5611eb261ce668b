package session

// AnswerStore holds the moduleKey -> questionID -> value mapping for one
// attempt. It is a dumb container: the active-module and lifecycle gating
// lives in the Controller, which is the store's single owner.
type AnswerStore struct {
	answers map[string]map[string]string
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[string]map[string]string)}
}

// Set records a value. An empty value deletes the entry instead of storing a
// sentinel, keeping "unanswered" representable as plain absence.
func (s *AnswerStore) Set(moduleKey, questionID, value string) {
	if value == "" {
		s.Delete(moduleKey, questionID)
		return
	}
	mod := s.answers[moduleKey]
	if mod == nil {
		mod = make(map[string]string)
		s.answers[moduleKey] = mod
	}
	mod[questionID] = value
}

func (s *AnswerStore) Delete(moduleKey, questionID string) {
	if mod := s.answers[moduleKey]; mod != nil {
		delete(mod, questionID)
		if len(mod) == 0 {
			delete(s.answers, moduleKey)
		}
	}
}

func (s *AnswerStore) Get(moduleKey, questionID string) (string, bool) {
	v, ok := s.answers[moduleKey][questionID]
	return v, ok
}

func (s *AnswerStore) Answered(moduleKey, questionID string) bool {
	_, ok := s.answers[moduleKey][questionID]
	return ok
}

// Snapshot deep-copies the store. Scoring and persistence always work from
// snapshots so they can never observe a later mutation.
func (s *AnswerStore) Snapshot() AnswerSnapshot {
	snap := make(AnswerSnapshot, len(s.answers))
	for mk, mod := range s.answers {
		cp := make(map[string]string, len(mod))
		for qid, v := range mod {
			cp[qid] = v
		}
		snap[mk] = cp
	}
	return snap
}

// Restore replaces the store contents with a previously saved snapshot.
func (s *AnswerStore) Restore(snap AnswerSnapshot) {
	s.answers = make(map[string]map[string]string, len(snap))
	for mk, mod := range snap {
		cp := make(map[string]string, len(mod))
		for qid, v := range mod {
			if v == "" {
				continue
			}
			cp[qid] = v
		}
		if len(cp) > 0 {
			s.answers[mk] = cp
		}
	}
}

// FlagSet tracks "review later" marks, parallel to but independent of the
// AnswerStore. Flags carry no correctness meaning; only the Navigator reads
// them.
type FlagSet struct {
	flags map[string]map[string]bool
}

func NewFlagSet() *FlagSet {
	return &FlagSet{flags: make(map[string]map[string]bool)}
}

func (f *FlagSet) Toggle(moduleKey, questionID string) bool {
	mod := f.flags[moduleKey]
	if mod == nil {
		mod = make(map[string]bool)
		f.flags[moduleKey] = mod
	}
	if mod[questionID] {
		delete(mod, questionID)
		if len(mod) == 0 {
			delete(f.flags, moduleKey)
		}
		return false
	}
	mod[questionID] = true
	return true
}

func (f *FlagSet) Flagged(moduleKey, questionID string) bool {
	return f.flags[moduleKey][questionID]
}

func (f *FlagSet) Snapshot() map[string]map[string]bool {
	snap := make(map[string]map[string]bool, len(f.flags))
	for mk, mod := range f.flags {
		cp := make(map[string]bool, len(mod))
		for qid, v := range mod {
			cp[qid] = v
		}
		snap[mk] = cp
	}
	return snap
}

func (f *FlagSet) Restore(snap map[string]map[string]bool) {
	f.flags = make(map[string]map[string]bool, len(snap))
	for mk, mod := range snap {
		cp := make(map[string]bool, len(mod))
		for qid, v := range mod {
			if v {
				cp[qid] = true
			}
		}
		if len(cp) > 0 {
			f.flags[mk] = cp
		}
	}
}

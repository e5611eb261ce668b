package session

// TimeLedger accumulates whole seconds spent per question. Entries are
// monotonically non-decreasing: deltas are clamped at zero before they are
// applied, so clock skew can never shrink a tally.
type TimeLedger struct {
	seconds map[string]int
}

func NewTimeLedger() *TimeLedger {
	return &TimeLedger{seconds: make(map[string]int)}
}

func (l *TimeLedger) Add(questionID string, deltaSec int) {
	if questionID == "" || deltaSec <= 0 {
		return
	}
	l.seconds[questionID] += deltaSec
}

func (l *TimeLedger) Seconds(questionID string) int {
	return l.seconds[questionID]
}

func (l *TimeLedger) TotalSeconds() int {
	total := 0
	for _, s := range l.seconds {
		total += s
	}
	return total
}

func (l *TimeLedger) Snapshot() map[string]int {
	snap := make(map[string]int, len(l.seconds))
	for qid, s := range l.seconds {
		snap[qid] = s
	}
	return snap
}

func (l *TimeLedger) Restore(snap map[string]int) {
	l.seconds = make(map[string]int, len(snap))
	for qid, s := range snap {
		if s > 0 {
			l.seconds[qid] = s
		}
	}
}

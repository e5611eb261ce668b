package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrProgressNotFound is returned by a ProgressStore when no snapshot exists
// under a key. It is the one load failure that is not an error condition.
var ErrProgressNotFound = errors.New("progress not found")

// ProgressStore is the durable key-value port the ResumeAdapter writes
// through. The engine only ever sees opaque bytes; Redis, Postgres, or an
// in-memory map all satisfy it.
type ProgressStore interface {
	SaveProgress(ctx context.Context, key string, snapshot []byte) error
	LoadProgress(ctx context.Context, key string) ([]byte, error)
	DeleteProgress(ctx context.Context, key string) error
}

// ResumeKey derives the storage key for one user's progress on one
// assignment. It is deterministic and built only from stable identifiers;
// anything ephemeral (timestamps, random attempt ids) in the key would make
// a later session unable to find its own state.
func ResumeKey(assignmentID, userID string) string {
	return fmt.Sprintf("session:progress:%s:%s", assignmentID, userID)
}

// ProgressSnapshot is the serialized resumable state: answers, flags, the
// position within the attempt, and the per-question time ledger.
type ProgressSnapshot struct {
	Answers     AnswerSnapshot             `json:"answers"`
	Flags       map[string]map[string]bool `json:"flags"`
	ModuleIndex int                        `json:"module"`
	Page        int                        `json:"page"`
	Times       map[string]int             `json:"times"`
}

// ResumeAdapter mirrors session state to a ProgressStore. Saves are
// best-effort: a failed write is logged and swallowed, because resumability
// is a convenience, not a correctness guarantee. Loads distinguish "nothing
// saved" and "malformed" from real store failures, and both of the former
// simply mean a fresh start.
type ResumeAdapter struct {
	store   ProgressStore
	key     string
	enabled bool
	logger  *slog.Logger
}

func NewResumeAdapter(store ProgressStore, key string, enabled bool, logger *slog.Logger) *ResumeAdapter {
	return &ResumeAdapter{
		store:   store,
		key:     key,
		enabled: enabled && store != nil,
		logger:  logger,
	}
}

func (r *ResumeAdapter) Enabled() bool {
	return r.enabled
}

// Save persists the snapshot under the resume key. Last write wins; there is
// a single writer, so a newer snapshot can never be overtaken by a stale one
// from this adapter.
func (r *ResumeAdapter) Save(ctx context.Context, snap ProgressSnapshot) {
	if !r.enabled {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Failed to encode progress snapshot", "key", r.key, "error", err)
		return
	}
	if err := r.store.SaveProgress(ctx, r.key, data); err != nil {
		r.logger.Warn("Progress save failed, continuing without", "key", r.key, "error", err)
	}
}

// Load fetches and decodes the stored snapshot. A missing or malformed
// record yields (nil, false) and the session starts blank; only the decoded
// snapshot itself reports true.
func (r *ResumeAdapter) Load(ctx context.Context) (*ProgressSnapshot, bool) {
	if !r.enabled {
		return nil, false
	}
	data, err := r.store.LoadProgress(ctx, r.key)
	if err != nil {
		if !errors.Is(err, ErrProgressNotFound) {
			r.logger.Warn("Progress load failed, starting fresh", "key", r.key, "error", err)
		}
		return nil, false
	}
	var snap ProgressSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Warn("Discarding malformed progress snapshot", "key", r.key, "error", err)
		return nil, false
	}
	return &snap, true
}

// Clear deletes the resume record. Called once the attempt is submitted so a
// finished assignment never resumes into stale state.
func (r *ResumeAdapter) Clear(ctx context.Context) {
	if !r.enabled {
		return
	}
	if err := r.store.DeleteProgress(ctx, r.key); err != nil {
		r.logger.Warn("Failed to delete progress snapshot", "key", r.key, "error", err)
	}
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/restock/internal/domain"
	"github.com/MrSnakeDoc/restock/internal/logger"
)

// record is the stored JSON shape. Timestamps are Unix milliseconds, 0 = never.
type record struct {
	Status       string `json:"status"`
	LastChecked  int64  `json:"lastChecked"`
	LastNotified int64  `json:"lastNotified"`
}

// WriteError means a target's new state could not be persisted.
type WriteError struct {
	TargetID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to save state for %s: %v", e.TargetID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// StateStore persists one state record per target.
type StateStore struct {
	client *redis.Client
	logger logger.Logger
}

// NewStateStore creates a new Redis-backed state store
func NewStateStore(client *redis.Client, log logger.Logger) *StateStore {
	return &StateStore{
		client: client,
		logger: log,
	}
}

// Load returns the stored state for a target.
// A missing or unreadable record yields domain.InitialState() without error;
// only a failing Redis call is reported.
func (s *StateStore) Load(ctx context.Context, targetID string) (domain.State, error) {
	key := StockKey(targetID)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.InitialState(), nil
		}
		return domain.State{}, fmt.Errorf("failed to get state: %w", err)
	}

	state, err := DecodeState(data)
	if err != nil {
		s.logger.Warn("unreadable state record, starting from unknown",
			logger.String("key", key),
			logger.Error(err))
	}
	return state, nil
}

// Save overwrites the stored state for a target. Records never expire.
func (s *StateStore) Save(ctx context.Context, targetID string, state domain.State) error {
	data, err := EncodeState(state)
	if err != nil {
		return &WriteError{TargetID: targetID, Err: err}
	}

	if err := s.client.Set(ctx, StockKey(targetID), data, 0).Err(); err != nil {
		return &WriteError{TargetID: targetID, Err: err}
	}
	return nil
}

// EncodeState serializes a state into its stored form
func EncodeState(state domain.State) ([]byte, error) {
	status := state.Status
	if status == "" {
		status = domain.StatusUnknown
	}
	data, err := json.Marshal(record{
		Status:       string(status),
		LastChecked:  toMillis(state.LastCheckedAt),
		LastNotified: toMillis(state.LastNotifiedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

// DecodeState parses a stored record. On failure it returns
// domain.InitialState() together with the parse error, so callers can
// log and carry on.
func DecodeState(data []byte) (domain.State, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.InitialState(), fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return domain.State{
		Status:         domain.ParseStatus(rec.Status),
		LastCheckedAt:  fromMillis(rec.LastChecked),
		LastNotifiedAt: fromMillis(rec.LastNotified),
	}, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

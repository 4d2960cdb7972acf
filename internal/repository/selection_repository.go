package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/student-portal-api/internal/models"
)

const selectionKeyPrefix = "selection"

func selectionKey(studentID, term string) string {
	return fmt.Sprintf("%s:%s:%s", selectionKeyPrefix, studentID, term)
}

// RedisSelectionRepository keeps selection sessions in Redis as JSON with a TTL.
type RedisSelectionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSelectionRepository constructs the Redis-backed session store.
func NewRedisSelectionRepository(client *redis.Client, ttl time.Duration) *RedisSelectionRepository {
	return &RedisSelectionRepository{client: client, ttl: ttl}
}

// Get returns the stored session, or nil when none exists.
func (r *RedisSelectionRepository) Get(ctx context.Context, studentID, term string) (*models.SelectionSession, error) {
	key := selectionKey(studentID, term)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, translateError(err, "redis get "+key)
	}
	var session models.SelectionSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal selection %s: %w", key, err)
	}
	return &session, nil
}

// Save stores the session and refreshes its TTL.
func (r *RedisSelectionRepository) Save(ctx context.Context, session *models.SelectionSession) error {
	key := selectionKey(session.StudentID, session.Term)
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal selection %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return translateError(err, "redis set "+key)
	}
	return nil
}

// Delete removes the session.
func (r *RedisSelectionRepository) Delete(ctx context.Context, studentID, term string) error {
	key := selectionKey(studentID, term)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return translateError(err, "redis delete "+key)
	}
	return nil
}

type memorySelection struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySelectionRepository is the single-process session store. Sessions are
// stored serialized so callers never share a mutable session value.
type MemorySelectionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySelection
	now      func() time.Time
}

// NewMemorySelectionRepository constructs the in-process session store.
func NewMemorySelectionRepository(ttl time.Duration) *MemorySelectionRepository {
	return &MemorySelectionRepository{ttl: ttl, sessions: make(map[string]memorySelection), now: time.Now}
}

// Get returns the stored session, or nil when none exists or it expired.
func (r *MemorySelectionRepository) Get(ctx context.Context, studentID, term string) (*models.SelectionSession, error) {
	key := selectionKey(studentID, term)
	r.mu.Lock()
	entry, ok := r.sessions[key]
	if ok && r.expired(entry) {
		delete(r.sessions, key)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var session models.SelectionSession
	if err := json.Unmarshal(entry.payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal selection %s: %w", key, err)
	}
	return &session, nil
}

// Save stores the session and refreshes its TTL.
func (r *MemorySelectionRepository) Save(ctx context.Context, session *models.SelectionSession) error {
	key := selectionKey(session.StudentID, session.Term)
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal selection %s: %w", key, err)
	}
	entry := memorySelection{payload: payload}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = entry
	r.sweepLocked()
	return nil
}

// Delete removes the session.
func (r *MemorySelectionRepository) Delete(ctx context.Context, studentID, term string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, selectionKey(studentID, term))
	return nil
}

func (r *MemorySelectionRepository) expired(entry memorySelection) bool {
	return !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt)
}

func (r *MemorySelectionRepository) sweepLocked() {
	for key, entry := range r.sessions {
		if r.expired(entry) {
			delete(r.sessions, key)
		}
	}
}

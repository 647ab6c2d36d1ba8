package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"medtriage/internal/triage"
)

const defaultRedisPrefix = "medtriage:"

// RedisStore keeps each record under its own key and a per-user list of
// record ids in insertion order.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + "history:record:" + id
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + "history:user:" + userID
}

func (s *RedisStore) feedbackKey() string {
	return s.prefix + "feedback"
}

func (s *RedisStore) Append(ctx context.Context, rec triage.HistoryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(rec.ID), data, 0)
		pipe.RPush(ctx, s.userKey(rec.UserID), rec.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]triage.HistoryRecord, error) {
	ids, err := s.client.LRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}
	records := make([]triage.HistoryRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec triage.HistoryRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (triage.HistoryRecord, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return triage.HistoryRecord{}, triage.ErrRecordNotFound
	}
	if err != nil {
		return triage.HistoryRecord{}, fmt.Errorf("get record: %w", err)
	}

	var rec triage.HistoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return triage.HistoryRecord{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	ids, err := s.client.LRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list record ids: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.recordKey(id))
	}
	keys = append(keys, s.userKey(userID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveFeedback(ctx context.Context, f triage.Feedback) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	if err := s.client.RPush(ctx, s.feedbackKey(), data).Err(); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quantumflow/agentflow/internal/models"
)

const transcriptPrefix = "agentflow:transcript:"

// RedisTranscriptStore mirrors session transcripts into Redis lists
type RedisTranscriptStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTranscriptStore connects to Redis and verifies the connection
func NewRedisTranscriptStore(config *Config) (*RedisTranscriptStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTranscriptStore{
		client: client,
		ttl:    config.TranscriptTTL,
	}, nil
}

func transcriptKey(sessionID string) string {
	return transcriptPrefix + sessionID
}

// Append adds messages to the end of a session transcript
func (s *RedisTranscriptStore) Append(ctx context.Context, sessionID string, messages ...models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := transcriptKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}

// Load returns the mirrored transcript of a session
func (s *RedisTranscriptStore) Load(ctx context.Context, sessionID string) ([]models.Message, error) {
	raw, err := s.client.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	messages := make([]models.Message, 0, len(raw))
	for _, item := range raw {
		var m models.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue // Skip malformed entries
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Delete removes a session transcript
func (s *RedisTranscriptStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, transcriptKey(sessionID)).Err()
}

// Close closes the Redis connection
func (s *RedisTranscriptStore) Close() error {
	return s.client.Close()
}

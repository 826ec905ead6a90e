package memory

import (
	"context"
	"time"

	"github.com/quantumflow/agentflow/internal/models"
)

// Service fans turn and outcome records out to the configured sinks.
// Sink failures never fail the caller's turn.
type Service interface {
	// RecordTurn mirrors a processed turn
	RecordTurn(ctx context.Context, record *models.TurnRecord) error

	// RecordOutcome stores the action sequence of a finished session
	RecordOutcome(ctx context.Context, outcome *models.SessionOutcome) error

	// TopPatterns returns the most frequent action sequences for a strategy
	TopPatterns(ctx context.Context, strategy string, limit int) ([]*ActionPattern, error)

	// Close gracefully shuts down every sink
	Close() error
}

// TranscriptStore mirrors session transcripts (Redis)
type TranscriptStore interface {
	// Append adds messages to the end of a session transcript
	Append(ctx context.Context, sessionID string, messages ...models.Message) error

	// Load returns the mirrored transcript of a session
	Load(ctx context.Context, sessionID string) ([]models.Message, error)

	// Close closes the store connection
	Close() error
}

// PatternStore aggregates action sequences per strategy (BadgerDB)
type PatternStore interface {
	// RecordSequence counts one occurrence of an action sequence
	RecordSequence(ctx context.Context, strategy string, actions []models.FlowAction, success bool) error

	// GetPattern retrieves a pattern by strategy and sequence
	GetPattern(ctx context.Context, strategy string, actions []models.FlowAction) (*ActionPattern, error)

	// TopPatterns returns the most frequent patterns of a strategy
	TopPatterns(ctx context.Context, strategy string, limit int) ([]*ActionPattern, error)

	// Close closes the store
	Close() error
}

// ProfileStore keeps learned user profiles in a graph (Dgraph)
type ProfileStore interface {
	// UpsertProfile records the latest profile of a user for a strategy
	UpsertProfile(ctx context.Context, userID, strategy string, profile models.UserProfile) error

	// GetProfile returns the stored profile of a user
	GetProfile(ctx context.Context, userID string) (*StoredProfile, error)

	// Close closes the store connection
	Close() error
}

// ActionPattern is an aggregated action sequence and how often it succeeded
type ActionPattern struct {
	Strategy    string              `json:"strategy"`
	Actions     []models.FlowAction `json:"actions"`
	Frequency   int                 `json:"frequency"`
	Successes   int                 `json:"successes"`
	SuccessRate float64             `json:"success_rate"`
	LastUsed    time.Time           `json:"last_used"`
}

// StoredProfile is a user profile as read back from the graph
type StoredProfile struct {
	UserID     string             `json:"user_id"`
	Profile    models.UserProfile `json:"profile"`
	Strategies []string           `json:"strategies"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Config holds memory sink configuration. Empty addresses disable a sink.
type Config struct {
	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TranscriptTTL time.Duration

	// Dgraph configuration
	DgraphAddr string

	// BadgerDB configuration
	BadgerPath     string
	BadgerInMemory bool
}

// DefaultConfig returns a configuration with every sink disabled
func DefaultConfig() *Config {
	return &Config{
		TranscriptTTL: 7 * 24 * time.Hour,
	}
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantumflow/agentflow/internal/models"
)

// MemoryService fans records out to whichever sinks are configured
type MemoryService struct {
	transcripts TranscriptStore
	patterns    PatternStore
	profiles    ProfileStore
	logger      *slog.Logger
}

// NewMemoryService opens every sink the config enables. A sink that cannot
// be reached is logged and skipped.
func NewMemoryService(config *Config, logger *slog.Logger) *MemoryService {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	service := &MemoryService{logger: logger}

	if config.RedisAddr != "" {
		store, err := NewRedisTranscriptStore(config)
		if err != nil {
			logger.Warn("transcript mirror disabled", "addr", config.RedisAddr, "error", err)
		} else {
			service.transcripts = store
		}
	}

	if config.BadgerPath != "" || config.BadgerInMemory {
		store, err := NewBadgerPatternStore(config)
		if err != nil {
			logger.Warn("pattern store disabled", "path", config.BadgerPath, "error", err)
		} else {
			service.patterns = store
		}
	}

	if config.DgraphAddr != "" {
		store, err := NewDgraphProfileStore(config)
		if err != nil {
			logger.Warn("profile graph disabled", "addr", config.DgraphAddr, "error", err)
		} else {
			service.profiles = store
		}
	}

	return service
}

// NewMemoryServiceWithStores wires explicit stores; nil stores are skipped
func NewMemoryServiceWithStores(transcripts TranscriptStore, patterns PatternStore, profiles ProfileStore, logger *slog.Logger) *MemoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryService{
		transcripts: transcripts,
		patterns:    patterns,
		profiles:    profiles,
		logger:      logger,
	}
}

// Enabled reports which sinks are active
func (m *MemoryService) Enabled() map[string]bool {
	return map[string]bool{
		"transcripts": m.transcripts != nil,
		"patterns":    m.patterns != nil,
		"profiles":    m.profiles != nil,
	}
}

// RecordTurn mirrors the turn's messages and the learned profile
func (m *MemoryService) RecordTurn(ctx context.Context, record *models.TurnRecord) error {
	var errs []error

	if m.transcripts != nil && record.Succeeded() {
		var msgs []models.Message
		if !record.Synthetic {
			msgs = append(msgs, models.Message{Role: models.RoleUser, Content: record.Prompt, Timestamp: record.Timestamp})
		}
		msgs = append(msgs, models.Message{Role: models.RoleAssistant, Content: record.Response.Message, Timestamp: record.Timestamp})

		if err := m.transcripts.Append(ctx, record.SessionID, msgs...); err != nil {
			errs = append(errs, err)
		}
	}

	if m.profiles != nil && record.Succeeded() && record.UserID != "" {
		if err := m.profiles.UpsertProfile(ctx, record.UserID, record.StrategyName, record.Profile); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		m.logger.Warn("memory sink write failed", "session_id", record.SessionID, "error", err)
		return err
	}
	return nil
}

// RecordOutcome stores the action sequence of a finished session
func (m *MemoryService) RecordOutcome(ctx context.Context, outcome *models.SessionOutcome) error {
	if m.patterns == nil {
		return nil
	}

	success := outcome.Status == models.StatusCompleted
	if err := m.patterns.RecordSequence(ctx, outcome.StrategyName, outcome.Actions, success); err != nil {
		m.logger.Warn("pattern store write failed", "session_id", outcome.SessionID, "error", err)
		return err
	}
	return nil
}

// TopPatterns returns the most frequent action sequences of a strategy
func (m *MemoryService) TopPatterns(ctx context.Context, strategy string, limit int) ([]*ActionPattern, error) {
	if m.patterns == nil {
		return nil, nil
	}
	return m.patterns.TopPatterns(ctx, strategy, limit)
}

// Transcript returns the mirrored transcript of a session
func (m *MemoryService) Transcript(ctx context.Context, sessionID string) ([]models.Message, error) {
	if m.transcripts == nil {
		return nil, fmt.Errorf("transcript mirror not configured")
	}
	return m.transcripts.Load(ctx, sessionID)
}

// Close gracefully shuts down every sink
func (m *MemoryService) Close() error {
	var errs []error

	if m.transcripts != nil {
		if err := m.transcripts.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.patterns != nil {
		if err := m.patterns.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.profiles != nil {
		if err := m.profiles.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing memory service: %w", errors.Join(errs...))
	}

	return nil
}

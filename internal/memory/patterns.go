package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/quantumflow/agentflow/internal/models"
)

// ErrPatternNotFound indicates no pattern exists for the sequence
var ErrPatternNotFound = errors.New("pattern not found")

// BadgerPatternStore aggregates per-strategy action sequences in BadgerDB
type BadgerPatternStore struct {
	db *badger.DB
}

// NewBadgerPatternStore opens the store on disk, or in memory when configured
func NewBadgerPatternStore(config *Config) (*BadgerPatternStore, error) {
	var opts badger.Options
	if config.BadgerInMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(expandPath(config.BadgerPath))
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &BadgerPatternStore{db: db}, nil
}

func patternPrefix(strategy string) string {
	return fmt.Sprintf("pattern:%s:", strategy)
}

func patternKey(strategy string, actions []models.FlowAction) []byte {
	return []byte(patternPrefix(strategy) + signature(actions))
}

// signature joins an action sequence into a stable key fragment
func signature(actions []models.FlowAction) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, ">")
}

// RecordSequence counts one occurrence of an action sequence
func (s *BadgerPatternStore) RecordSequence(ctx context.Context, strategy string, actions []models.FlowAction, success bool) error {
	if len(actions) == 0 {
		return nil
	}

	key := patternKey(strategy, actions)
	return s.db.Update(func(txn *badger.Txn) error {
		pattern := ActionPattern{
			Strategy: strategy,
			Actions:  append([]models.FlowAction(nil), actions...),
		}

		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &pattern)
			}); err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}

		pattern.Frequency++
		if success {
			pattern.Successes++
		}
		pattern.SuccessRate = float64(pattern.Successes) / float64(pattern.Frequency)
		pattern.LastUsed = time.Now().UTC()

		data, err := json.Marshal(pattern)
		if err != nil {
			return fmt.Errorf("failed to marshal pattern: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetPattern retrieves a pattern by strategy and sequence
func (s *BadgerPatternStore) GetPattern(ctx context.Context, strategy string, actions []models.FlowAction) (*ActionPattern, error) {
	var pattern ActionPattern

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(patternKey(strategy, actions))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pattern)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrPatternNotFound, strategy, signature(actions))
	}
	if err != nil {
		return nil, err
	}

	return &pattern, nil
}

// TopPatterns returns the most frequent patterns of a strategy
func (s *BadgerPatternStore) TopPatterns(ctx context.Context, strategy string, limit int) ([]*ActionPattern, error) {
	var patterns []*ActionPattern

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(patternPrefix(strategy))

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var pattern ActionPattern
				if err := json.Unmarshal(val, &pattern); err != nil {
					return nil // Skip malformed entries
				}
				patterns = append(patterns, &pattern)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return patterns[i].SuccessRate > patterns[j].SuccessRate
	})

	if limit > 0 && len(patterns) > limit {
		patterns = patterns[:limit]
	}

	return patterns, nil
}

// Close closes the BadgerDB instance
func (s *BadgerPatternStore) Close() error {
	return s.db.Close()
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

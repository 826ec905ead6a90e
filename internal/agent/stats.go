package agent

import (
	"sync"
	"time"

	"github.com/quantumflow/agentflow/internal/models"
)

// statsCounters are the process-wide counters updated on lifecycle events
type statsCounters struct {
	mu            sync.Mutex
	totalSessions int64
	completed     int64
	escalated     int64
	totalMessages int64
	errorCount    int64
	totalDuration time.Duration
}

func (s *statsCounters) sessionStarted() {
	s.mu.Lock()
	s.totalSessions++
	s.mu.Unlock()
}

func (s *statsCounters) sessionCompleted(d time.Duration) {
	s.mu.Lock()
	s.completed++
	s.totalDuration += d
	s.mu.Unlock()
}

func (s *statsCounters) sessionEscalated() {
	s.mu.Lock()
	s.escalated++
	s.mu.Unlock()
}

func (s *statsCounters) messageReceived() {
	s.mu.Lock()
	s.totalMessages++
	s.mu.Unlock()
}

func (s *statsCounters) turnFailed() {
	s.mu.Lock()
	s.errorCount++
	s.mu.Unlock()
}

// GetStats returns the process-wide counters. Active sessions are counted
// from the live store.
func (o *Orchestrator) GetStats() *models.Stats {
	o.stats.mu.Lock()
	stats := &models.Stats{
		TotalSessions:     o.stats.totalSessions,
		CompletedSessions: o.stats.completed,
		EscalatedSessions: o.stats.escalated,
		TotalMessages:     o.stats.totalMessages,
		ErrorCount:        o.stats.errorCount,
	}
	totalDuration := o.stats.totalDuration
	o.stats.mu.Unlock()

	stats.ActiveSessions = int64(o.store.CountByStatus(models.StatusActive))
	stats.AverageSessionLength = float64(stats.TotalMessages) / float64(max(stats.TotalSessions, 1))
	stats.AverageSessionDuration = totalDuration / time.Duration(max(stats.CompletedSessions, 1))
	stats.Uptime = time.Since(o.started)
	return stats
}

// GetStrategyPerformance rolls up every session bound to a strategy
func (o *Orchestrator) GetStrategyPerformance(strategyName string) *models.StrategyPerformance {
	sessions := o.store.ListByStrategy(strategyName)
	perf := &models.StrategyPerformance{
		StrategyName:  strategyName,
		TotalSessions: len(sessions),
	}
	if len(sessions) == 0 {
		return perf
	}

	var completed, escalated, messages int
	var score float64
	for _, c := range sessions {
		messages += c.MessageCount
		switch c.Status {
		case models.StatusCompleted:
			completed++
			score += 1
		case models.StatusEscalated:
			escalated++
			score -= 0.5
		}
		if c.UserInputs.String(models.KeyDecisionQuality) == string(models.QualityHigh) {
			score += 0.5
		}
		if c.UserInputs.String(models.KeyUserSentiment) == models.SentimentPositive {
			score += 0.3
		}
	}

	n := float64(len(sessions))
	perf.CompletionRate = float64(completed) / n
	perf.EscalationRate = float64(escalated) / n
	perf.AverageMessages = float64(messages) / n
	perf.PerformanceScore = clamp01(score / n)
	return perf
}

// GetSessionAnalytics returns a read-only view of one session
func (o *Orchestrator) GetSessionAnalytics(sessionID string) (*models.SessionAnalytics, error) {
	c, err := o.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	return &models.SessionAnalytics{
		SessionID:      c.SessionID,
		StrategyName:   c.StrategyName,
		Status:         c.Status,
		MessageCount:   c.MessageCount,
		Duration:       c.Duration(),
		CurrentGoal:    c.CurrentGoal,
		LastAction:     string(c.Memory.LastAction),
		Stage:          c.UserInputs.String(models.KeySessionStage),
		Sentiment:      c.UserInputs.String(models.KeyUserSentiment),
		Quality:        c.UserInputs.String(models.KeyDecisionQuality),
		DecisionCount:  len(c.Memory.Actions),
		FailedAttempts: len(c.Memory.FailedAttempts),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

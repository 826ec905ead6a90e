package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumflow/agentflow/internal/inference"
	"github.com/quantumflow/agentflow/internal/integration"
	"github.com/quantumflow/agentflow/internal/memory"
	"github.com/quantumflow/agentflow/internal/models"
	"github.com/quantumflow/agentflow/internal/observability"
)

func testStrategy(name string) *models.Strategy {
	return &models.Strategy{
		Name:   name,
		Domain: "retail",
		Goals: models.Goals{
			Primary:   "help customers choose a plan",
			Secondary: []string{"collect feedback"},
		},
		Personality: &models.Personality{Tone: "friendly", Style: "concise", Pace: "relaxed"},
		Guidelines: &models.Guidelines{
			MustDo:    []string{"be polite"},
			MustNotDo: []string{"invent discounts"},
		},
		Knowledge: models.Knowledge{
			KeyFacts:           []string{"The standard plan price is 49 dollars per month"},
			FAQ:                []models.FAQ{{Question: "Can I cancel anytime?", Answer: "Yes, with one click."}},
			EscalationTriggers: []string{"legal threats"},
		},
	}
}

func sampleDecision() *models.Decision {
	return &models.Decision{
		SituationAnalysis: models.SituationAnalysis{
			CurrentGoal:   "qualify",
			GoalProgress:  models.ProgressInProgress,
			Assessment:    "User is curious about pricing",
			RelevantRules: []string{"be polite"},
			Opportunities: []string{"upsell annual plan"},
		},
		FlowDecision: models.FlowDecision{
			Action:     models.ActionGreet,
			Reasoning:  "Opening the conversation warmly",
			Confidence: 0.9,
			Urgency:    models.UrgencyLow,
			BackupPlan: "ask about their needs",
		},
		ActionExecution: models.ActionExecution{
			Message:              "Hello! How can I help you today?",
			Intent:               "build_rapport",
			ExpectedUserResponse: "states need",
			NextGoal:             "discover_needs",
		},
		Meta: models.DecisionMeta{
			SessionStage:  models.StageOpening,
			UserSentiment: models.SentimentPositive,
		},
	}
}

func lowDecision() *models.Decision {
	return &models.Decision{
		FlowDecision: models.FlowDecision{
			Action:     models.ActionEscalate,
			Reasoning:  "angry",
			Confidence: 0.5,
			Urgency:    models.UrgencyHigh,
		},
		ActionExecution: models.ActionExecution{Message: "Let me get a colleague."},
		Meta: models.DecisionMeta{
			SessionStage:     models.StageDiscovery,
			UserSentiment:    models.SentimentNegative,
			EscalationNeeded: true,
			EscalationReason: "legal threat",
		},
	}
}

// alwaysDecide answers every request with the same decision
func alwaysDecide(d *models.Decision) func(context.Context, *inference.ChatRequest) (*inference.ChatResponse, error) {
	reply := DecisionReply(d)
	return func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		return &inference.ChatResponse{Message: reply.Message}, nil
	}
}

func newTestOrchestrator(t *testing.T, oracle Oracle, opts ...Option) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(oracle, nil, nil, opts...)
	require.NoError(t, o.RegisterStrategy(testStrategy("sales")))
	return o
}

func TestStartSessionRunsSyntheticTurn(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()))
	o := newTestOrchestrator(t, oracle)

	sess, err := o.StartSession(context.Background(), "u1", "sales", map[string]interface{}{"plan": "basic"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help you today?", sess.InitialMessage)
	assert.Equal(t, models.StatusActive, sess.Status)
	assert.NotEmpty(t, sess.SessionID)

	requests := oracle.Requests()
	require.Len(t, requests, 1)
	msgs := requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, inference.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "plan: basic")
	assert.Contains(t, msgs[0].Content, "help customers choose a plan")
	assert.Equal(t, SessionStartedPrompt, msgs[1].Content)

	c, err := o.GetSession(sess.SessionID)
	require.NoError(t, err)
	require.Len(t, c.Messages, 1, "marker is not stored")
	assert.Equal(t, models.RoleAssistant, c.Messages[0].Role)
	assert.Equal(t, sess.InitialMessage, c.Messages[0].Content)
	assert.Equal(t, 0, c.MessageCount)
	assert.Equal(t, "discover_needs", c.CurrentGoal)
	assert.Equal(t, "basic", c.UserInputs.String("plan"))
	assert.Equal(t, models.InitialGoal, c.UserInputs.String(models.KeyPreviousGoal))
	assert.Equal(t, SessionStartedPrompt, c.UserInputs.String(models.KeyOriginalPrompt))
	assert.Equal(t, models.ActionGreet, c.Memory.LastAction)
	assert.Equal(t, "build_rapport", c.Profile.Intent)
	assert.Equal(t, models.SentimentPositive, c.Profile.Sentiment)

	stats := o.GetStats()
	assert.Equal(t, int64(1), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.ActiveSessions)
	assert.Equal(t, int64(0), stats.TotalMessages)
}

func TestStartSessionUnknownStrategy(t *testing.T) {
	oracle := NewMockOracle()
	o := newTestOrchestrator(t, oracle)

	_, err := o.StartSession(context.Background(), "u1", "missing", nil, nil)
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
	assert.Zero(t, oracle.Calls())
	assert.Equal(t, int64(0), o.GetStats().TotalSessions)
}

func TestOneActiveSessionPerUser(t *testing.T) {
	oracle := NewMockOracle()
	oracle.Fallback = alwaysDecide(sampleDecision())
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	first, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)
	second, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)

	old, err := o.GetSession(first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, old.Status)
	assert.Equal(t, []string{second.SessionID}, o.store.ActiveForUser("u1"))

	stats := o.GetStats()
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.CompletedSessions)
	assert.Equal(t, int64(1), stats.ActiveSessions)
}

func TestConcurrentStartsKeepOneActiveSession(t *testing.T) {
	oracle := NewMockOracle()
	oracle.Fallback = alwaysDecide(sampleDecision())
	o := newTestOrchestrator(t, oracle)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.StartSession(context.Background(), "u1", "sales", nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, o.store.ActiveForUser("u1"), 1)
	assert.Equal(t, int64(7), o.GetStats().CompletedSessions)
}

func TestSendMessageAppliesTurn(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()))
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)

	next := sampleDecision()
	next.FlowDecision.Action = models.ActionAskQuestion
	next.ActionExecution.Message = "What do you need it for?"
	next.ActionExecution.NextGoal = ""
	next.SituationAnalysis.CurrentGoal = "qualify"
	next.ActionExecution.ContextUpdates = map[string]interface{}{
		models.KeyCurrentGoal:   "hijack",
		models.KeyUserExpertise: "expert",
		"budget":                "high",
	}
	oracle.Script(DecisionReply(next))

	out, err := o.SendMessage(ctx, sess.SessionID, "I want a plan", nil)
	require.NoError(t, err)
	assert.Equal(t, "What do you need it for?", out.Message)
	assert.Equal(t, models.StatusActive, out.SessionStatus)
	assert.Equal(t, []string{"states need"}, out.SuggestedNextActions)
	assert.True(t, strings.HasPrefix(out.Reasoning, "Situation: "))

	msgs := oracle.Requests()[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, inference.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "I want a plan", msgs[2].Content)

	c, err := o.GetSession(sess.SessionID)
	require.NoError(t, err)
	require.Len(t, c.Messages, 3)
	assert.Equal(t, models.RoleUser, c.Messages[1].Role)
	assert.Equal(t, "What do you need it for?", c.Messages[2].Content)
	assert.Equal(t, 1, c.MessageCount)
	assert.Equal(t, "qualify", c.CurrentGoal)
	assert.Equal(t, "qualify", c.UserInputs.String(models.KeyCurrentGoal))
	assert.Equal(t, "discover_needs", c.UserInputs.String(models.KeyPreviousGoal))
	assert.Equal(t, "high", c.UserInputs.String("budget"))
	assert.Equal(t, "expert", c.Profile.Expertise)
	assert.Equal(t, []models.FlowAction{models.ActionGreet, models.ActionAskQuestion}, c.Memory.Actions)
	assert.Len(t, c.Memory.ReasoningHistory, 2)
	assert.Len(t, c.Memory.SuccessfulPatterns, 2)

	assert.Equal(t, int64(1), o.GetStats().TotalMessages)
}

func TestSendMessageCallerErrorsMutateNothing(t *testing.T) {
	oracle := NewMockOracle()
	oracle.Fallback = alwaysDecide(lowDecision())
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	_, err := o.SendMessage(ctx, "nope", "hello", nil)
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusEscalated, sess.Status)

	before := o.GetStats()
	calls := oracle.Calls()

	_, err = o.SendMessage(ctx, sess.SessionID, "hello?", nil)
	assert.True(t, errors.Is(err, ErrSessionNotActive))

	after := o.GetStats()
	assert.Equal(t, before.TotalMessages, after.TotalMessages)
	assert.Equal(t, before.ErrorCount, after.ErrorCount)
	assert.Equal(t, before.EscalatedSessions, after.EscalatedSessions)
	assert.Equal(t, calls, oracle.Calls())

	c, err := o.GetSession(sess.SessionID)
	require.NoError(t, err)
	assert.Len(t, c.Messages, 1)
}

func TestSendMessageAfterUnregister(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()))
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)
	require.True(t, o.UnregisterStrategy("sales"))

	_, err = o.SendMessage(ctx, sess.SessionID, "hello", nil)
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
	assert.Equal(t, int64(0), o.GetStats().TotalMessages)

	c, _ := o.GetSession(sess.SessionID)
	assert.Equal(t, models.StatusActive, c.Status)
	assert.Len(t, c.Messages, 1)
}

func TestEscalationTransitionsSession(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()), DecisionReply(lowDecision()))
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)

	out, err := o.SendMessage(ctx, sess.SessionID, "I will sue you", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEscalated, out.SessionStatus)

	stats := o.GetStats()
	assert.Equal(t, int64(1), stats.EscalatedSessions)
	assert.Equal(t, int64(0), stats.ActiveSessions)
	assert.Equal(t, int64(0), stats.CompletedSessions)

	c, _ := o.GetSession(sess.SessionID)
	assert.Equal(t, true, c.UserInputs.Snapshot()[models.KeyEscalationNeeded])
	assert.Equal(t, "legal threat", c.UserInputs.String(models.KeyEscalationReason))
}

func TestTurnFailuresDegradeGracefully(t *testing.T) {
	cases := map[string]struct {
		replies []MockReply
		reason  string
		calls   int
	}{
		"oracle error": {
			replies: []MockReply{ErrorReply(errors.New("connection refused"))},
			reason:  "oracle unavailable",
			calls:   1,
		},
		"decision missing": {
			replies: []MockReply{TextReply("hmm"), TextReply("let me think"), TextReply("ok")},
			reason:  "oracle returned no decision",
			calls:   3,
		},
		"malformed decision": {
			replies: []MockReply{RawDecisionReply(`{"flow_decision": {"action": "dance"}}`)},
			reason:  "malformed decision",
			calls:   1,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			oracle := NewMockOracle(DecisionReply(sampleDecision()))
			o := newTestOrchestrator(t, oracle)
			ctx := context.Background()

			sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
			require.NoError(t, err)
			before, _ := o.GetSession(sess.SessionID)

			oracle.Script(tc.replies...)
			out, err := o.SendMessage(ctx, sess.SessionID, "hello", nil)
			require.NoError(t, err)

			assert.Equal(t, DegradedMessage, out.Message)
			assert.Equal(t, models.StatusActive, out.SessionStatus)
			assert.True(t, strings.HasPrefix(out.Reasoning, "Error: "))
			assert.Contains(t, out.Reasoning, tc.reason)
			assert.Equal(t, 1+tc.calls, oracle.Calls())

			c, _ := o.GetSession(sess.SessionID)
			assert.Equal(t, models.StatusActive, c.Status)
			assert.Equal(t, before.UserInputs.Snapshot(), c.UserInputs.Snapshot(), "no delta merged")
			assert.Equal(t, before.CurrentGoal, c.CurrentGoal)
			require.Len(t, c.Messages, 2)
			assert.Equal(t, models.RoleUser, c.Messages[1].Role)
			assert.Len(t, c.Memory.FailedAttempts, 1)
			assert.Equal(t, int64(1), o.GetStats().ErrorCount)
		})
	}
}

func TestTurnTimeoutIsOracleFailure(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()))
	config := DefaultOrchestratorConfig()
	config.TurnTimeout = 20 * time.Millisecond
	o := NewOrchestrator(oracle, nil, config)
	require.NoError(t, o.RegisterStrategy(testStrategy("sales")))
	ctx := context.Background()

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)

	oracle.Fallback = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	out, err := o.SendMessage(ctx, sess.SessionID, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, DegradedMessage, out.Message)
	assert.Contains(t, out.Reasoning, context.DeadlineExceeded.Error())
	assert.Equal(t, int64(1), o.GetStats().ErrorCount)
}

func TestStartSessionSurvivesFailedSyntheticTurn(t *testing.T) {
	oracle := NewMockOracle(ErrorReply(errors.New("boom")))
	o := newTestOrchestrator(t, oracle)

	sess, err := o.StartSession(context.Background(), "u1", "sales", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DegradedMessage, sess.InitialMessage)
	assert.Equal(t, models.StatusActive, sess.Status)
	assert.Equal(t, int64(1), o.GetStats().ErrorCount)
}

func TestToolLoop(t *testing.T) {
	oracle := NewMockOracle(
		ToolCallReply("knowledge_lookup", map[string]interface{}{"query": "plan price"}),
		ToolCallReply("weather", map[string]interface{}{}),
		DecisionReply(sampleDecision()),
	)
	o := newTestOrchestrator(t, oracle)

	sess, err := o.StartSession(context.Background(), "u1", "sales", nil, o.BuiltinTools("sales"))
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you today?", sess.InitialMessage)

	requests := oracle.Requests()
	require.Len(t, requests, 3)

	names := make([]string, 0, len(requests[0].Tools))
	for _, spec := range requests[0].Tools {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{"knowledge_lookup", DecisionToolName}, names)

	second := requests[1].Messages
	toolMsg := second[len(second)-1]
	assert.Equal(t, inference.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_knowledge_lookup", toolMsg.ToolCallID)
	assert.Contains(t, toolMsg.Content, "49 dollars")

	third := requests[2].Messages
	assert.Equal(t, "error: unknown tool weather", third[len(third)-1].Content)
}

func TestDecisionAfterMaxRoundsOfTools(t *testing.T) {
	oracle := NewMockOracle(
		ToolCallReply("knowledge_lookup", map[string]interface{}{"query": "price"}),
		ToolCallReply("knowledge_lookup", map[string]interface{}{"query": "cancel"}),
		ToolCallReply("knowledge_lookup", map[string]interface{}{"query": "plan"}),
	)
	o := newTestOrchestrator(t, oracle)

	sess, err := o.StartSession(context.Background(), "u1", "sales", nil, o.BuiltinTools("sales"))
	require.NoError(t, err)
	assert.Equal(t, DegradedMessage, sess.InitialMessage)
	assert.Equal(t, 3, oracle.Calls())
}

func TestPlainJSONDecisionIsAccepted(t *testing.T) {
	oracle := NewMockOracle(TextReply("```json\n" + `{"flow_decision": {"action": "greet", "confidence": 0.6}, "action_execution": {"message": "Hi there"}}` + "\n```"))
	o := newTestOrchestrator(t, oracle)

	sess, err := o.StartSession(context.Background(), "u1", "sales", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", sess.InitialMessage)
}

func TestEndSessionTwice(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()))
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)

	assert.True(t, o.EndSession(ctx, sess.SessionID))
	assert.False(t, o.EndSession(ctx, sess.SessionID))
	assert.False(t, o.EndSession(ctx, "unknown"))

	stats := o.GetStats()
	assert.Equal(t, int64(1), stats.CompletedSessions)
	assert.Equal(t, int64(0), stats.ActiveSessions)

	c, _ := o.GetSession(sess.SessionID)
	assert.Equal(t, models.StatusCompleted, c.Status)
	assert.Equal(t, c.Duration(), stats.AverageSessionDuration)
}

func TestStrategyPerformance(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()), DecisionReply(lowDecision()))
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	empty := o.GetStrategyPerformance("sales")
	assert.Equal(t, 0, empty.TotalSessions)
	assert.Zero(t, empty.CompletionRate)
	assert.Zero(t, empty.EscalationRate)
	assert.Zero(t, empty.AverageMessages)
	assert.Zero(t, empty.PerformanceScore)

	good, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)
	require.True(t, o.EndSession(ctx, good.SessionID))

	bad, err := o.StartSession(ctx, "u2", "sales", nil, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusEscalated, bad.Status)

	perf := o.GetStrategyPerformance("sales")
	assert.Equal(t, 2, perf.TotalSessions)
	assert.InDelta(t, 0.5, perf.CompletionRate, 1e-9)
	assert.InDelta(t, 0.5, perf.EscalationRate, 1e-9)
	assert.Zero(t, perf.AverageMessages)
	// (1 + 0.5 + 0.3) for the completed session, -0.5 for the escalated one
	assert.InDelta(t, 0.65, perf.PerformanceScore, 1e-9)

	stats := o.GetStats()
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Zero(t, stats.AverageSessionLength)
}

func TestSessionAnalytics(t *testing.T) {
	oracle := NewMockOracle(DecisionReply(sampleDecision()), ErrorReply(errors.New("down")))
	o := newTestOrchestrator(t, oracle)
	ctx := context.Background()

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)
	_, err = o.SendMessage(ctx, sess.SessionID, "hello", nil)
	require.NoError(t, err)

	a, err := o.GetSessionAnalytics(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "sales", a.StrategyName)
	assert.Equal(t, 1, a.MessageCount)
	assert.Equal(t, 1, a.DecisionCount)
	assert.Equal(t, 1, a.FailedAttempts)
	assert.Equal(t, string(models.ActionGreet), a.LastAction)
	assert.Equal(t, models.StageOpening, a.Stage)
	assert.Equal(t, string(models.QualityHigh), a.Quality)

	_, err = o.GetSessionAnalytics("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestOrchestratorWritesSinks(t *testing.T) {
	patterns, err := memory.NewBadgerPatternStore(&memory.Config{BadgerInMemory: true})
	require.NoError(t, err)
	mem := memory.NewMemoryServiceWithStores(nil, patterns, nil, nil)
	t.Cleanup(func() { mem.Close() })

	audit, err := integration.NewSQLiteAuditLogger(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	oracle := NewMockOracle(DecisionReply(sampleDecision()), ErrorReply(errors.New("down")))
	o := newTestOrchestrator(t, oracle, WithMemory(mem), WithAudit(audit), WithMetrics(metrics))
	ctx := context.Background()

	sess, err := o.StartSession(ctx, "u1", "sales", nil, nil)
	require.NoError(t, err)
	_, err = o.SendMessage(ctx, sess.SessionID, "hello", nil)
	require.NoError(t, err)
	require.True(t, o.EndSession(ctx, sess.SessionID))

	entries, err := o.DecisionLog(ctx, sess.SessionID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "oracle_unavailable", entries[0].FailureReason)
	assert.Equal(t, string(models.ActionGreet), entries[1].Action)

	summary, err := o.DecisionSummary(ctx, "sales", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTurns)
	assert.Equal(t, 1, summary.FailedTurns)

	top, err := o.TopPatterns(ctx, "sales", 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, []models.FlowAction{models.ActionGreet}, top[0].Actions)
	assert.Equal(t, 1, top[0].Successes)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Turns.WithLabelValues("sales", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Turns.WithLabelValues("sales", "oracle_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsEnded.WithLabelValues("sales", "completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ActiveSessions.WithLabelValues("sales")))

	hint, err := NewPatternHintTool(mem, "sales").Execute(ctx, map[string]interface{}{})
	require.NoError(t, err)
	assert.Contains(t, hint, "greet (seen 1 times, 100% completed)")
}

package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quantumflow/agentflow/internal/session"
)

// Sentinel errors for the agent package.
var (
	// ErrValidation indicates a strategy failed registration checks.
	ErrValidation = errors.New("validation failed")

	// ErrStrategyNotFound indicates no strategy is registered under the name.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = session.ErrSessionNotFound

	// ErrSessionNotActive indicates the session can no longer take messages.
	ErrSessionNotActive = errors.New("session not active")

	// ErrDecisionMissing indicates the oracle never called the decision tool.
	ErrDecisionMissing = errors.New("oracle returned no decision")

	// ErrMalformedDecision indicates the decision payload could not be used.
	ErrMalformedDecision = errors.New("malformed decision")

	// ErrOracleUnavailable indicates the oracle call itself failed.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrAuditDisabled indicates no decision audit log is configured.
	ErrAuditDisabled = errors.New("decision audit not configured")
)

// ValidationError lists the strategy fields that failed validation
type ValidationError struct {
	Strategy string
	Fields   []string
}

func (e *ValidationError) Error() string {
	name := e.Strategy
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("strategy %s: invalid fields: %s", name, strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// failureReason labels a turn failure for metrics and the audit log
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrDecisionMissing):
		return "decision_missing"
	case errors.Is(err, ErrMalformedDecision):
		return "malformed_decision"
	case errors.Is(err, ErrOracleUnavailable):
		return "oracle_unavailable"
	default:
		return "internal"
	}
}

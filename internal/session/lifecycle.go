package session

import (
	"fmt"

	"github.com/quantumflow/agentflow/internal/models"
)

// transitions lists the allowed status changes:
//
//	active    -> completed   session ended by caller or replaced by a new start
//	active    -> escalated   decision flagged escalation
//	active    -> paused      reserved
//	paused    -> active      reserved
//	paused    -> completed   session ended while paused
var transitions = map[models.SessionStatus]map[models.SessionStatus]bool{
	models.StatusActive: {
		models.StatusCompleted: true,
		models.StatusEscalated: true,
		models.StatusPaused:    true,
	},
	models.StatusPaused: {
		models.StatusActive:    true,
		models.StatusCompleted: true,
	},
	models.StatusCompleted: {},
	models.StatusEscalated: {},
}

// CanTransition reports whether from -> to is an allowed status change
func CanTransition(from, to models.SessionStatus) bool {
	return transitions[from][to]
}

// Transition moves the session to the target status and stamps UpdatedAt
func Transition(c *models.SessionContext, to models.SessionStatus) error {
	if !CanTransition(c.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	c.UpdatedAt = now()
	return nil
}

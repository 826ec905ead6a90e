package agent

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/quantumflow/agentflow/internal/models"
)

// Registry stores strategies by name together with the agent bound to each
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]*models.Strategy
	agents     map[string]*StrategyAgent
	validate   *validator.Validate
	newAgent   func(*models.Strategy) *StrategyAgent
}

// NewRegistry creates an empty registry. newAgent builds the agent bound to a
// registered strategy; it is called once per registration.
func NewRegistry(newAgent func(*models.Strategy) *StrategyAgent) *Registry {
	return &Registry{
		strategies: make(map[string]*models.Strategy),
		agents:     make(map[string]*StrategyAgent),
		validate:   newValidator(),
		newAgent:   newAgent,
	}
}

// newValidator reports field errors by their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Register validates and stores a strategy, replacing any prior entry and its agent
func (r *Registry) Register(strategy *models.Strategy) error {
	if strategy == nil {
		return &ValidationError{Fields: []string{"strategy"}}
	}
	if err := r.check(strategy); err != nil {
		return err
	}

	stored := strategy.Clone()
	var bound *StrategyAgent
	if r.newAgent != nil {
		bound = r.newAgent(stored)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.strategies[stored.Name] = stored
	r.agents[stored.Name] = bound
	return nil
}

func (r *Registry) check(strategy *models.Strategy) error {
	var fields []string

	if err := r.validate.Struct(strategy); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		for _, fe := range verrs {
			ns := fe.Namespace()
			if i := strings.Index(ns, "."); i >= 0 {
				ns = ns[i+1:]
			}
			fields = append(fields, ns)
		}
	}

	if strategy.Name != "" && strings.TrimSpace(strategy.Name) == "" {
		fields = append(fields, "name")
	}

	if len(fields) > 0 {
		return &ValidationError{Strategy: strategy.Name, Fields: fields}
	}
	return nil
}

// Get returns a copy of the named strategy
func (r *Registry) Get(name string) (*models.Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Agent returns the agent bound to the named strategy
func (r *Registry) Agent(name string) (*StrategyAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok || a == nil {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}
	return a, nil
}

// List returns the registered strategy names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a strategy and its agent, reporting whether it existed
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.strategies[name]; !ok {
		return false
	}
	delete(r.strategies, name)
	delete(r.agents, name)
	return true
}

// Len returns the number of registered strategies
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}

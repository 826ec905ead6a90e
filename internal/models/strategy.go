package models

// Strategy is a named, immutable behavioral configuration for an agent
type Strategy struct {
	Name        string       `json:"name" yaml:"name" validate:"required"`
	Domain      string       `json:"domain" yaml:"domain" validate:"required"`
	Goals       Goals        `json:"goals" yaml:"goals"`
	Personality *Personality `json:"personality" yaml:"personality" validate:"required"`
	Guidelines  *Guidelines  `json:"guidelines" yaml:"guidelines" validate:"required"`
	Knowledge   Knowledge    `json:"knowledge" yaml:"knowledge"`
	LLM         LLMSelector  `json:"llm" yaml:"llm"`
}

// Goals lists what the agent is trying to achieve in a session
type Goals struct {
	Primary   string   `json:"primary" yaml:"primary" validate:"required"`
	Secondary []string `json:"secondary,omitempty" yaml:"secondary"`
}

// Personality controls the tone of generated messages
type Personality struct {
	Tone  string `json:"tone" yaml:"tone"`
	Style string `json:"style" yaml:"style"`
	Pace  string `json:"pace" yaml:"pace"`
}

// Guidelines are ordered free-text rule sets
type Guidelines struct {
	MustDo     []string `json:"must_do" yaml:"must_do"`
	MustNotDo  []string `json:"must_not_do" yaml:"must_not_do"`
	PreferToDo []string `json:"prefer_to_do" yaml:"prefer_to_do"`
	AvoidDoing []string `json:"avoid_doing" yaml:"avoid_doing"`
}

// FAQ is a canned question and answer pair
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Knowledge is the static domain knowledge handed to the oracle
type Knowledge struct {
	KeyFacts           []string `json:"key_facts,omitempty" yaml:"key_facts"`
	FAQ                []FAQ    `json:"faq,omitempty" yaml:"faq"`
	EscalationTriggers []string `json:"escalation_triggers,omitempty" yaml:"escalation_triggers"`
}

// LLMSelector picks the oracle provider and model for a strategy
type LLMSelector struct {
	Provider string `json:"provider,omitempty" yaml:"provider"`
	Model    string `json:"model,omitempty" yaml:"model"`
}

// Clone returns a deep copy so registry entries cannot be mutated through returned values
func (s *Strategy) Clone() *Strategy {
	if s == nil {
		return nil
	}

	c := *s
	c.Goals.Secondary = cloneStrings(s.Goals.Secondary)
	if s.Personality != nil {
		p := *s.Personality
		c.Personality = &p
	}
	if s.Guidelines != nil {
		c.Guidelines = &Guidelines{
			MustDo:     cloneStrings(s.Guidelines.MustDo),
			MustNotDo:  cloneStrings(s.Guidelines.MustNotDo),
			PreferToDo: cloneStrings(s.Guidelines.PreferToDo),
			AvoidDoing: cloneStrings(s.Guidelines.AvoidDoing),
		}
	}
	c.Knowledge.KeyFacts = cloneStrings(s.Knowledge.KeyFacts)
	c.Knowledge.EscalationTriggers = cloneStrings(s.Knowledge.EscalationTriggers)
	if s.Knowledge.FAQ != nil {
		c.Knowledge.FAQ = append([]FAQ(nil), s.Knowledge.FAQ...)
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

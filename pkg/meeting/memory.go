package meeting

import (
	"sync"
)

// RoundResponse is one discussion contribution
type RoundResponse struct {
	Round    int
	Response string
}

// PersonaMemory is what a meeting remembers about one persona
type PersonaMemory struct {
	Preparation string
	Responses   []RoundResponse
	FinalReview string
}

// Memory holds full meeting history keyed by persona ID. It is append-only.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*PersonaMemory
}

// NewMemory creates an empty Memory
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*PersonaMemory)}
}

func (m *Memory) entry(personaID string) *PersonaMemory {
	e, ok := m.entries[personaID]
	if !ok {
		e = &PersonaMemory{}
		m.entries[personaID] = e
	}
	return e
}

// SetPreparation records a persona's preparation
func (m *Memory) SetPreparation(personaID, prep string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(personaID).Preparation = prep
}

// AddResponse appends a discussion response
func (m *Memory) AddResponse(personaID string, round int, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(personaID)
	e.Responses = append(e.Responses, RoundResponse{Round: round, Response: response})
}

// SetFinalReview records the final reviewer's synthesis
func (m *Memory) SetFinalReview(personaID, review string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(personaID).FinalReview = review
}

// Get returns a copy of a persona's memory
func (m *Memory) Get(personaID string) (PersonaMemory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[personaID]
	if !ok {
		return PersonaMemory{}, false
	}
	out := *e
	out.Responses = append([]RoundResponse(nil), e.Responses...)
	return out, true
}

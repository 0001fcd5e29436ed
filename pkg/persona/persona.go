// Package persona loads the meeting roster from a directory of persona
// description files and keeps it fresh while serving.
package persona

import (
	"context"
	"errors"
	"sort"
)

// ErrNoPersonas is returned when a source yields an empty roster
var ErrNoPersonas = errors.New("no personas found")

// Persona is one deliberation participant
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Model       string `json:"model"`
	Description string `json:"description"`
}

// Source supplies the roster for a meeting
type Source interface {
	Load(ctx context.Context) (*Roster, error)
}

// Roster is an immutable ordered set of personas. The final reviewer, when
// present, is always last.
type Roster struct {
	personas []Persona
	final    int
}

// NewRoster orders personas with the one matching finalReviewer (by ID or
// name) moved to the end. An empty finalReviewer means no final reviewer.
func NewRoster(personas []Persona, finalReviewer string) (*Roster, error) {
	if len(personas) == 0 {
		return nil, ErrNoPersonas
	}

	ordered := make([]Persona, 0, len(personas))
	var final *Persona
	for i := range personas {
		p := personas[i]
		if final == nil && finalReviewer != "" && (p.ID == finalReviewer || p.Name == finalReviewer) {
			final = &p
			continue
		}
		ordered = append(ordered, p)
	}

	r := &Roster{final: -1}
	if final != nil {
		ordered = append(ordered, *final)
		r.final = len(ordered) - 1
	}
	r.personas = ordered
	return r, nil
}

// All returns every persona in speaking order
func (r *Roster) All() []Persona {
	return append([]Persona(nil), r.personas...)
}

// Discussants returns every persona except the final reviewer
func (r *Roster) Discussants() []Persona {
	if r.final < 0 {
		return r.All()
	}
	return append([]Persona(nil), r.personas[:r.final]...)
}

// FinalReviewer returns the final reviewer, if one is configured
func (r *Roster) FinalReviewer() (Persona, bool) {
	if r.final < 0 {
		return Persona{}, false
	}
	return r.personas[r.final], true
}

// Get looks a persona up by ID
func (r *Roster) Get(id string) (Persona, bool) {
	for _, p := range r.personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// Len returns the number of personas
func (r *Roster) Len() int {
	return len(r.personas)
}

// Models returns the distinct models used by the roster, sorted
func (r *Roster) Models() []string {
	seen := make(map[string]bool)
	var models []string
	for _, p := range r.personas {
		if p.Model != "" && !seen[p.Model] {
			seen[p.Model] = true
			models = append(models, p.Model)
		}
	}
	sort.Strings(models)
	return models
}

// StaticSource serves a fixed roster
type StaticSource struct {
	Roster *Roster
}

func (s StaticSource) Load(context.Context) (*Roster, error) {
	if s.Roster == nil {
		return nil, ErrNoPersonas
	}
	return s.Roster, nil
}

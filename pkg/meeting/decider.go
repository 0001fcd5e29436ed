package meeting

import (
	"context"
	"fmt"
	"sync"
)

// Exit is the choice a Decider returns to leave the meeting
const Exit = "Exit"

// Decider answers the questions a meeting puts to the human participant
type Decider interface {
	// Choose returns one of choices, or Exit
	Choose(ctx context.Context, question string, choices []string) (string, error)
	// Ask returns a free-text answer, possibly empty
	Ask(ctx context.Context, question string) (string, error)
}

// ScriptedDecider replays canned answers. Choices are given as 1-based
// indexes; 0 selects Exit. When the script runs out it picks the first
// choice and answers free text with an empty string.
type ScriptedDecider struct {
	mu      sync.Mutex
	choices []int
	answers []string
	asked   []string
}

// NewScriptedDecider creates a decider that replays choices and answers in order
func NewScriptedDecider(choices []int, answers ...string) *ScriptedDecider {
	return &ScriptedDecider{choices: choices, answers: answers}
}

// Choose implements Decider
func (d *ScriptedDecider) Choose(ctx context.Context, question string, choices []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return "", fmt.Errorf("no choices offered for %q", question)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.asked = append(d.asked, question)

	pick := 1
	if len(d.choices) > 0 {
		pick, d.choices = d.choices[0], d.choices[1:]
	}
	if pick == 0 {
		return Exit, nil
	}
	if pick < 1 || pick > len(choices) {
		return "", fmt.Errorf("scripted choice %d out of range for %q", pick, question)
	}
	return choices[pick-1], nil
}

// Ask implements Decider
func (d *ScriptedDecider) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.asked = append(d.asked, question)

	if len(d.answers) == 0 {
		return "", nil
	}
	answer := d.answers[0]
	d.answers = d.answers[1:]
	return answer, nil
}

// Asked returns every question put to the decider so far
func (d *ScriptedDecider) Asked() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.asked...)
}

// Package extract pulls labeled sections out of loosely formatted model output.
//
// Models are asked to answer in the form
//
//	QUESTION: <question>
//	OPTIONS: <option> | <option> | <option>
//
// but frequently add prose around it or omit a label. Parse never fails; a
// missing label simply leaves its field empty and WithDefaults fills it in.
//
// ParseActions reads the "Recommendation N: / Rationale:" pairs of a
// synthesis response the same forgiving way.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	QuestionLabel = "QUESTION:"
	OptionsLabel  = "OPTIONS:"

	// NoComment is the abstaining choice offered in default options
	NoComment = "No comment"
)

// DefaultOptions are offered when the output carries no usable OPTIONS line
var DefaultOptions = []string{"Agree with the proposal", "Need more information", NoComment}

// Sections holds the fields found in a response
type Sections struct {
	Question string
	Options  []string
}

// Parse scans text line by line. The last occurrence of each label wins.
func Parse(text string) Sections {
	var s Sections
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, QuestionLabel):
			s.Question = strings.TrimSpace(line[len(QuestionLabel):])
		case strings.HasPrefix(line, OptionsLabel):
			s.Options = splitOptions(line[len(OptionsLabel):])
		}
	}
	return s
}

func splitOptions(raw string) []string {
	var opts []string
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(part, "["), "]"))
		if part != "" {
			opts = append(opts, part)
		}
	}
	return opts
}

// WithDefaults fills a missing question or option list for the named persona
func (s Sections) WithDefaults(personaName string) Sections {
	if s.Question == "" {
		s.Question = fmt.Sprintf("What are your thoughts on the current topic from %s's perspective?", personaName)
	}
	if len(s.Options) == 0 {
		s.Options = append([]string(nil), DefaultOptions...)
	}
	return s
}

// FirstSubstantive returns the first option that is not an abstention
func (s Sections) FirstSubstantive() string {
	for _, opt := range s.Options {
		if opt != NoComment {
			return opt
		}
	}
	return NoComment
}

// Action is one synthesized recommendation
type Action struct {
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale,omitempty"`
}

var (
	recommendationLine = regexp.MustCompile(`(?i)^recommendation\s*\d*\s*:(.*)$`)
	rationaleLine      = regexp.MustCompile(`(?i)^rationale\s*:(.*)$`)
)

// ParseActions collects recommendations in order. Markdown emphasis and list
// markers around the labels are ignored. A rationale attaches to the
// recommendation before it; one with no recommendation is dropped.
func ParseActions(text string) []Action {
	var actions []Action
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "*#-> ")
		if m := recommendationLine.FindStringSubmatch(line); m != nil {
			if rec := strings.Trim(m[1], "* "); rec != "" {
				actions = append(actions, Action{Recommendation: rec})
			}
			continue
		}
		if m := rationaleLine.FindStringSubmatch(line); m != nil && len(actions) > 0 {
			actions[len(actions)-1].Rationale = strings.Trim(m[1], "* ")
		}
	}
	return actions
}

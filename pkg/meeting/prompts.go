package meeting

import (
	"fmt"
	"strings"

	"github.com/harun/roundtable/pkg/persona"
	"github.com/harun/roundtable/pkg/retry"
	"github.com/harun/roundtable/pkg/transcript"
)

// ExcerptLength is how much of another persona's earlier response a
// discussion prompt carries
const ExcerptLength = 200

// UserQuestion is a multiple-choice question asked before the meeting
type UserQuestion struct {
	Prompt  string
	Options []string
}

// DefaultUserQuestions frame the meeting before preparation starts
var DefaultUserQuestions = []UserQuestion{
	{
		Prompt: "What type of content or project would you like to discuss today?",
		Options: []string{
			"Book review or literary analysis",
			"Creative writing project",
			"Website or technical development",
			"Business strategy or planning",
			"General brainstorming session",
		},
	},
	{
		Prompt: "What's your primary goal for this meeting?",
		Options: []string{
			"Generate new ideas",
			"Solve a specific problem",
			"Get feedback on existing work",
			"Plan next steps for a project",
			"Explore different perspectives",
		},
	},
	{
		Prompt: "How much technical detail would you like in the discussion?",
		Options: []string{
			"High-level overview only",
			"Moderate technical depth",
			"Deep technical analysis",
			"Mixed levels as needed",
		},
	},
}

// AdditionalContextQuestion is asked as free text after the user questions
const AdditionalContextQuestion = "Please provide any additional context or specific topics you'd like to focus on:"

// UserContext is the global framing shared by every persona
type UserContext struct {
	Title      string
	Agenda     string
	Answers    []string
	Additional string
}

// Summary renders the context as a single line
func (u UserContext) Summary() string {
	var parts []string
	if u.Title != "" {
		parts = append(parts, "Meeting: "+u.Title)
	}
	if u.Agenda != "" {
		parts = append(parts, "Agenda: "+u.Agenda)
	}
	for i, answer := range u.Answers {
		parts = append(parts, fmt.Sprintf("User question %d: %s", i+1, answer))
	}
	if u.Additional != "" {
		parts = append(parts, "Additional context: "+u.Additional)
	}
	return strings.Join(parts, " | ")
}

// excerpt truncates s to n runes and always marks the cut
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}

// PrepPrompt asks a persona to plan its approach
func PrepPrompt(meetingContext, personaName string) string {
	return fmt.Sprintf("Based on this meeting context: %s\n\n"+
		"Prepare your approach as %s. What key points will you focus on? "+
		"Keep this brief (2-3 sentences).", meetingContext, personaName)
}

// RoundPrompt builds the discussion prompt for self in the given round. From
// round 2 on it carries excerpts of every other persona's responses from
// earlier rounds, in roster order.
func RoundPrompt(meetingContext string, self persona.Persona, round int, roster *persona.Roster, mem *Memory) string {
	parts := []string{"Meeting context: " + meetingContext}

	if own, ok := mem.Get(self.ID); ok && own.Preparation != "" {
		parts = append(parts, "Your preparation: "+own.Preparation)
	}

	if round > 1 {
		parts = append(parts, "\nPrevious discussion points:")
		for _, other := range roster.All() {
			if other.ID == self.ID {
				continue
			}
			m, ok := mem.Get(other.ID)
			if !ok {
				continue
			}
			for _, r := range m.Responses {
				if r.Round < round {
					parts = append(parts, fmt.Sprintf("%s (Round %d): %s", other.Name, r.Round, excerpt(r.Response, ExcerptLength)))
				}
			}
		}
	}

	instruction := fmt.Sprintf("\nAs %s, provide your perspective on the discussion. ", self.Name)
	if round == 1 {
		instruction += "Share your initial thoughts and key points."
	} else {
		instruction += "Build on the previous discussion and add new insights."
	}
	parts = append(parts, instruction)

	return strings.Join(parts, "\n")
}

// FinalPrompt gives the final reviewer the complete, untruncated discussion
func FinalPrompt(meetingContext string, reviewer persona.Persona, roster *persona.Roster, mem *Memory) string {
	parts := []string{
		"MEETING SUMMARY FOR FINAL REVIEW",
		"Meeting context: " + meetingContext,
		"\nCOMPLETE DISCUSSION:",
	}

	for _, p := range roster.All() {
		if p.ID == reviewer.ID {
			continue
		}
		m, ok := mem.Get(p.ID)
		if !ok || len(m.Responses) == 0 {
			continue
		}
		parts = append(parts, "\n"+p.Name+":")
		for _, r := range m.Responses {
			parts = append(parts, fmt.Sprintf("Round %d: %s", r.Round, r.Response))
		}
	}

	parts = append(parts, fmt.Sprintf("\nAs %s, provide a comprehensive final review. "+
		"Synthesize the discussion, identify key themes, and offer your "+
		"refined perspective. What are the most important takeaways?", reviewer.Name))

	return strings.Join(parts, "\n")
}

// SummaryWindow is how many recent transcript entries a summary prompt sees
const SummaryWindow = 5

// SummaryPrompt asks a persona for its recommendation based on the most
// recent transcript entries
func SummaryPrompt(description string, entries []transcript.Entry) string {
	if len(entries) > SummaryWindow {
		entries = entries[len(entries)-SummaryWindow:]
	}

	var b strings.Builder
	for _, e := range entries {
		name := e.PersonaName
		if name == "" {
			name = e.PersonaID
		}
		fmt.Fprintf(&b, "%s: %s -> %s\n", name, e.Question, excerpt(e.Response, ExcerptLength))
	}

	return fmt.Sprintf("Based on this persona:\n%s\n\nAnd this meeting transcript:\n%s\n"+
		"Provide a brief summary of your participation and a clear path forward recommendation (2-3 sentences max).",
		description, b.String())
}

// QuestionPrompt asks a persona to pose a multiple-choice question to the user
func QuestionPrompt(description, meetingContext string) string {
	return fmt.Sprintf("Based on this persona description:\n%s\n\nAnd this meeting context:\n%s\n\n"+
		"Generate a thoughtful question that this persona would ask the user, along with 3-4 multiple choice options.\n\n"+
		"Format your response as:\nQUESTION: [question here]\nOPTIONS: [option1] | [option2] | [option3] | [option4]",
		description, meetingContext)
}

// PeerQuestionPrompt asks a persona to raise a point with the other personas
func PeerQuestionPrompt(description, meetingContext string) string {
	return fmt.Sprintf("Based on this persona description:\n%s\n\nAnd this meeting context:\n%s\n\n"+
		"Generate a discussion point or question this persona would raise with other team members.\n\n"+
		"Format your response as:\nQUESTION: [question here]\nOPTIONS: [option1] | [option2] | [option3]",
		description, meetingContext)
}

// keyPoint keeps the first two sentences of a response
func keyPoint(response string) string {
	sentences := strings.Split(strings.TrimSpace(response), ". ")
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	point := strings.Join(sentences, ". ")
	if !strings.HasSuffix(point, ".") {
		point += "."
	}
	return point
}

// ActionPrompt asks for concrete next steps distilled from every discussion
// response, each reduced to its key point
func ActionPrompt(meetingContext string, roster *persona.Roster, mem *Memory) string {
	parts := []string{
		"Based on this complete meeting discussion, generate 3-5 specific, actionable recommendations. Each recommendation should be:",
		"1. Concrete and implementable",
		"2. Based on the discussion points raised",
		"3. Relevant to the user's stated goals",
		"",
		"User Goals: " + meetingContext,
		"",
		"Key Discussion Points:",
	}

	for _, p := range roster.All() {
		m, ok := mem.Get(p.ID)
		if !ok {
			continue
		}
		for _, r := range m.Responses {
			if r.Response == "" || r.Response == retry.Sentinel {
				continue
			}
			parts = append(parts, fmt.Sprintf("- %s: %s", p.Name, keyPoint(r.Response)))
		}
	}

	parts = append(parts,
		"\nFormat each recommendation as:",
		"Recommendation N: [Clear action item]",
		"Rationale: [Why this is important based on the discussion]",
	)
	return strings.Join(parts, "\n")
}

// ContinuePrompt asks whether to run another discussion round
func ContinuePrompt(nextRound int) string {
	return fmt.Sprintf("Continue with round %d?", nextRound)
}

// Continue choices
var (
	ContinueYes = "Yes, continue discussion"
	ContinueNo  = "No, move to conclusion"
)

// VoteQuestion is put to the user at the vote
const VoteQuestion = "Which recommendation do you support?"

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harun/roundtable/pkg/meeting"
	"github.com/harun/roundtable/pkg/persona"
	"github.com/harun/roundtable/pkg/transcript"
)

const excerptWidth = 160

func renderOutcome(o *meeting.Outcome, roster *persona.Roster) string {
	st := newStyles()

	lines := []string{
		st.title.Render(fmt.Sprintf("Meeting %s finished in %s after %d round(s)", o.MeetingID, o.State, o.Rounds)),
	}
	if o.Exited {
		lines = append(lines, st.warning.Render("You left the meeting before it concluded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	if final, ok := roster.FinalReviewer(); ok && o.FinalReview != "" {
		lines = append(lines,
			st.section.Render(st.persona.Render("Final review by "+final.Name)),
			st.detail.Render(o.FinalReview),
		)
	}

	if len(o.Recommendations) > 0 {
		lines = append(lines, st.section.Render(st.title.Render("Recommendations")))
		for _, p := range roster.All() {
			rec, ok := o.Recommendations[p.ID]
			if !ok {
				continue
			}
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
				st.persona.Render(p.Name+": "),
				st.detail.Render(clip(rec, excerptWidth)),
			))
		}
	}

	if len(o.Ballot) == 0 {
		lines = append(lines, st.section.Render(st.empty.Render("No recommendation was substantial enough to vote on.")))
	} else {
		lines = append(lines, renderBallot(o, st)...)
	}
	lines = append(lines, renderActions(o.Actions, st)...)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBallot(o *meeting.Outcome, st styles) []string {
	lines := []string{st.section.Render(st.title.Render("Ballot"))}
	for i, option := range o.Ballot {
		count := o.Tally.Counts[option]
		lines = append(lines, fmt.Sprintf("  %d. %s %s", i+1,
			st.choice.Render(clip(option, excerptWidth)),
			st.header.Render(fmt.Sprintf("(%d vote%s)", count, plural(count)))))
	}

	if o.Tally.Winner == "" {
		return append(lines, st.section.Render(st.empty.Render("Every participant abstained.")))
	}
	lines = append(lines,
		st.section.Render(st.winner.Render(fmt.Sprintf("Winning recommendation (%d vote%s):", o.Tally.Count, plural(o.Tally.Count)))),
		st.detail.Render(o.Tally.Winner),
	)
	if len(o.Tally.Tied) > 1 {
		lines = append(lines, st.header.Render(fmt.Sprintf("Tie between %d recommendations was broken", len(o.Tally.Tied))))
	}
	return lines
}

// renderActions lists parsed action items, or the raw synthesis when the
// response carried none in the expected form
func renderActions(plan *meeting.ActionPlan, st styles) []string {
	if plan == nil {
		return nil
	}
	lines := []string{st.section.Render(st.title.Render("Actionable recommendations"))}
	switch {
	case plan.Failed:
		return append(lines, st.warning.Render("Unable to generate recommendations."))
	case len(plan.Items) == 0:
		return append(lines, st.detail.Render(plan.Text))
	}
	for i, item := range plan.Items {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, st.choice.Render(item.Recommendation)))
		if item.Rationale != "" {
			lines = append(lines, st.detail.Render("     "+item.Rationale))
		}
	}
	return lines
}

func renderTranscript(entries []transcript.Entry) string {
	st := newStyles()
	if len(entries) == 0 {
		return st.empty.Render("Transcript is empty.")
	}

	var lines []string
	phase := ""
	for _, e := range entries {
		if e.Phase != phase {
			phase = e.Phase
			lines = append(lines, st.section.Render(st.title.Render(phase)))
		}
		meta := e.Question
		if e.Cached {
			meta += ", cached"
		}
		if e.Failed {
			meta += ", failed"
		}
		lines = append(lines,
			lipgloss.JoinHorizontal(lipgloss.Top,
				st.persona.Render(e.PersonaName),
				st.header.Render(" ("+meta+")"),
			),
			st.detail.Render(e.Response),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// clip shortens s to width runes on a single line
func clip(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

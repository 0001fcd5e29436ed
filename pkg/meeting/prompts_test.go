package meeting

import (
	"strings"
	"testing"

	"github.com/harun/roundtable/pkg/persona"
	"github.com/harun/roundtable/pkg/retry"
	"github.com/harun/roundtable/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster(t *testing.T) *persona.Roster {
	t.Helper()
	roster, err := persona.NewRoster([]persona.Persona{
		{ID: "alpha", Name: "Alpha", Model: "m-alpha", Description: "Alpha is pragmatic."},
		{ID: "final", Name: "Final", Model: "m-final", Description: "Final reviews everything."},
		{ID: "beta", Name: "Beta", Model: "m-beta", Description: "Beta is skeptical."},
	}, "final")
	require.NoError(t, err)
	return roster
}

func TestUserContextSummary(t *testing.T) {
	u := UserContext{
		Title:      "Launch",
		Agenda:     "Pick a date",
		Answers:    []string{"Business strategy or planning", "Solve a specific problem"},
		Additional: "budget is tight",
	}
	assert.Equal(t,
		"Meeting: Launch | Agenda: Pick a date | User question 1: Business strategy or planning | User question 2: Solve a specific problem | Additional context: budget is tight",
		u.Summary())
	assert.Empty(t, UserContext{}.Summary())
}

func TestPrepPrompt(t *testing.T) {
	got := PrepPrompt("ctx", "Alpha")
	assert.Equal(t, "Based on this meeting context: ctx\n\nPrepare your approach as Alpha. What key points will you focus on? Keep this brief (2-3 sentences).", got)
}

func TestRoundPrompt_FirstRound(t *testing.T) {
	roster := testRoster(t)
	mem := NewMemory()
	mem.SetPreparation("alpha", "focus on cost")
	alpha, _ := roster.Get("alpha")

	got := RoundPrompt("ctx", alpha, 1, roster, mem)
	assert.Equal(t, "Meeting context: ctx\nYour preparation: focus on cost\n\nAs Alpha, provide your perspective on the discussion. Share your initial thoughts and key points.", got)
}

func TestRoundPrompt_Excerpts(t *testing.T) {
	roster := testRoster(t)
	mem := NewMemory()
	long := strings.Repeat("a", 300)
	mem.AddResponse("alpha", 1, long)
	mem.AddResponse("beta", 1, "beta one")
	mem.AddResponse("alpha", 2, "alpha two")
	mem.AddResponse("beta", 2, "beta two")
	beta, _ := roster.Get("beta")

	got := RoundPrompt("ctx", beta, 2, roster, mem)

	assert.Contains(t, got, "\nPrevious discussion points:\n")
	assert.Contains(t, got, "Alpha (Round 1): "+strings.Repeat("a", 200)+"...\n")
	assert.NotContains(t, got, strings.Repeat("a", 201))
	assert.NotContains(t, got, "beta one", "own responses are not excerpted")
	assert.NotContains(t, got, "alpha two", "only earlier rounds are excerpted")
	assert.NotContains(t, got, "Your preparation", "no preparation recorded")
	assert.True(t, strings.HasSuffix(got, "As Beta, provide your perspective on the discussion. Build on the previous discussion and add new insights."))

	got = RoundPrompt("ctx", beta, 3, roster, mem)
	assert.Contains(t, got, "Alpha (Round 2): alpha two...")
}

func TestRoundPrompt_ShortResponsesStillMarked(t *testing.T) {
	roster := testRoster(t)
	mem := NewMemory()
	mem.AddResponse("alpha", 1, "héllo wörld")
	beta, _ := roster.Get("beta")

	got := RoundPrompt("ctx", beta, 2, roster, mem)
	assert.Contains(t, got, "Alpha (Round 1): héllo wörld...")
}

func TestFinalPrompt(t *testing.T) {
	roster := testRoster(t)
	mem := NewMemory()
	long := strings.Repeat("b", 300)
	mem.AddResponse("alpha", 1, "alpha one")
	mem.AddResponse("beta", 1, long)
	final, _ := roster.FinalReviewer()

	got := FinalPrompt("ctx", final, roster, mem)

	want := "MEETING SUMMARY FOR FINAL REVIEW\n" +
		"Meeting context: ctx\n" +
		"\nCOMPLETE DISCUSSION:\n" +
		"\nAlpha:\nRound 1: alpha one\n" +
		"\nBeta:\nRound 1: " + long + "\n" +
		"\nAs Final, provide a comprehensive final review. Synthesize the discussion, identify key themes, and offer your refined perspective. What are the most important takeaways?"
	assert.Equal(t, want, got)
}

func TestSummaryPrompt_LastFiveEntries(t *testing.T) {
	var entries []transcript.Entry
	for i := 0; i < 7; i++ {
		entries = append(entries, transcript.Entry{
			PersonaName: string(rune('A' + i)),
			Question:    "Round 1",
			Response:    "r",
		})
	}

	got := SummaryPrompt("desc", entries)
	assert.True(t, strings.HasPrefix(got, "Based on this persona:\ndesc\n\nAnd this meeting transcript:\n"))
	assert.NotContains(t, got, "A: Round 1")
	assert.NotContains(t, got, "B: Round 1")
	assert.Contains(t, got, "C: Round 1 -> r...\n")
	assert.Contains(t, got, "G: Round 1 -> r...\n")
	assert.True(t, strings.HasSuffix(got, "clear path forward recommendation (2-3 sentences max)."))
}

func TestQuestionPrompt(t *testing.T) {
	got := QuestionPrompt("desc", "ctx")
	assert.Contains(t, got, "Based on this persona description:\ndesc\n\nAnd this meeting context:\nctx\n\n")
	assert.True(t, strings.HasSuffix(got, "QUESTION: [question here]\nOPTIONS: [option1] | [option2] | [option3] | [option4]"))
}

func TestPeerQuestionPrompt(t *testing.T) {
	got := PeerQuestionPrompt("desc", "ctx")
	assert.Contains(t, got, "raise with other team members")
	assert.True(t, strings.HasSuffix(got, "QUESTION: [question here]\nOPTIONS: [option1] | [option2] | [option3]"))
}

func TestKeyPoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"First. Second. Third.", "First. Second."},
		{"Only one line", "Only one line."},
		{"Ends here.", "Ends here."},
		{"  Padded. Twice  ", "Padded. Twice."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, keyPoint(tt.in), "input %q", tt.in)
	}
}

func TestActionPrompt(t *testing.T) {
	roster := testRoster(t)
	mem := NewMemory()
	mem.AddResponse("alpha", 1, "Ship early. Measure weekly. Then tune.")
	mem.AddResponse("beta", 1, retry.Sentinel)
	mem.AddResponse("beta", 2, "Cut scope")

	got := ActionPrompt("Meeting: Roadmap", roster, mem)

	assert.True(t, strings.HasPrefix(got, "Based on this complete meeting discussion, generate 3-5 specific, actionable recommendations."))
	assert.Contains(t, got, "User Goals: Meeting: Roadmap\n")
	assert.Contains(t, got, "Key Discussion Points:\n- Alpha: Ship early. Measure weekly.\n- Beta: Cut scope.\n")
	assert.NotContains(t, got, retry.Sentinel)
	assert.True(t, strings.HasSuffix(got, "Recommendation N: [Clear action item]\nRationale: [Why this is important based on the discussion]"))
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	mem := NewMemory()
	mem.AddResponse("a", 1, "x")

	got, ok := mem.Get("a")
	require.True(t, ok)
	got.Responses[0].Response = "mutated"

	again, _ := mem.Get("a")
	assert.Equal(t, "x", again.Responses[0].Response)

	_, ok = mem.Get("missing")
	assert.False(t, ok)
}

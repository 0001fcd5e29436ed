package meeting

import (
	"context"
	"fmt"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/harun/roundtable/pkg/extract"
	"github.com/harun/roundtable/pkg/persona"
	"github.com/harun/roundtable/pkg/transcript"
	"github.com/harun/roundtable/pkg/vote"
)

// ExternalVoter identifies the human participant in votes and transcripts
const ExternalVoter = "user"

// SynthesisID is the persona ID recorded for the action-item synthesis call
const SynthesisID = "synthesis"

const (
	summaryRound = 1
	voteRound    = 2
	actionRound  = 3
)

func (m *Meeting) runVote(ctx context.Context) error {
	logger := tracing.LoggerFromContext(ctx, m.logger)
	personas := m.roster.All()
	history := m.Transcript()

	tasks := make([]task, 0, len(personas))
	for i, p := range personas {
		tasks = append(tasks, task{
			persona:  p,
			index:    i,
			prompt:   SummaryPrompt(p.Description, history),
			question: "Summary and recommendation",
		})
	}
	replies := m.fanOut(ctx, tasks, m.cfg.SummaryTimeout)

	recs := make([]string, 0, len(replies))
	entries := make([]transcript.Entry, 0, len(replies))
	for _, r := range replies {
		rec := r.result.Text
		if r.result.Failed {
			rec = vote.NoComment
		}
		recs = append(recs, rec)
		m.mu.Lock()
		m.outcome.Recommendations[r.persona.ID] = rec
		m.mu.Unlock()
		entries = append(entries, m.entry(r, StateVote, summaryRound))
	}
	m.appendEntries(ctx, entries...)

	ballot := vote.Ballot(recs, m.cfg.Ballot)
	m.mu.Lock()
	m.outcome.Ballot = ballot
	m.mu.Unlock()
	if len(ballot) == 0 {
		logger.Warn().Msg("No substantial recommendations to vote on")
	} else if err := m.castVotes(ctx, personas, ballot); err != nil {
		return err
	}

	if m.cfg.ActionItems {
		m.synthesizeActions(ctx)
	}
	return nil
}

// castVotes asks the user and then every persona to pick from ballot. Each
// persona casts exactly one vote: a failed or unreadable answer counts for
// the first entry.
func (m *Meeting) castVotes(ctx context.Context, personas []persona.Persona, ballot []string) error {
	logger := tracing.LoggerFromContext(ctx, m.logger)

	external, err := m.cfg.Decider.Choose(ctx, VoteQuestion, ballot)
	if err != nil {
		return fmt.Errorf("vote prompt: %w", err)
	}
	if external == Exit {
		return errExit
	}
	externalAt := m.cfg.Now()

	tasks := make([]task, 0, len(personas))
	for i, p := range personas {
		tasks = append(tasks, task{
			persona:  p,
			index:    i,
			prompt:   vote.Prompt(p.Name, ballot),
			question: "Vote",
		})
	}
	replies := m.fanOut(ctx, tasks, m.cfg.VoteTimeout)

	votes := []vote.Vote{{Voter: ExternalVoter, Choice: external}}
	entries := make([]transcript.Entry, 0, len(replies)+1)
	for _, r := range replies {
		choice := ballot[vote.ParseChoice(r.result.Text, len(ballot))]
		votes = append(votes, vote.Vote{Voter: r.persona.ID, Choice: choice})

		e := m.entry(r, StateVote, voteRound)
		e.Response = choice
		entries = append(entries, e)
	}
	entries = append(entries, transcript.Entry{
		ID:           transcript.NewID(),
		MeetingID:    m.id,
		PersonaID:    ExternalVoter,
		PersonaName:  ExternalVoter,
		Phase:        string(StateVote),
		Round:        voteRound,
		PersonaIndex: len(personas),
		Question:     VoteQuestion,
		Response:     external,
		Timestamp:    externalAt,
	})
	m.appendEntries(ctx, entries...)

	result := vote.Tally(votes, external)
	m.mu.Lock()
	m.outcome.ExternalVote = external
	m.outcome.Tally = result
	m.mu.Unlock()

	logger.Info().
		Int("votes", result.Count).
		Int("ballot", len(ballot)).
		Bool("tied", len(result.Tied) > 0).
		Msg("Vote tallied")
	return nil
}

// synthesizeActions turns the discussion into concrete next steps with one
// call. A failed call is kept on the outcome and logged; it never fails the phase.
func (m *Meeting) synthesizeActions(ctx context.Context) {
	logger := tracing.LoggerFromContext(ctx, m.logger)

	model := m.cfg.ActionModel
	if model == "" {
		if reviewer, ok := m.roster.FinalReviewer(); ok {
			model = reviewer.Model
		} else {
			model = m.roster.All()[0].Model
		}
	}

	replies := m.fanOut(ctx, []task{{
		persona:  persona.Persona{ID: SynthesisID, Name: "Synthesis", Model: model},
		index:    0,
		prompt:   ActionPrompt(m.Context(), m.roster, m.memory),
		question: "Actionable recommendations",
	}}, m.cfg.Timeout)
	r := replies[0]

	plan := &ActionPlan{Text: r.result.Text, Failed: r.result.Failed}
	if !plan.Failed {
		plan.Items = extract.ParseActions(r.result.Text)
	}
	m.mu.Lock()
	m.outcome.Actions = plan
	m.mu.Unlock()
	m.appendEntries(ctx, m.entry(r, StateVote, actionRound))

	if plan.Failed {
		logger.Warn().Str("model", model).Msg("Unable to generate actionable recommendations")
		return
	}
	logger.Info().Int("items", len(plan.Items)).Msg("Actionable recommendations ready")
}

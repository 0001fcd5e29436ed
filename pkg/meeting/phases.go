package meeting

import (
	"context"
	"fmt"
	"strings"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/harun/roundtable/pkg/extract"
	"github.com/harun/roundtable/pkg/retry"
	"github.com/harun/roundtable/pkg/transcript"
)

const warmUpPrompt = "Test"

func (m *Meeting) runInit(ctx context.Context) error {
	logger := tracing.LoggerFromContext(ctx, m.logger)

	if m.cfg.Health != nil {
		report := m.cfg.Health.Report(ctx, m.roster.Models())
		if !report.Healthy() {
			logger.Warn().
				Bool("backend_up", report.BackendUp).
				Strs("missing_models", report.Missing()).
				Msg("Health check reported problems, continuing")
		}
	}

	if m.cfg.WarmUp {
		m.warmUp(ctx)
	}

	for _, q := range m.cfg.UserQuestions {
		answer, err := m.cfg.Decider.Choose(ctx, q.Prompt, q.Options)
		if err != nil {
			return fmt.Errorf("user question %q: %w", q.Prompt, err)
		}
		if answer == Exit {
			return errExit
		}
		m.mu.Lock()
		m.userCtx.Answers = append(m.userCtx.Answers, answer)
		m.mu.Unlock()
		logger.Info().Str("question", q.Prompt).Str("answer", answer).Msg("User answered")
	}

	if len(m.cfg.UserQuestions) > 0 {
		extra, err := m.cfg.Decider.Ask(ctx, AdditionalContextQuestion)
		if err != nil {
			return fmt.Errorf("additional context: %w", err)
		}
		m.mu.Lock()
		m.userCtx.Additional = strings.TrimSpace(extra)
		m.mu.Unlock()
	}

	return nil
}

// warmUp loads each distinct model with a throwaway call. Failures are logged only.
func (m *Meeting) warmUp(ctx context.Context) {
	logger := tracing.LoggerFromContext(ctx, m.logger)
	for _, model := range m.roster.Models() {
		res := m.cfg.Requester.Generate(ctx, retry.Call{
			PersonaID:  "warmup",
			Prompt:     warmUpPrompt,
			Model:      model,
			Timeout:    m.cfg.WarmUpTimeout,
			MaxRetries: 1,
		})
		if res.Failed {
			logger.Warn().Str("model", model).Msg("Failed to pre-load model")
			continue
		}
		logger.Info().Str("model", model).Dur("duration", res.Duration).Msg("Model loaded")
	}
}

func (m *Meeting) runPrep(ctx context.Context) error {
	meetingContext := m.Context()

	var tasks []task
	for i, p := range m.roster.All() {
		tasks = append(tasks, task{
			persona:  p,
			index:    i,
			prompt:   PrepPrompt(meetingContext, p.Name),
			question: "Preparation",
		})
	}

	replies := m.fanOut(ctx, tasks, m.cfg.Timeout)

	entries := make([]transcript.Entry, 0, len(replies))
	for _, r := range replies {
		m.memory.SetPreparation(r.persona.ID, r.result.Text)
		entries = append(entries, m.entry(r, StatePrep, 0))
	}
	m.appendEntries(ctx, entries...)

	logger := tracing.LoggerFromContext(ctx, m.logger)
	logger.Info().Int("personas", len(replies)).Msg("Preparation complete")
	return nil
}

func (m *Meeting) runDiscussion(ctx context.Context) error {
	logger := tracing.LoggerFromContext(ctx, m.logger)
	discussants := m.roster.Discussants()
	if len(discussants) == 0 {
		logger.Warn().Msg("No discussants besides the final reviewer, skipping discussion")
		return nil
	}

	for round := 1; round <= m.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		meetingContext := m.Context()
		tasks := make([]task, 0, len(discussants))
		for i, p := range discussants {
			tasks = append(tasks, task{
				persona:  p,
				index:    i,
				prompt:   RoundPrompt(meetingContext, p, round, m.roster, m.memory),
				question: fmt.Sprintf("Round %d", round),
			})
		}

		replies := m.fanOut(ctx, tasks, m.cfg.Timeout)

		entries := make([]transcript.Entry, 0, len(replies))
		failed := 0
		for _, r := range replies {
			m.memory.AddResponse(r.persona.ID, round, r.result.Text)
			entries = append(entries, m.entry(r, StateDiscuss, round))
			if r.result.Failed {
				failed++
			}
		}
		m.appendEntries(ctx, entries...)

		m.mu.Lock()
		m.rounds = round
		m.mu.Unlock()
		logger.Info().Int("round", round).Int("failed", failed).Msg("Discussion round complete")

		if m.cfg.AskUser {
			if err := m.askUser(ctx, round); err != nil {
				return err
			}
		}
		if m.cfg.PeerQuestions {
			m.peerQuestion(ctx, round)
		}

		if round == m.cfg.MaxRounds {
			break
		}
		answer, err := m.cfg.Decider.Choose(ctx, ContinuePrompt(round+1), []string{ContinueYes, ContinueNo})
		if err != nil {
			return fmt.Errorf("continue prompt: %w", err)
		}
		if answer == Exit || strings.Contains(answer, "No") {
			logger.Info().Int("round", round).Msg("Discussion ended early")
			break
		}
	}
	return nil
}

// askUser lets one discussant, rotating by round, put a question to the
// user. The answer joins the shared meeting context.
func (m *Meeting) askUser(ctx context.Context, round int) error {
	discussants := m.roster.Discussants()
	p := discussants[(round-1)%len(discussants)]

	replies := m.fanOut(ctx, []task{{
		persona: p,
		index:   m.roster.Len(),
		prompt:  QuestionPrompt(p.Description, m.Context()),
	}}, m.cfg.Timeout)
	r := replies[0]

	var sections extract.Sections
	if !r.result.Failed {
		sections = extract.Parse(r.result.Text)
	}
	sections = sections.WithDefaults(p.Name)

	answer, err := m.cfg.Decider.Choose(ctx, sections.Question, sections.Options)
	if err != nil {
		return fmt.Errorf("question from %s: %w", p.Name, err)
	}
	if answer == Exit {
		answer = extract.NoComment
	}

	r.question = sections.Question
	r.result.Text = answer
	m.appendEntries(ctx, m.entry(r, StateDiscuss, round))

	if answer != extract.NoComment {
		m.mu.Lock()
		m.userCtx.Answers = append(m.userCtx.Answers, fmt.Sprintf("%s -> %s", sections.Question, answer))
		m.mu.Unlock()
	}
	return nil
}

// peerQuestion lets one discussant raise a point with the others. It rotates
// one seat ahead of askUser so both never fall on the same persona when there
// are at least two discussants. The others settle on the first substantive
// option; nothing is put to the user.
func (m *Meeting) peerQuestion(ctx context.Context, round int) {
	discussants := m.roster.Discussants()
	p := discussants[round%len(discussants)]

	replies := m.fanOut(ctx, []task{{
		persona: p,
		index:   m.roster.Len() + 1,
		prompt:  PeerQuestionPrompt(p.Description, m.Context()),
	}}, m.cfg.Timeout)
	r := replies[0]

	var sections extract.Sections
	if !r.result.Failed {
		sections = extract.Parse(r.result.Text)
	}
	sections = sections.WithDefaults(p.Name)

	r.question = sections.Question
	r.result.Text = sections.FirstSubstantive()
	m.appendEntries(ctx, m.entry(r, StateDiscuss, round))
}

func (m *Meeting) runConclusion(ctx context.Context) error {
	logger := tracing.LoggerFromContext(ctx, m.logger)
	reviewer, ok := m.roster.FinalReviewer()
	if !ok {
		logger.Info().Msg("No final reviewer configured, skipping final review")
		return nil
	}

	replies := m.fanOut(ctx, []task{{
		persona:  reviewer,
		index:    m.roster.Len() - 1,
		prompt:   FinalPrompt(m.Context(), reviewer, m.roster, m.memory),
		question: "Final review",
	}}, m.cfg.Timeout)
	r := replies[0]

	m.memory.SetFinalReview(reviewer.ID, r.result.Text)
	m.mu.Lock()
	rounds := m.rounds
	m.outcome.FinalReview = r.result.Text
	m.mu.Unlock()
	m.appendEntries(ctx, m.entry(r, StateConclude, rounds))

	logger.Info().Str("persona", reviewer.ID).Bool("failed", r.result.Failed).Msg("Final review complete")
	return nil
}

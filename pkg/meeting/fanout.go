package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/harun/roundtable/pkg/persona"
	"github.com/harun/roundtable/pkg/retry"
	"github.com/harun/roundtable/pkg/transcript"
)

// task is one persona call within a phase
type task struct {
	persona  persona.Persona
	index    int
	prompt   string
	question string
}

type reply struct {
	task
	result  retry.Result
	started time.Time
}

// fanOut runs tasks with at most Parallelism in flight and returns replies in
// task order once every call has finished. A panic in any call is re-raised
// on the calling goroutine after the barrier.
func (m *Meeting) fanOut(ctx context.Context, tasks []task, timeout time.Duration) []reply {
	replies := make([]reply, len(tasks))
	sem := make(chan struct{}, m.cfg.Parallelism)

	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicked any
	)
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					if panicked == nil {
						panicked = fmt.Sprintf("persona %s: %v", t.persona.ID, r)
					}
					panicMu.Unlock()
				}
			}()

			sem <- struct{}{}
			defer func() { <-sem }()

			pctx := tracing.ForPersona(ctx, t.persona.ID)
			started := m.cfg.Now()
			res := m.cfg.Requester.Generate(pctx, retry.Call{
				PersonaID:  t.persona.ID,
				Prompt:     t.prompt,
				Model:      t.persona.Model,
				Timeout:    timeout,
				MaxRetries: m.cfg.MaxRetries,
			})
			replies[i] = reply{task: t, result: res, started: started}
		}(i, t)
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
	return replies
}

// entry converts a reply into a transcript entry
func (m *Meeting) entry(r reply, phase State, round int) transcript.Entry {
	return transcript.Entry{
		ID:           transcript.NewID(),
		MeetingID:    m.id,
		PersonaID:    r.persona.ID,
		PersonaName:  r.persona.Name,
		Phase:        string(phase),
		Round:        round,
		PersonaIndex: r.index,
		Question:     r.question,
		Response:     r.result.Text,
		Timestamp:    r.started,
		Duration:     r.result.Duration,
		Attempts:     r.result.Attempts,
		Cached:       r.result.Cached,
		Failed:       r.result.Failed,
	}
}

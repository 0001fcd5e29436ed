package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "roundtable.commandqueue"

// ErrClosed is returned for tasks enqueued after or pending during Close
var ErrClosed = errors.New("command queue closed")

// Task represents an operation executed within a lane
type Task func(ctx context.Context) (any, error)

type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	result     chan taskResult
}

type taskResult struct {
	value any
	err   error
}

type laneState struct {
	concurrency int
	queue       []*taskRecord
	running     int
}

// CommandQueue provides lane-based task serialization with concurrency control
type CommandQueue struct {
	mu                 sync.Mutex
	lanes              map[string]*laneState
	defaultConcurrency int
	taskIDSeq          int
	closed             bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

// New creates a CommandQueue whose lanes run one task at a time
func New(logger zerolog.Logger) *CommandQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &CommandQueue{
		lanes:              make(map[string]*laneState),
		defaultConcurrency: 1,
		ctx:                ctx,
		cancel:             cancel,
		logger:             logger,
	}
}

// Enqueue adds a task to lane and blocks until it has run or ctx is done.
// A task whose context is cancelled while queued never runs.
func (cq *CommandQueue) Enqueue(ctx context.Context, lane string, task Task) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return nil, ErrClosed
	}
	cq.taskIDSeq++
	record := &taskRecord{
		id:         fmt.Sprintf("%s-%d", lane, cq.taskIDSeq),
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}
	ls := cq.laneLocked(lane)
	ls.queue = append(ls.queue, record)
	queueSize := len(ls.queue)
	cq.pumpLocked(lane, ls)
	cq.mu.Unlock()

	cq.logger.Debug().
		Str("lane", lane).
		Str("taskId", record.id).
		Int("queueSize", queueSize).
		Msg("Task enqueued")

	select {
	case res := <-record.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// laneLocked returns the lane state, creating it if needed. cq.mu must be held.
func (cq *CommandQueue) laneLocked(lane string) *laneState {
	ls, ok := cq.lanes[lane]
	if !ok {
		ls = &laneState{concurrency: cq.defaultConcurrency}
		cq.lanes[lane] = ls
	}
	return ls
}

// pumpLocked starts queued tasks while the lane has capacity. cq.mu must be held.
func (cq *CommandQueue) pumpLocked(lane string, ls *laneState) {
	for ls.running < ls.concurrency && len(ls.queue) > 0 {
		record := ls.queue[0]
		ls.queue = ls.queue[1:]

		if err := record.ctx.Err(); err != nil {
			record.result <- taskResult{err: err}
			continue
		}

		ls.running++
		cq.wg.Add(1)
		go cq.executeTask(lane, record)
	}

	if ls.running == 0 && len(ls.queue) == 0 {
		delete(cq.lanes, lane)
	}
}

func (cq *CommandQueue) executeTask(lane string, record *taskRecord) {
	defer cq.wg.Done()

	taskCtx, span := tracing.StartSpan(
		record.ctx,
		tracerName,
		"commandqueue.execute_task",
		attribute.String("lane", lane),
		attribute.String("task_id", record.id),
	)
	defer span.End()

	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(cq.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	wait := time.Since(record.enqueuedAt)
	start := time.Now()
	value, err := record.task(runCtx)
	duration := time.Since(start)

	record.result <- taskResult{value: value, err: err}

	logger := tracing.LoggerFromContext(taskCtx, cq.logger)
	if err != nil {
		tracing.RecordError(span, err)
		logger.Debug().
			Str("lane", lane).
			Str("taskId", record.id).
			Dur("wait", wait).
			Dur("duration", duration).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("lane", lane).
			Str("taskId", record.id).
			Dur("wait", wait).
			Dur("duration", duration).
			Msg("Task completed")
	}

	cq.mu.Lock()
	if ls, ok := cq.lanes[lane]; ok {
		ls.running--
		cq.pumpLocked(lane, ls)
	}
	cq.mu.Unlock()
}

// Stats is a point-in-time view of the queue
type Stats struct {
	Lanes   int `json:"lanes"`
	Queued  int `json:"queued"`
	Running int `json:"running"`
}

// Stats counts active lanes and their queued and running tasks
func (cq *CommandQueue) Stats() Stats {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	st := Stats{Lanes: len(cq.lanes)}
	for _, ls := range cq.lanes {
		st.Queued += len(ls.queue)
		st.Running += ls.running
	}
	return st
}

// Close rejects queued tasks, cancels running ones and waits for them to return
func (cq *CommandQueue) Close() error {
	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return nil
	}
	cq.closed = true
	for _, ls := range cq.lanes {
		for _, record := range ls.queue {
			record.result <- taskResult{err: ErrClosed}
		}
		ls.queue = nil
	}
	cq.mu.Unlock()

	cq.cancel()
	cq.wg.Wait()
	return nil
}

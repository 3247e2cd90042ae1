package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"codearena/internal/app/service"

	"go.uber.org/zap"
)

// JudgeQueue is the worker-side view of the judging queue. Dequeue
// returns ("", nil) when the wait times out.
type JudgeQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
}

// JudgeWorker runs a pool of goroutines feeding the dispatcher from
// the judging queue. Many submissions may be judged concurrently; the
// state machine's status check resolves any race with manual verdicts.
type JudgeWorker struct {
	queue      JudgeQueue
	dispatcher *service.JudgeDispatcher
	workers    int
	logger     *zap.Logger
}

func NewJudgeWorker(queue JudgeQueue, dispatcher *service.JudgeDispatcher, workers int, logger *zap.Logger) *JudgeWorker {
	if workers < 1 {
		workers = 1
	}
	return &JudgeWorker{
		queue:      queue,
		dispatcher: dispatcher,
		workers:    workers,
		logger:     logger,
	}
}

// Start blocks until ctx is cancelled and all workers have drained.
func (w *JudgeWorker) Start(ctx context.Context) {
	w.logger.Info("judge workers starting", zap.Int("count", w.workers))

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.run(ctx, id)
		}(i)
	}
	wg.Wait()
	w.logger.Info("judge workers stopped")
}

func (w *JudgeWorker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		submissionID, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("failed to dequeue judging job", zap.Int("worker", id), zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}
		if submissionID == "" {
			continue
		}

		// Runner failures are contained here: the submission is already
		// FAILED, the error is only for operators.
		if err := w.dispatcher.Dispatch(ctx, submissionID); err != nil {
			w.logger.Error("judging attempt failed",
				zap.Int("worker", id),
				zap.String("submission_id", submissionID),
				zap.Error(err))
		}
	}
}

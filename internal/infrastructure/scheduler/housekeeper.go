package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper drops expired sessions
type SessionSweeper interface {
	Sweep(ctx context.Context) int
}

// PreviewCleaner deletes old preview files
type PreviewCleaner interface {
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// Task is one periodic housekeeping job
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Housekeeper runs housekeeping tasks on their own tickers
type Housekeeper struct {
	tasks  []Task
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewHousekeeper creates a housekeeper. Tasks without a positive interval
// only run through RunNow.
func NewHousekeeper(logger *zap.Logger, tasks ...Task) *Housekeeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Housekeeper{
		tasks:  tasks,
		logger: logger,
	}
}

// SessionSweepTask sweeps expired sessions every interval
func SessionSweepTask(sweeper SessionSweeper, interval time.Duration, logger *zap.Logger) Task {
	return Task{
		Name:     "session-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			if removed := sweeper.Sweep(ctx); removed > 0 && logger != nil {
				logger.Info("Expired sessions swept", zap.Int("removed", removed))
			}
			return nil
		},
	}
}

// PreviewCleanupTask deletes preview PDFs older than maxAge every interval
func PreviewCleanupTask(cleaner PreviewCleaner, maxAge, interval time.Duration, logger *zap.Logger) Task {
	return Task{
		Name:     "preview-cleanup",
		Interval: interval,
		Run: func(ctx context.Context) error {
			removed, err := cleaner.CleanupOlderThan(ctx, maxAge)
			if removed > 0 && logger != nil {
				logger.Info("Old previews deleted", zap.Int("removed", removed), zap.Duration("max_age", maxAge))
			}
			return err
		},
	}
}

// Start runs every task once and then on its ticker
func (h *Housekeeper) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return nil
	}
	h.isRunning = true
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	h.RunNow(ctx)

	for _, task := range h.tasks {
		if task.Interval <= 0 {
			continue
		}
		h.wg.Add(1)
		go h.runLoop(ctx, task)
	}

	h.logger.Info("Housekeeper started", zap.Int("tasks", len(h.tasks)))
	return nil
}

// Stop stops the housekeeper
func (h *Housekeeper) Stop(ctx context.Context) error {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return nil
	}
	h.isRunning = false
	h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Housekeeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs every task once, in order
func (h *Housekeeper) RunNow(ctx context.Context) {
	for _, task := range h.tasks {
		h.run(ctx, task)
	}
}

func (h *Housekeeper) runLoop(ctx context.Context, task Task) {
	defer h.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.run(ctx, task)
		}
	}
}

func (h *Housekeeper) run(ctx context.Context, task Task) {
	if err := task.Run(ctx); err != nil {
		h.logger.Warn("Housekeeping task failed",
			zap.String("task", task.Name),
			zap.Error(err),
		)
	}
}

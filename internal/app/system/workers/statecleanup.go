package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredStateStore removes login state tokens past their expiry.
type ExpiredStateStore interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// StateCleanup is a background worker that deletes expired OAuth state
// tokens. The collection also carries a TTL index, but MongoDB's TTL monitor
// runs only once a minute and may lag under load.
type StateCleanup struct {
	store    ExpiredStateStore
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewStateCleanup creates a worker that sweeps every interval.
func NewStateCleanup(store ExpiredStateStore, logger *zap.Logger, interval time.Duration) *StateCleanup {
	return &StateCleanup{
		store:    store,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *StateCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("oauth state cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *StateCleanup) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("oauth state cleanup worker stopped")
	})
}

func (w *StateCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one cleanup pass.
func (w *StateCleanup) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.store.CleanupExpired(ctx)
	if err != nil {
		w.log.Error("failed to delete expired oauth states", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("deleted expired oauth states", zap.Int64("count", count))
	}
}

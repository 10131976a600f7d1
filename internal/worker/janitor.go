package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Evicter drops stale state and reports how many entries it removed.
type Evicter interface {
	Evict(ctx context.Context) (int, error)
}

// Janitor runs every registered Evicter on its own ticker goroutine.
type Janitor struct {
	logger   *zap.Logger
	interval time.Duration
	targets  map[string]Evicter
	wg       sync.WaitGroup
	stop     chan struct{}
	once     sync.Once
}

func NewJanitor(logger *zap.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		logger:   logger,
		interval: interval,
		targets:  make(map[string]Evicter),
		stop:     make(chan struct{}),
	}
}

// Register adds a target. It must be called before Start.
func (j *Janitor) Register(name string, e Evicter) {
	j.targets[name] = e
}

func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting janitor", zap.Int("targets", len(j.targets)), zap.Duration("interval", j.interval))

	for name, e := range j.targets {
		j.wg.Add(1)
		go j.run(ctx, name, e)
	}
}

func (j *Janitor) Stop() {
	j.once.Do(func() {
		j.logger.Info("Stopping janitor...")
		close(j.stop)
		j.wg.Wait()
		j.logger.Info("Janitor stopped")
	})
}

func (j *Janitor) run(ctx context.Context, name string, e Evicter) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.Evict(ctx)
			if err != nil {
				j.logger.Error("eviction failed", zap.String("target", name), zap.Error(err))
				continue
			}
			if n > 0 {
				j.logger.Info("evicted", zap.String("target", name), zap.Int("count", n))
			}
		}
	}
}

package dispatch

import (
	"context"
	"sync"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/queue"
)

// Pool runs a fixed number of dispatch workers. Each worker owns its own
// consumer in the same consumer group, so notifications are processed
// concurrently while commands for one notification stay ordered by
// partition key.
type Pool struct {
	size   int
	logger logger.Logger
}

func NewPool(size int, log logger.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		size:   size,
		logger: log.WithFields(map[string]interface{}{"component": "pool"}),
	}
}

// Run blocks until the context is cancelled and every worker has drained.
func (p *Pool) Run(ctx context.Context, newConsumer func() *queue.Consumer, handler queue.Handler) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		worker := i
		consumer := newConsumer()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()

			p.logger.Info("dispatch worker started", map[string]interface{}{"worker": worker})
			if err := consumer.Run(ctx, handler); err != nil && ctx.Err() == nil {
				p.logger.Error("dispatch worker stopped", map[string]interface{}{
					"worker": worker,
					"error":  err,
				})
			}
		}()
	}
	wg.Wait()
}

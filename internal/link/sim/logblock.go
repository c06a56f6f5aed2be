package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/link"
)

// logBlock delivers samples of its variables every configured period
type logBlock struct {
	driver  *Driver
	config  link.LogConfig
	handler link.LogHandler

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func (b *logBlock) Start() error {
	if !b.driver.Connected() {
		return link.ErrNotConnected
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("log block %s is already started", b.config.Name)
	}
	b.running = true

	var ctx context.Context
	ctx, b.cancel = context.WithCancel(context.Background())

	b.wg.Add(1)
	go b.run(ctx)

	return nil
}

func (b *logBlock) run(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			values := b.driver.snapshot(b.config.Variables)
			if b.handler.OnData != nil {
				b.handler.OnData(link.Sample{Timestamp: now, Config: b.config.Name, Values: values})
			}
		}
	}
}

func (b *logBlock) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.cancel()
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// fail stops the block and reports err to its error handler
func (b *logBlock) fail(err error) {
	_ = b.Stop()

	if b.handler.OnError != nil {
		b.handler.OnError(b.config.Name, err)
	}
}

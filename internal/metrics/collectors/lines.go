// Package collectors provides periodic metrics collectors.
package collectors

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/boardnode/internal/gpio"
	"github.com/smazurov/boardnode/internal/logging"
	"github.com/smazurov/boardnode/internal/metrics"
)

// DefaultSampleInterval is how often line levels are sampled.
const DefaultSampleInterval = 5 * time.Second

// LineSource lists the owned lines. *gpio.Registry satisfies it.
type LineSource interface {
	Lines() []gpio.LineInfo
}

// LineSampler exports the level of every owned GPIO line as a gauge.
type LineSampler struct {
	logger   logging.Logger
	source   LineSource
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewLineSampler creates a sampler over source. A non-positive interval
// means DefaultSampleInterval.
func NewLineSampler(source LineSource, interval time.Duration) *LineSampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &LineSampler{
		logger:   logging.GetLogger("metrics"),
		source:   source,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins sampling until ctx is canceled or Stop is called.
func (s *LineSampler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return nil
}

// Stop stops the sampler and waits for the sampling goroutine to exit.
func (s *LineSampler) Stop() error {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
	return nil
}

func (s *LineSampler) run(ctx context.Context) {
	defer close(s.done)
	s.logger.Info("Starting GPIO line sampling", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sample()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample records the current level of every owned line and returns how many
// lines were sampled.
func (s *LineSampler) Sample() int {
	lines := s.source.Lines()
	for _, l := range lines {
		metrics.SetLineLevel(l.Name, l.Owner, l.High)
	}
	return len(lines)
}

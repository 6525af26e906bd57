package sweeper

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	sweepMeter           = otel.Meter("pixpull/sweeper")
	streamsReclaimed, _  = sweepMeter.Int64Counter("sweeper.streams.reclaimed", metric.WithDescription("Streams deactivated for inactivity"))
	sweepFailures, _     = sweepMeter.Int64Counter("sweeper.failures", metric.WithDescription("Sweep runs that failed"))
	sweepDurationHist, _ = sweepMeter.Float64Histogram("sweeper.sweep.duration", metric.WithDescription("Sweep run duration in seconds"), metric.WithUnit("s"))
)

// StreamReclaimer deactivates streams idle longer than the timeout and
// releases their undelivered claims.
type StreamReclaimer interface {
	ReclaimExpired(ctx context.Context, timeout time.Duration) (int, error)
}

// Sweeper periodically reclaims expired streams so abandoned pollers do
// not hold messages or capacity slots forever.
type Sweeper struct {
	streams  StreamReclaimer
	interval time.Duration
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a sweeper that runs every interval and reclaims streams
// idle longer than timeout.
func New(streams StreamReclaimer, interval, timeout time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		streams:  streams,
		interval: interval,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Sweeper) Start() {
	log.Printf("Sweeper started: checking every %v for streams idle longer than %v", s.interval, s.timeout)

	s.wg.Add(1)
	go s.loop()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("Sweeper: shutting down")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	reclaimed, err := s.streams.ReclaimExpired(ctx, s.timeout)
	sweepDurationHist.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		sweepFailures.Add(ctx, 1)
		log.Printf("Sweeper: failed to reclaim expired streams: %v", err)
		return
	}
	if reclaimed > 0 {
		streamsReclaimed.Add(ctx, int64(reclaimed))
		log.Printf("Sweeper: reclaimed %d expired streams", reclaimed)
	}
}

// Shutdown stops the sweep loop, waiting up to timeout for an in-flight
// sweep to finish.
func (s *Sweeper) Shutdown(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Sweeper: shutdown complete")
	case <-time.After(timeout):
		log.Println("Sweeper: timeout waiting for sweep loop to stop")
	}
}

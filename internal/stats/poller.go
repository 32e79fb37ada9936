// Package stats periodically reads the tunnel backend's transfer counters
// and turns them into instantaneous throughput samples.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/kstephens0331/sacvpn-desktop/internal/core"
	"github.com/kstephens0331/sacvpn-desktop/internal/tunnel"
)

// Sample is one throughput observation.
type Sample struct {
	UploadBytesPerSec   uint64
	DownloadBytesPerSec uint64
	TotalUploadBytes    uint64
	TotalDownloadBytes  uint64
	At                  time.Time
}

// CounterReader is the slice of the tunnel backend the poller needs.
type CounterReader interface {
	ReadCounters() (tunnel.Counters, error)
}

// healthLossThreshold is the number of consecutive read failures treated
// as interface loss.
const healthLossThreshold = 3

// Poller reads counters on a fixed interval while started. A single read
// failure keeps the previous counters for the next delta; three in a row
// fire OnHealthLost once per loss episode. Callbacks run on the poller
// goroutine.
type Poller struct {
	reader   CounterReader
	interval time.Duration

	// OnSample receives each successful observation.
	OnSample func(Sample)
	// OnHealthLost fires after three consecutive read failures. Optional.
	OnHealthLost func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(reader CounterReader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{reader: reader, interval: interval}
}

// Start launches the poll loop. The first tick has no prior sample and
// reports rates of zero. Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop ends the poll loop and waits for it to exit: no callback fires
// after Stop returns. Safe to call multiple times and when not started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var (
		prev     tunnel.Counters
		prevAt   time.Time
		havePrev bool
		failures int
		lostSent bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			counters, err := p.reader.ReadCounters()
			if err != nil {
				failures++
				core.Log.Debugf("Stats", "Counter read failed (%d consecutive): %v", failures, err)
				if failures >= healthLossThreshold && !lostSent {
					lostSent = true
					core.Log.Warnf("Stats", "Counter reads failing, reporting health loss")
					if p.OnHealthLost != nil {
						p.OnHealthLost()
					}
				}
				continue
			}
			failures = 0
			lostSent = false

			sample := Sample{
				TotalUploadBytes:   counters.BytesOut,
				TotalDownloadBytes: counters.BytesIn,
				At:                 now,
			}
			if havePrev {
				elapsed := now.Sub(prevAt).Seconds()
				if elapsed > 0 {
					sample.UploadBytesPerSec = rate(counters.BytesOut, prev.BytesOut, elapsed)
					sample.DownloadBytesPerSec = rate(counters.BytesIn, prev.BytesIn, elapsed)
				}
			}
			prev = counters
			prevAt = now
			havePrev = true

			if p.OnSample != nil {
				p.OnSample(sample)
			}
		}
	}
}

// rate computes a per-second delta, clamping counter resets to zero.
func rate(now, before uint64, elapsedSec float64) uint64 {
	if now < before {
		return 0
	}
	return uint64(float64(now-before) / elapsedSec)
}

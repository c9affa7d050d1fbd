package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// stepAdvancer is the slice of the layer controller the scheduler drives
type stepAdvancer interface {
	AdvanceOneStep(ctx context.Context)
}

// Ticker abstracts time.Ticker so tests can drive ticks manually
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker with the given period
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// PlaybackScheduler advances the shown step on a fixed interval while
// playing. Changing the speed cancels the active ticker and creates a new
// one; tickers never stack.
type PlaybackScheduler struct {
	mu         sync.Mutex
	controller stepAdvancer
	newTicker  TickerFactory

	speedSeconds float64
	minSpeed     float64
	maxSpeed     float64

	playing bool
	stop    chan struct{}
}

// NewPlaybackScheduler creates a stopped scheduler
func NewPlaybackScheduler(controller stepAdvancer, minSpeed, maxSpeed, defaultSpeed float64) *PlaybackScheduler {
	return &PlaybackScheduler{
		controller:   controller,
		newTicker:    newRealTicker,
		speedSeconds: defaultSpeed,
		minSpeed:     minSpeed,
		maxSpeed:     maxSpeed,
	}
}

// TogglePlayPause flips between playing and stopped and returns the new
// playing state
func (p *PlaybackScheduler) TogglePlayPause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		p.stopLocked()
	} else {
		p.startLocked()
	}
	return p.playing
}

// Stop halts playback; stopping a stopped scheduler is a no-op
func (p *PlaybackScheduler) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		p.stopLocked()
	}
}

// Playing reports whether playback is active
func (p *PlaybackScheduler) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Speed returns the current period in seconds per step
func (p *PlaybackScheduler) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speedSeconds
}

// SetSpeed changes the playback period. While playing, the active ticker is
// cancelled and recreated with the new period; the current index is owned by
// the controller and is untouched.
func (p *PlaybackScheduler) SetSpeed(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seconds < p.minSpeed || seconds > p.maxSpeed {
		return fmt.Errorf("speed %.2fs outside allowed range [%.2f, %.2f]", seconds, p.minSpeed, p.maxSpeed)
	}
	p.speedSeconds = seconds

	if p.playing {
		p.stopLocked()
		p.startLocked()
	}
	return nil
}

func (p *PlaybackScheduler) startLocked() {
	stop := make(chan struct{})
	ticker := p.newTicker(time.Duration(p.speedSeconds * float64(time.Second)))
	p.stop = stop
	p.playing = true

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				p.controller.AdvanceOneStep(context.Background())
			}
		}
	}()
}

func (p *PlaybackScheduler) stopLocked() {
	close(p.stop)
	p.stop = nil
	p.playing = false
}

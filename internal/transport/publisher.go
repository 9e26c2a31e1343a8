// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tonewatch/internal/detector"
	"tonewatch/internal/log"
)

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = 50 * time.Millisecond

// Publisher periodically copies the detector state and sends it to every
// transport. It runs in its own goroutine managed by Start and Stop.
type Publisher struct {
	source     SnapshotSource
	transports []Transport
	interval   time.Duration
	now        func() time.Time

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // guards ticker and doneChan

	sequence uint32
	snap     detector.Snapshot // reused every tick
	update   Update
}

func NewPublisher(interval time.Duration, source SnapshotSource, transports ...Transport) (*Publisher, error) {
	if source == nil {
		return nil, fmt.Errorf("publisher: snapshot source cannot be nil")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("publisher: no transports configured")
	}
	if interval <= 0 {
		log.Warnf("Publisher: Invalid interval %s, defaulting to %s", interval, DefaultInterval)
		interval = DefaultInterval
	}
	return &Publisher{
		source:     source,
		transports: transports,
		interval:   interval,
		now:        time.Now,
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("Publisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("Publisher: Started (interval %s, %d transports)", p.interval, len(p.transports))
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("Publisher: Stopped after %d updates", p.sequence)
}

// publish takes one snapshot and fans it out. Transport errors are logged
// and do not stop the others.
func (p *Publisher) publish() {
	p.source.SnapshotInto(&p.snap)
	p.sequence++
	p.update = Update{Sequence: p.sequence, Timestamp: p.now(), Snapshot: &p.snap}

	for _, t := range p.transports {
		if err := t.Send(&p.update); err != nil && !errors.Is(err, ErrClosed) {
			log.Warnf("Publisher: %T send failed: %v", t, err)
		}
	}
}

// Close stops publishing and closes every transport.
func (p *Publisher) Close() error {
	p.Stop()
	var errs []error
	for _, t := range p.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

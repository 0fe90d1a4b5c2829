// Package daemon implements the kernel-pool replenishment loop: poll
// /proc/sys/kernel/random/entropy_avail, harvest fresh bytes through
// the dispatcher when the pool runs low, and inject them via
// RNDADDENTROPY, backing off exponentially on injection failure.
package daemon

import (
	"context"
	"time"

	"github.com/mixrand/mixrand/internal/dispatch"
	"github.com/mixrand/mixrand/internal/kernel"
	"github.com/mixrand/mixrand/internal/mixerr"
	"github.com/mixrand/mixrand/internal/trace"
	"github.com/mixrand/mixrand/internal/zeroize"
)

// State names one phase of the control loop, reported in log lines and
// available to callers that want to observe loop progress in tests.
type State int

const (
	StateIdle State = iota
	StateHarvest
	StateBackoff
	StateSleep
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateHarvest:
		return "HARVEST"
	case StateBackoff:
		return "BACKOFF"
	case StateSleep:
		return "SLEEP"
	default:
		return "UNKNOWN"
	}
}

// maxCreditBits bounds the entropy_count claimed per injection,
// matching the kernel's own internal cap on trusted input per call.
const maxCreditBits = 4096

// maxBackoffMultiple is how many multiples of the base interval the
// backoff delay may grow to before it stops doubling.
const maxBackoffMultiple = 64

// Loop drives the IDLE/HARVEST/BACKOFF/SLEEP state machine.
type Loop struct {
	dispatcher    *dispatch.Dispatcher
	injector      *kernel.Injector
	thresholdBits int
	interval      time.Duration
	batchBytes    int
	once          bool

	state State
}

// Config carries the tunables Loop needs, decoupled from the
// top-level config package so this stays testable without it.
type Config struct {
	ThresholdBits int
	IntervalSecs  int
	BatchBytes    int
	Once          bool
}

// NewLoop builds a Loop. injector may be nil only in tests that stub
// out kernel access entirely; production callers must supply one from
// kernel.OpenInjector.
func NewLoop(dispatcher *dispatch.Dispatcher, injector *kernel.Injector, cfg Config) *Loop {
	return &Loop{
		dispatcher:    dispatcher,
		injector:      injector,
		thresholdBits: cfg.ThresholdBits,
		interval:      time.Duration(cfg.IntervalSecs) * time.Second,
		batchBytes:    cfg.BatchBytes,
		once:          cfg.Once,
	}
}

// State reports the loop's current phase.
func (l *Loop) State() State { return l.state }

// creditBits computes the entropy credit claimed for a harvested batch
// of n bytes: 8 bits per byte, capped at maxCreditBits, following the
// kernel's own convention that a single RNDADDENTROPY call should not
// claim more than it plausibly could have produced.
func creditBits(n int) int {
	bits := 8 * n
	if bits > maxCreditBits {
		return maxCreditBits
	}
	return bits
}

// Run executes the control loop until ctx is canceled or, if Once is
// set, after the first successful harvest-or-idle cycle. Cancellation
// is checked at the top of every iteration and immediately after every
// sleep, so a canceled context never waits out a full interval or
// backoff delay before returning. A PrivilegeDenied injection error is
// not retryable and is returned immediately instead of entering
// BACKOFF; every other injection failure backs off and keeps looping.
func (l *Loop) Run(ctx context.Context) error {
	log := trace.FromContext(ctx).WithPrefix("DAEMON")
	backoff := l.interval

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		avail, err := kernel.ReadEntropyAvail()
		if err != nil {
			log.Warnf("entropy_avail read failed: %v", err)
			l.state = StateBackoff
			if !l.sleep(ctx, backoff) {
				return nil
			}
			backoff = growBackoff(backoff, l.interval)
			continue
		}

		if avail >= l.thresholdBits {
			l.state = StateIdle
			log.Debugf("pool at %d bits, threshold %d, idle", avail, l.thresholdBits)
			if l.once {
				return nil
			}
			if !l.sleep(ctx, l.interval) {
				return nil
			}
			continue
		}

		l.state = StateHarvest
		log.Infof("pool at %d bits, below threshold %d, harvesting %d bytes", avail, l.thresholdBits, l.batchBytes)

		batch, err := l.dispatcher.Generate(ctx, l.batchBytes)
		if err != nil {
			log.Warnf("harvest failed: %v", err)
			l.state = StateBackoff
			if !l.sleep(ctx, backoff) {
				return nil
			}
			backoff = growBackoff(backoff, l.interval)
			continue
		}

		bits := creditBits(len(batch))
		injectErr := l.injector.Inject(batch, bits)
		zeroize.Bytes(batch)

		if injectErr != nil {
			if mixerr.Is(injectErr, mixerr.PrivilegeDenied) {
				log.Error(injectErr)
				return injectErr
			}
			log.Warnf("injection failed: %v", injectErr)
			l.state = StateBackoff
			if !l.sleep(ctx, backoff) {
				return nil
			}
			backoff = growBackoff(backoff, l.interval)
			continue
		}

		log.Infof("injected %d bits", bits)
		backoff = l.interval
		l.state = StateSleep
		if l.once {
			return nil
		}
		if !l.sleep(ctx, l.interval) {
			return nil
		}
	}
}

// growBackoff doubles d, capped at maxBackoffMultiple times base.
func growBackoff(d, base time.Duration) time.Duration {
	d *= 2
	if ceiling := base * maxBackoffMultiple; d > ceiling {
		return ceiling
	}
	return d
}

// sleep waits for d or ctx cancellation, whichever comes first,
// reporting false if it was canceled.
func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

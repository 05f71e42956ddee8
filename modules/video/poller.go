package video

import (
	"context"
	"errors"
	"log"
	"time"

	"maxprompt-server/modules/common/apierr"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultPollCeiling  = 30 * time.Minute
)

// SleepFunc waits for d or returns early with the context's error.
// Injectable so tests can run the loop without real time passing.
type SleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollerConfig tunes the wait loop. A zero Interval means the default
// 10 seconds; a negative Ceiling disables the safety limit.
type PollerConfig struct {
	Interval time.Duration
	Ceiling  time.Duration
}

// Poller drives one operation to completion. Polls are strictly
// sequential: the next status check starts only after the previous one
// has returned.
type Poller struct {
	upstream Upstream
	interval time.Duration
	ceiling  time.Duration
	sleep    SleepFunc
}

func NewPoller(upstream Upstream, cfg PollerConfig) *Poller {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultPollInterval
	}
	ceiling := cfg.Ceiling
	if ceiling == 0 {
		ceiling = defaultPollCeiling
	}
	return &Poller{
		upstream: upstream,
		interval: interval,
		ceiling:  ceiling,
		sleep:    realSleep,
	}
}

// KeyFunc returns the credential for the next vendor call. The poller
// calls it before every poll so a key saved mid-job takes effect without
// restarting the job.
type KeyFunc func() string

// Wait polls until the operation completes, the ceiling trips, or the
// context is cancelled. An operation that is already done waits zero
// times and polls zero times. onPoll fires after every completed poll
// with the running count.
func (p *Poller) Wait(ctx context.Context, key KeyFunc, op Operation, onPoll func(pollCount int)) (Operation, error) {
	elapsed := time.Duration(0)
	pollCount := 0

	for !op.Done() {
		if p.ceiling > 0 && elapsed >= p.ceiling {
			return nil, apierr.New(apierr.KindUpstream,
				"video generation did not finish within %s", p.ceiling)
		}

		if err := p.sleep(ctx, p.interval); err != nil {
			return nil, apierr.Wrap(apierr.KindTransport, err, "polling interrupted")
		}
		elapsed += p.interval

		next, err := p.upstream.Poll(ctx, key(), op)
		if err != nil {
			return nil, apierr.Classify(err)
		}
		op = next
		pollCount++
		log.Printf("⏳ [Video] Poll %d for operation %s (done=%v)", pollCount, op.Name(), op.Done())
		if onPoll != nil {
			onPoll(pollCount)
		}
	}

	if msg := op.FailureMessage(); msg != "" {
		return nil, apierr.New(kindForFailure(msg), "%s", msg)
	}
	return op, nil
}

// kindForFailure classifies a terminal operation error by its message,
// since the vendor reports these inside a completed operation rather than
// as an HTTP error.
func kindForFailure(msg string) apierr.Kind {
	switch apierr.Classify(errors.New(msg)).Kind {
	case apierr.KindQuota:
		return apierr.KindQuota
	case apierr.KindAuth:
		return apierr.KindAuth
	default:
		return apierr.KindUpstream
	}
}

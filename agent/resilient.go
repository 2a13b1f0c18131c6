package agent

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"goa.design/clue/log"
	"golang.org/x/time/rate"
)

// Policy configures Resilient.
type Policy struct {
	// Timeout of a single gateway call, zero means none.
	Timeout time.Duration
	// MaxAttempts is the number of calls made for a transient error,
	// retries included. Values below 1 mean a single attempt.
	MaxAttempts int
	// BaseDelay is the delay before the first retry, doubled at each retry
	// up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter adds up to this fraction of the delay at random.
	Jitter float64
	// RateLimit caps the gateway calls per second, zero means no limit.
	RateLimit float64
}

// DefaultPolicy is a reasonable Policy for remote backends.
var DefaultPolicy = Policy{
	Timeout:     60 * time.Second,
	MaxAttempts: 3,
	BaseDelay:   250 * time.Millisecond,
	MaxDelay:    4 * time.Second,
	Jitter:      0.2,
}

type resilient struct {
	next    Gateway
	policy  Policy
	limiter *rate.Limiter
	sleep   func(context.Context, time.Duration) error
}

// Resilient wraps gw with a timeout per call, a bounded exponential backoff
// retry of transient backend errors, and an optional rate limit.
func Resilient(gw Gateway, p Policy) Gateway {
	r := &resilient{next: gw, policy: p, sleep: sleep}
	if p.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(p.RateLimit), 1)
	}
	return r
}

func (r *resilient) Complete(ctx context.Context, msgs []Message, tools []ToolSpec) (Response, error) {
	attempts := max(r.policy.MaxAttempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := backoff(r.policy, i-1)
			log.Warn(ctx,
				log.KV{K: "msg", V: "retrying gateway call"},
				log.KV{K: "attempt", V: i + 1},
				log.KV{K: "delay", V: delay.String()},
				log.KV{K: "err", V: err.Error()})
			if serr := r.sleep(ctx, delay); serr != nil {
				return Response{}, err
			}
		}
		var resp Response
		resp, err = r.once(ctx, msgs, tools)
		if err == nil {
			return resp, nil
		}
		if !retryable(ctx, err) {
			break
		}
	}
	return Response{}, err
}

func (r *resilient) once(ctx context.Context, msgs []Message, tools []ToolSpec) (Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return Response{}, &BackendError{Backend: "ratelimit", Err: err}
		}
	}
	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}
	resp, err := r.next.Complete(ctx, msgs, tools)
	if err == nil {
		return resp, nil
	}
	var be *BackendError
	if !errors.As(err, &be) {
		be = &BackendError{Backend: "gateway", Err: err}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		be.Transient = true
	}
	return Response{}, be
}

// retryable reports whether err is a transient backend error and the caller
// is still waiting.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var be *BackendError
	return errors.As(err, &be) && be.Transient
}

func backoff(p Policy, retry int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(retry)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(float64(d) * p.Jitter * rand.Float64())
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

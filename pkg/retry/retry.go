package retry

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxBackoffIncrement caps the delay growth between attempts.
const MaxBackoffIncrement = 60 * time.Second

// Policy describes how many times an action is retried and how long to wait
// between attempts. The delay grows linearly by BackoffIncrement after each
// failed attempt.
type Policy struct {
	MaxRetries       int           `mapstructure:"max_retries"`
	InitialDelay     time.Duration `mapstructure:"initial_delay"`
	BackoffIncrement time.Duration `mapstructure:"backoff_increment"`
}

// DefaultPolicy returns the policy used for uploads, webhooks and retention:
// 5 retries, 3s between attempts, no growth.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:       5,
		InitialDelay:     3 * time.Second,
		BackoffIncrement: 0,
	}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial delay must be >= 0, got %v", p.InitialDelay)
	}
	if p.BackoffIncrement < 0 || p.BackoffIncrement > MaxBackoffIncrement {
		return fmt.Errorf("backoff increment must be within [0s, %v], got %v", MaxBackoffIncrement, p.BackoffIncrement)
	}
	return nil
}

// Delays returns the sleep durations used before each retry, in order.
func (p Policy) Delays() []time.Duration {
	delays := make([]time.Duration, 0, p.MaxRetries)
	delay := p.InitialDelay
	for i := 0; i < p.MaxRetries; i++ {
		delays = append(delays, delay)
		delay += p.BackoffIncrement
	}
	return delays
}

// Option configures an Executor
type Option func(*Executor)

// WithSleep replaces time.Sleep, mainly for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithLogger sets the logger used to report failed attempts.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// Executor runs an action, retrying it according to its Policy. It blocks for
// the whole retry cycle and has no cancellation path of its own.
type Executor struct {
	policy Policy
	sleep  func(time.Duration)
	logger logrus.FieldLogger
}

// NewExecutor creates an executor for the given policy
func NewExecutor(policy Policy, opts ...Option) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	e := &Executor{
		policy: policy,
		sleep:  time.Sleep,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the executor's retry policy
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do invokes action until it succeeds or the policy is exhausted. Failures
// before the last one are logged and dropped; the last one is returned as is.
func (e *Executor) Do(operation string, action func() error) error {
	delay := e.policy.InitialDelay

	for attempt := 1; ; attempt++ {
		err := action()
		if err == nil {
			if attempt > 1 {
				e.logger.WithFields(logrus.Fields{
					"operation": operation,
					"attempt":   attempt,
				}).Info("Operation succeeded after retry")
			}
			return nil
		}

		if attempt > e.policy.MaxRetries {
			return err
		}

		e.logger.WithFields(logrus.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay,
		}).WithError(err).Warn("Operation failed, retrying")

		e.sleep(delay)
		delay += e.policy.BackoffIncrement
	}
}

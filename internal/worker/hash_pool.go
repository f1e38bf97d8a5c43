package worker

import (
	"context"
	"errors"
	"time"
)

// ErrHashTimeout marks a hashing job that exceeded its deadline. It is a
// transient failure, not an authentication failure; callers should retry with
// backoff.
var ErrHashTimeout = errors.New("hashing job timed out")

// HashPool runs CPU-bound password hashing and key derivation on a bounded set
// of workers so a login storm cannot starve latency-sensitive request
// dispatch.
type HashPool struct {
	slots   chan struct{}
	timeout time.Duration
}

// NewHashPool caps concurrent hashing jobs at workers and bounds each job with
// timeout.
func NewHashPool(workers int, timeout time.Duration) *HashPool {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HashPool{slots: make(chan struct{}, workers), timeout: timeout}
}

// Do runs fn on the pool, waiting for a free slot. Both the wait and the job
// itself count against the deadline.
func (p *HashPool) Do(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ErrHashTimeout
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-p.slots }()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The job keeps running to completion in the background; its slot is
		// released then. The caller just stops waiting.
		return ErrHashTimeout
	}
}

// HashString runs a string-producing job on the pool.
func (p *HashPool) HashString(ctx context.Context, fn func() (string, error)) (string, error) {
	var out string
	err := p.Do(ctx, func() error {
		var innerErr error
		out, innerErr = fn()
		return innerErr
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

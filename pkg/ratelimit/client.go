package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const maxRetries = 3

// ErrExhausted is returned after a call keeps hitting the provider's quota
// past the retry budget.
var ErrExhausted = errors.New("rate limit retries exhausted")

// RateLimitError signals a "too many requests" response from an upstream API.
// RetryAfter carries the server-suggested wait; zero falls back to one second.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// endpointState tracks backoff bookkeeping per (user, endpoint) key
type endpointState struct {
	nextAllowed time.Time
	retryCount  int
}

// Client wraps outbound calls to quota-limited APIs with exponential backoff.
// State is kept per key so one throttled endpoint never delays another user
// or endpoint.
type Client struct {
	mu     sync.Mutex
	states map[string]*endpointState

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient() *Client {
	return &Client{
		states: make(map[string]*endpointState),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Key builds the per-user per-endpoint state key
func Key(userID, endpoint string) string {
	return userID + ":" + endpoint
}

// Call invokes fn, waiting out any stored backoff window first. When fn
// returns a *RateLimitError the wait is the server-suggested delay multiplied
// by 2^retryCount; after maxRetries the call fails with ErrExhausted. Any
// success clears the stored state for the key.
func (c *Client) Call(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	for {
		if err := c.waitIfThrottled(ctx, key); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			c.clear(key)
			return nil
		}

		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) {
			return err
		}

		retryCount, giveUp := c.recordThrottle(key, rlErr.RetryAfter)
		if giveUp {
			c.clear(key)
			return fmt.Errorf("%w: %s", ErrExhausted, key)
		}
		log.Printf("[RateLimit] %s throttled, retry %d scheduled", key, retryCount)
	}
}

func (c *Client) waitIfThrottled(ctx context.Context, key string) error {
	c.mu.Lock()
	var wait time.Duration
	if state, ok := c.states[key]; ok {
		wait = state.nextAllowed.Sub(c.now())
	}
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	return c.sleep(ctx, wait)
}

// recordThrottle stores the next allowed time for the key and reports whether
// the retry budget is spent. The backoff doubles with each consecutive hit.
func (c *Client) recordThrottle(key string, retryAfter time.Duration) (int, bool) {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.states[key]
	if !ok {
		state = &endpointState{}
		c.states[key] = state
	}

	if state.retryCount >= maxRetries {
		return state.retryCount, true
	}

	wait := retryAfter * time.Duration(1<<uint(state.retryCount))
	state.nextAllowed = c.now().Add(wait)
	state.retryCount++
	return state.retryCount, false
}

func (c *Client) clear(key string) {
	c.mu.Lock()
	delete(c.states, key)
	c.mu.Unlock()
}

// RetryCount exposes the stored retry count for a key, zero when cleared
func (c *Client) RetryCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[key]; ok {
		return state.retryCount
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

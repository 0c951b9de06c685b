package hc05

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock records waits instead of sleeping.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
	// onSleep runs after a wait is recorded, with the number of recorded
	// waits of the same duration.
	onSleep func(d time.Duration, n int)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(d, n)
	}
	return ctx.Err()
}

func (c *fakeClock) count(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

type transportDialer struct {
	transport Transport
}

func (d transportDialer) Dial(context.Context) (Transport, error) {
	return d.transport, nil
}

func newTestModule(t *testing.T, transport Transport, clock Clock, opts ...func(*ConfigBuilder)) *Module {
	t.Helper()

	b := NewConfigBuilder().
		WithDialer(transportDialer{transport}).
		WithClock(clock)
	for _, opt := range opts {
		opt(b)
	}

	config, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	m, err := New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	return m
}

const (
	addrA = Address("2C54,91,88C9FE")
	addrB = Address("1234,56,ABCDEF")

	okReply = "OK\r\n"
)

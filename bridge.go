package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"i4.energy/across/btlink/hc05"
)

const receiveBufSize = 256

// Device is the part of the module driver the bridge pumps use.
type Device interface {
	Connect(ctx context.Context) error
	Receive(ctx context.Context, p []byte) (int, error)
	Send(ctx context.Context, p []byte) error
}

// Bridge copies data received over the link to Out and, when In is set,
// forwards In line by line to the remote device. The link is
// re-established whenever it drops.
type Bridge struct {
	Logger *slog.Logger
	Device Device
	Out    io.Writer
	In     io.Reader
}

// Run blocks until ctx is done or a pump fails.
func (b *Bridge) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.receive(ctx)
	})
	if b.In != nil {
		g.Go(func() error {
			return b.forward(ctx)
		})
	}

	return g.Wait()
}

func (b *Bridge) receive(ctx context.Context) error {
	buf := make([]byte, receiveBufSize)
	for {
		b.Logger.Info("Connecting")
		if err := b.Device.Connect(ctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		for {
			n, err := b.Device.Receive(ctx, buf)
			if errors.Is(err, hc05.ErrLinkLost) || errors.Is(err, hc05.ErrNotConnected) {
				b.Logger.Warn("Link lost, reconnecting", "error", err)
				break
			}
			if err != nil {
				return fmt.Errorf("receive: %w", err)
			}
			if n > 0 {
				if _, err := b.Out.Write(buf[:n]); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

// forward sends each input line, newline included. Lines read while the
// link is down are dropped.
func (b *Bridge) forward(ctx context.Context) error {
	lines := make(chan []byte)

	// The scanner cannot be interrupted, so it runs on its own and is left
	// behind on shutdown.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(b.In)
		for scanner.Scan() {
			line := append(bytes.Clone(scanner.Bytes()), '\n')
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			b.Logger.Error("Failed to read input", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				b.Logger.Info("Input closed")
				return nil
			}
			err := b.Device.Send(ctx, line)
			if errors.Is(err, hc05.ErrNotConnected) {
				b.Logger.Warn("Dropping input, link not connected", "length", len(line))
				continue
			}
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

package hc05

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=hc05

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to an
// HC-05 module.
//
// Besides plain I/O the driver needs to change the line speed while it
// probes for the module and to bound how long a read may block. A read
// that times out returns 0 bytes and a nil error, which is what
// go.bug.st/serial does.
type Transport interface {
	io.ReadWriteCloser
	// SetBaudRate reconfigures the line speed.
	SetBaudRate(rate int) error
	// SetReadTimeout bounds how long a single Read blocks.
	SetReadTimeout(timeout time.Duration) error
}

// Dialer opens a Transport to the module.
//
// Dialer abstracts how the link is created (a serial port, a test double)
// and is only used during Module construction.
type Dialer interface {
	// Dial creates and returns a connected Transport. It returns an error
	// if the transport cannot be established.
	Dial(ctx context.Context) (Transport, error)
}

// DefaultReadTimeout is the per-read timeout applied when the port is
// opened.
const DefaultReadTimeout = 200 * time.Millisecond

// SerialDialer opens the module over a serial port using go.bug.st/serial.
type SerialDialer struct {
	PortName string
	// Mode is the initial line setting. The zero value means 38400 8N1,
	// the module's command-mode default.
	Mode *serial.Mode
	// ReadTimeout defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Dial implements Dialer.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("hc05: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("hc05: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = defaultMode(38400)
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("hc05: open %s: %w", d.PortName, err)
	}

	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("hc05: set read timeout: %w", err)
	}

	return &serialTransport{Port: port, mode: *mode}, nil
}

func defaultMode(rate int) *serial.Mode {
	return &serial.Mode{
		BaudRate: rate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
}

// serialTransport adapts a serial.Port to Transport.
type serialTransport struct {
	serial.Port
	mode serial.Mode
}

func (s *serialTransport) SetBaudRate(rate int) error {
	mode := s.mode
	mode.BaudRate = rate
	if err := s.Port.SetMode(&mode); err != nil {
		return fmt.Errorf("hc05: set baud rate %d: %w", rate, err)
	}
	s.mode = mode
	return nil
}

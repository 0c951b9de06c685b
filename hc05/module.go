package hc05

import (
	"context"
	"log/slog"
	"sync"
)

// Module drives one HC-05 style Bluetooth module over one serial link.
//
// The pairing loop (Connect) is meant to be run by a single goroutine.
// Send, Receive and State may be called concurrently with each other once
// the link is up.
type Module struct {
	// transport provides the physical connection to the module
	transport Transport
	// config contains the driver settings, defaults applied
	config Config
	logger *slog.Logger
	clock  Clock

	// ioMu serializes command exchanges on the transport
	ioMu sync.Mutex

	// mu guards the fields below
	mu       sync.Mutex
	closed   bool
	forced   override
	observed ConnectionState
	baudRate int

	// registry holds the addresses found by the last scan, or the most
	// recently used address. Only touched by the pairing loop.
	registry Registry
	session  session
}

// override is a state reported in place of the module's own answer.
type override struct {
	state  ConnectionState
	active bool
}

// session carries the pairing loop's memory between iterations. It is
// reset by Configure.
type session struct {
	// bootingUp is true until the first reconnection attempt resolves
	bootingUp bool
	// pairingRequested asks the loop to run a fresh pairing search
	pairingRequested bool
	// setupSucceeded gates Connect
	setupSucceeded bool
	// slavePolls counts the polls spent in the slave window
	slavePolls int
}

// New creates a Module with the given configuration and opens the
// transport. It does not talk to the module; call Configure next.
func New(ctx context.Context, config Config) (*Module, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Module{
		transport: transport,
		config:    config,
		logger:    config.logger,
		clock:     config.clock,
		observed:  StateUnknown,
	}, nil
}

// Close releases the transport. After Close the Module cannot be reused.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true

	if m.transport != nil {
		return m.transport.Close()
	}
	return nil
}

// State returns the last state observed by the driver without talking to
// the module.
func (m *Module) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observed
}

// BaudRate returns the line speed found by the last successful probe, or
// 0 if the module has not been found yet.
func (m *Module) BaudRate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baudRate
}

// forceState overrides the module's reported state. Forcing StateNoForce
// clears the override.
func (m *Module) forceState(s ConnectionState) {
	if s == StateNoForce {
		m.clearForcedState()
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = override{state: s, active: true}
}

func (m *Module) clearForcedState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = override{}
}

func (m *Module) forcedState() (ConnectionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forced.state, m.forced.active
}

func (m *Module) observe(s ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = s
}

func (m *Module) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

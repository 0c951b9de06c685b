package hc05

import (
	"context"
	"fmt"
	"strings"

	"i4.energy/across/btlink/at"
)

// Connect drives the module until a link to a remote device is up.
//
// On boot it first tries to relink the most recently used device. When
// the module has no paired device, or that relink fails during boot, it
// waits as a slave for a peer to pair, then scans as a master and tries
// every device found: first linking those already known to the module,
// then pairing with the others.
//
// Connect blocks until the link is established or ctx is done. It fails
// fast with ErrNotConfigured when Configure has not succeeded. Once it
// returns nil, the state stays Connected without querying the module
// until Receive reports ErrLinkLost.
func (m *Module) Connect(ctx context.Context) error {
	if !m.session.setupSucceeded {
		return ErrNotConfigured
	}

	for {
		state, err := m.currentState(ctx)
		if err != nil {
			return err
		}
		m.logger.Debug("Module state", "state", state)

		done, err := m.step(ctx, state)
		if err != nil {
			return err
		}
		if done {
			// Held until Receive reads a disconnection.
			m.forceState(StateConnected)
			m.logger.Info("Device connected", "address", m.registry.At(0))
			return nil
		}
	}
}

// step runs one transition of the pairing loop and reports whether the
// link is up.
func (m *Module) step(ctx context.Context, state ConnectionState) (bool, error) {
	switch state {
	case StateInitialized:
		return false, m.onInitialized(ctx)
	case StateSearchForPair:
		return false, m.onSearchForPair(ctx)
	case StatePairable:
		return false, nil
	case StateInquiring:
		m.logger.Warn("Module inquiring outside a search, resetting")
		m.clearForcedState()
		return false, m.restart(ctx)
	case StatePaired:
		return m.onPaired(ctx)
	case StateDisconnected:
		m.logger.Info("Disconnection detected")
		return false, m.restart(ctx)
	case StateConnected:
		return true, nil
	default:
		return false, m.clock.Sleep(ctx, m.config.retryDelay)
	}
}

func (m *Module) onInitialized(ctx context.Context) error {
	if m.session.pairingRequested {
		m.session.pairingRequested = false
		m.session.slavePolls = 0
		m.forceState(StateSearchForPair)
		return nil
	}

	paired, err := m.pairedCount(ctx)
	if err != nil {
		return err
	}
	if paired > 0 {
		m.forceState(StatePaired)
		return nil
	}
	return m.clock.Sleep(ctx, m.config.idleDelay)
}

// onSearchForPair first waits as a slave for a peer to pair with the
// module, then falls back to a master search.
func (m *Module) onSearchForPair(ctx context.Context) error {
	if m.session.slavePolls == 0 {
		if _, err := m.send(ctx, at.CmdRoleSlave, true); err != nil {
			return err
		}
		if _, err := m.send(ctx, at.CmdInquire, true); err != nil {
			return err
		}
		m.logger.Info("Waiting for pairing as a slave", "polls", m.config.slaveWindow)
		m.session.bootingUp = false
	}

	if m.session.slavePolls >= m.config.slaveWindow {
		return m.masterSearch(ctx)
	}

	// A peer pairing with us shows up as an unsolicited OK.
	got, err := m.readUnsolicited(ctx)
	if err != nil {
		return err
	}
	if strings.HasPrefix(got, at.OK) {
		m.logger.Info("Paired as a slave")
		m.forceState(StatePaired)
	}
	m.session.slavePolls++
	return m.clock.Sleep(ctx, m.config.slavePoll)
}

func (m *Module) readUnsolicited(ctx context.Context) (string, error) {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	buf := make([]byte, commandBufSize)
	n, err := m.readAvailable(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// masterSearch restarts the module as a master, scans, and tries the
// devices found in discovery order.
func (m *Module) masterSearch(ctx context.Context) error {
	m.logger.Info("Pairing as a master", "scan_units", m.config.masterScanUnits)
	m.clearForcedState()

	if err := m.restart(ctx); err != nil {
		return err
	}
	if _, err := m.send(ctx, at.CmdRoleMaster, true); err != nil {
		return err
	}
	if _, err := m.send(ctx, at.CmdClassAny, true); err != nil {
		return err
	}
	if _, err := m.scan(ctx, m.config.masterScanUnits); err != nil {
		return err
	}

	linked, err := m.linkDiscovered(ctx)
	if err != nil {
		return err
	}
	if linked {
		m.forceState(StateConnected)
		return nil
	}
	m.clearForcedState()
	return nil
}

// linkDiscovered links the first device the module already knows, else
// pairs with and links the first unknown one that accepts.
func (m *Module) linkDiscovered(ctx context.Context) (bool, error) {
	addrs := m.registry.Addresses()

	for _, addr := range addrs {
		known, err := m.send(ctx, at.CmdSearchPaired+string(addr), true)
		if err != nil {
			return false, err
		}
		if !m.acked(known) {
			continue
		}
		ok, err := m.link(ctx, addr)
		if err != nil || ok {
			return ok, err
		}
	}

	for _, addr := range addrs {
		known, err := m.send(ctx, at.CmdSearchPaired+string(addr), true)
		if err != nil {
			return false, err
		}
		if known.Type != at.TypeFail {
			continue
		}
		paired, err := m.send(ctx, fmt.Sprintf("%s%s,%d", at.CmdPair, addr, m.config.pairTimeout), false)
		if err != nil {
			return false, err
		}
		if !m.acked(paired) {
			m.logger.Info("Pairing refused", "address", addr, "reply", paired)
			continue
		}
		ok, err := m.link(ctx, addr)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// link opens the data channel to addr and moves it to the front of the
// registry so the connected address is reported.
func (m *Module) link(ctx context.Context, addr Address) (bool, error) {
	reply, err := m.send(ctx, at.CmdLink+string(addr), false)
	if err != nil {
		return false, err
	}
	if !m.acked(reply) {
		m.logger.Info("Link refused", "address", addr, "reply", reply)
		return false, nil
	}
	m.registry.setOnly(addr)
	return true, nil
}

// onPaired relinks the most recently used device. A failure during boot
// triggers a fresh pairing search; later failures are retried.
func (m *Module) onPaired(ctx context.Context) (bool, error) {
	defer func() { m.session.bootingUp = false }()

	known, err := m.mostRecentAddress(ctx)
	if err != nil {
		return false, err
	}
	if !known {
		m.clearForcedState()
		return false, m.clock.Sleep(ctx, m.config.retryDelay)
	}

	addr := m.registry.At(0)
	ok, err := m.link(ctx, addr)
	if err != nil {
		return false, err
	}
	if ok {
		m.forceState(StateConnected)
		return false, nil
	}

	// The module ignores the first command after a failed LINK.
	if _, err := m.send(ctx, at.Blank, true); err != nil {
		return false, err
	}
	if m.session.bootingUp {
		m.logger.Info("Last device unreachable at boot, searching for pair", "address", addr)
		m.session.pairingRequested = true
		m.clearForcedState()
	}
	return false, nil
}

// restart resets the module and initializes the serial port profile.
func (m *Module) restart(ctx context.Context) error {
	if _, err := m.send(ctx, at.CmdReset, true); err != nil {
		return err
	}
	if err := m.clock.Sleep(ctx, m.config.resetDelay); err != nil {
		return err
	}
	if _, err := m.send(ctx, at.CmdInit, true); err != nil {
		return err
	}
	return m.clock.Sleep(ctx, m.config.initDelay)
}

package hc05

import (
	"context"
	"errors"
	"fmt"

	"i4.energy/across/btlink/at"
)

// DefaultPassword is the pairing PIN used when Configure is given none.
const DefaultPassword = "1234"

const maxSettingLen = 10

// Configure finds the module and provisions it for pairing: device name,
// PIN, UART speed, password-protected inquiry and connection to any
// address. It must succeed before Connect may run.
//
// ErrModuleNotFound is returned when no baud rate answers; nothing is
// written to the module in that case. If the module cannot be brought
// back to the initialized state, Configure returns without error but
// Connect will refuse to run.
func (m *Module) Configure(ctx context.Context, deviceName, password string) error {
	if password == "" {
		password = DefaultPassword
	}
	m.session = session{bootingUp: true}
	m.clearForcedState()

	found, err := m.detect(ctx)
	if err != nil {
		return err
	}
	if !found {
		return ErrModuleNotFound
	}

	paired, err := m.pairedCount(ctx)
	if err != nil {
		return err
	}
	m.session.pairingRequested = paired == 0

	state, err := m.currentState(ctx)
	if err != nil {
		return err
	}
	if state != StateInitialized {
		if _, err := m.send(ctx, at.CmdReset, true); err != nil {
			return err
		}
		if err := m.clock.Sleep(ctx, m.config.resetDelay); err != nil {
			return err
		}
		if state, err = m.currentState(ctx); err != nil {
			return err
		}
	}
	if state != StateInitialized {
		m.logger.Warn("Module did not initialize", "state", state)
		return nil
	}

	if _, err := m.send(ctx, at.CmdInit, true); err != nil {
		return err
	}
	if err := m.clock.Sleep(ctx, m.config.initDelay); err != nil {
		return err
	}

	settings := []string{
		at.CmdName + truncate(deviceName, maxSettingLen),
		at.CmdPassword + truncate(password, maxSettingLen),
		at.CmdUART,
		at.CmdAccessCode,
		at.CmdConnectAny,
	}
	var errs []error
	for _, cmd := range settings {
		reply, err := m.send(ctx, cmd, true)
		if err != nil {
			return err
		}
		if !m.acked(reply) {
			errs = append(errs, fmt.Errorf("%s: %s", cmd, reply))
		}
	}
	if len(errs) > 0 {
		m.logger.Warn("Module rejected settings", "error", errors.Join(errs...))
	}

	m.session.setupSucceeded = true
	m.logger.Info("Module configured", "name", truncate(deviceName, maxSettingLen), "baud_rate", m.BaudRate(), "pairing_requested", m.session.pairingRequested)
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

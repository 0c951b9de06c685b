package hc05

import (
	"context"
	"fmt"

	"i4.energy/across/btlink/at"
)

// detect looks for the module by sending a bare AT at each candidate
// rate. Any answer at all counts. The link is left at the rate that
// answered, or at the last one tried.
func (m *Module) detect(ctx context.Context) (bool, error) {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	if m.isClosed() {
		return false, ErrAlreadyClosed
	}
	if m.transport == nil {
		return false, ErrNotInitialized
	}

	buf := make([]byte, commandBufSize)
	for _, rate := range m.config.baudRates {
		m.logger.Debug("Probing module", "baud_rate", rate)

		if err := m.transport.SetBaudRate(rate); err != nil {
			return false, err
		}
		if err := m.transport.SetReadTimeout(m.config.probeTimeout); err != nil {
			return false, fmt.Errorf("set probe timeout: %w", err)
		}
		if _, err := m.transport.Write([]byte(at.Probe)); err != nil {
			return false, fmt.Errorf("write probe: %w", err)
		}
		if err := m.clock.Sleep(ctx, m.config.settleDelay); err != nil {
			return false, err
		}

		n, err := m.readAvailable(buf)
		if err != nil {
			return false, err
		}
		if n == 0 {
			continue
		}

		if err := m.transport.SetReadTimeout(m.config.commandTimeout); err != nil {
			return false, fmt.Errorf("set command timeout: %w", err)
		}
		m.mu.Lock()
		m.baudRate = rate
		m.mu.Unlock()

		m.logger.Info("Module found", "baud_rate", rate)
		return true, nil
	}

	m.logger.Warn("Module not found", "rates_tried", len(m.config.baudRates))
	return false, nil
}

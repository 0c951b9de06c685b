package hc05

import (
	"bytes"
	"context"
	"fmt"

	"i4.energy/across/btlink/at"
)

const disconnectLen = 5

// Receive reads whatever the remote device sent, up to len(p) bytes. It
// returns 0 when nothing arrived within the read timeout.
//
// ErrLinkLost is returned when the module reports a disconnection; the
// link has to be re-established with Connect.
func (m *Module) Receive(ctx context.Context, p []byte) (int, error) {
	if err := m.requireConnected(); err != nil {
		return 0, err
	}

	n, err := m.transport.Read(p)
	if err != nil {
		return n, fmt.Errorf("read error: %w", err)
	}
	if n > disconnectLen && bytes.HasPrefix(p[:n], []byte(at.UrcDisc)) {
		m.logger.Info("Remote device disconnected", "reply", at.FirstLine(p[:n]))
		m.clearForcedState()
		m.observe(StateDisconnected)
		return 0, ErrLinkLost
	}
	return n, nil
}

// Send forwards p to the remote device. It fails with ErrNotConnected
// unless Connect has established the link.
func (m *Module) Send(ctx context.Context, p []byte) error {
	if err := m.requireConnected(); err != nil {
		return err
	}
	if _, err := m.transport.Write(p); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

// requireConnected checks the link state pinned by Connect. It never
// talks to the module, so data calls cannot steal replies from a running
// pairing loop.
func (m *Module) requireConnected() error {
	if m.isClosed() {
		return ErrAlreadyClosed
	}
	if s, ok := m.forcedState(); !ok || s != StateConnected {
		return ErrNotConnected
	}
	return nil
}

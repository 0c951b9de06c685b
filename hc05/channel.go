package hc05

import (
	"context"
	"fmt"

	"i4.energy/across/btlink/at"
)

const (
	commandBufSize   = 128
	discoveryBufSize = 512
)

// send writes one AT+ command and decodes the reply.
//
// With immediate set, a single read is attempted after the settle delay.
// Otherwise reading is retried every poll interval until the module
// answers, which is how LINK and PAIR are waited on: those only reply
// once the remote side has. Only ctx bounds that wait.
func (m *Module) send(ctx context.Context, cmd string, immediate bool) (at.Reply, error) {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	raw, err := m.exchange(ctx, at.Command(cmd), commandBufSize, immediate)
	if err != nil {
		return at.Reply{}, fmt.Errorf("AT+%s: %w", cmd, err)
	}

	reply := at.Decode(raw)
	m.logger.Debug("AT command", "cmd", cmd, "reply", at.FirstLine(raw), "type", reply.Type)
	if reply.Type == at.TypeError || reply.Type == at.TypeFail {
		m.logger.Debug("AT command rejected", "cmd", cmd, "code", int(reply.Code), "reason", reply.Code.String())
	}
	return reply, nil
}

// query writes a raw line (already framed) and returns the first reply
// line. Used for the read-only queries that reply with data.
func (m *Module) query(ctx context.Context, line string) (string, error) {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	raw, err := m.exchange(ctx, line, commandBufSize, true)
	if err != nil {
		return "", err
	}
	first := at.FirstLine(raw)
	m.logger.Debug("AT query", "cmd", at.FirstLine([]byte(line)), "reply", first)
	return first, nil
}

// exchange must be called with ioMu held.
func (m *Module) exchange(ctx context.Context, line string, bufSize int, immediate bool) ([]byte, error) {
	if m.isClosed() {
		return nil, ErrAlreadyClosed
	}
	if m.transport == nil {
		return nil, ErrNotInitialized
	}

	if _, err := m.transport.Write([]byte(line)); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}
	if err := m.clock.Sleep(ctx, m.config.settleDelay); err != nil {
		return nil, err
	}

	buf := make([]byte, bufSize)
	for {
		n, err := m.readAvailable(buf)
		if err != nil {
			return nil, err
		}
		if n > 0 || immediate {
			return buf[:n], nil
		}
		if err := m.clock.Sleep(ctx, m.config.pollInterval); err != nil {
			return nil, err
		}
	}
}

// readAvailable reads until the transport times out with nothing more
// to give or buf is full.
func (m *Module) readAvailable(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := m.transport.Read(buf[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("read error: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// acked reports whether a reply counts as an acknowledgement. Unless
// strict replies are configured, silence and unrecognized replies are
// accepted too, as the module firmware does not always answer.
func (m *Module) acked(r at.Reply) bool {
	switch r.Type {
	case at.TypeOK:
		return true
	case at.TypeNone, at.TypeUnknown, at.TypeData, at.TypeURC:
		return !m.config.strictReplies
	default:
		return false
	}
}

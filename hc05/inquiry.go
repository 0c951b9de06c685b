package hc05

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/btlink/at"
)

// scanUnit is the module's inquiry time granularity.
const scanUnit = 1280 * time.Millisecond

// ParseInquiry collects the addresses of the "+INQ:<addr>,<class>,<rssi>"
// records found anywhere in buf into reg, skipping duplicates, and returns
// the number of addresses held. It stops as soon as reg is full.
func ParseInquiry(buf []byte, reg *Registry) int {
	data := string(buf)
	for {
		i := strings.Index(data, at.UrcInq)
		if i < 0 {
			break
		}
		data = data[i+len(at.UrcInq):]

		end := len(data)
		if j := strings.IndexAny(data, "\r\n"); j >= 0 {
			end = j
		}
		if j := strings.Index(data, at.UrcInq); j >= 0 && j < end {
			end = j
		}
		record := data[:end]
		data = data[end:]

		addr, ok := inquiryAddress(record)
		if !ok {
			continue
		}
		reg.Add(addr)
		if reg.Full() {
			return MaxDevices
		}
	}
	return reg.Len()
}

// inquiryAddress extracts the address of one record. The module sends it
// colon separated and followed by a comma; a record that was already
// normalized carries the address in every field but the trailing class
// and RSSI ones.
func inquiryAddress(record string) (Address, bool) {
	fields := strings.Split(record, ",")
	if len(fields) < 2 {
		return "", false
	}

	raw := fields[0]
	if !strings.Contains(raw, ":") {
		raw = strings.Join(fields[:max(1, len(fields)-2)], ",")
	}
	return NormalizeAddress(raw)
}

// scan runs a master inquiry for units*1.28s and fills the registry with
// what was found.
func (m *Module) scan(ctx context.Context, units int) (int, error) {
	if _, err := m.send(ctx, at.InquiryMode(MaxDevices, units), true); err != nil {
		return 0, err
	}

	raw, err := m.collectInquiry(ctx, units)
	if err != nil {
		return 0, err
	}

	if _, err := m.send(ctx, at.CmdInquireStop, true); err != nil {
		return 0, err
	}

	m.registry.Reset()
	n := ParseInquiry(raw, &m.registry)
	for _, addr := range m.registry.Addresses() {
		m.logger.Info("Device found", "address", addr)
		if err := m.remoteName(ctx, addr); err != nil {
			return n, err
		}
	}

	m.logger.Debug("Inquiry finished", "devices", n, "bytes", len(raw))
	return n, nil
}

func (m *Module) collectInquiry(ctx context.Context, units int) ([]byte, error) {
	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	if m.isClosed() {
		return nil, ErrAlreadyClosed
	}
	if _, err := m.transport.Write([]byte(at.Command(at.CmdInquire))); err != nil {
		return nil, fmt.Errorf("start inquiry: %w", err)
	}
	if err := m.clock.Sleep(ctx, time.Duration(units)*scanUnit); err != nil {
		return nil, err
	}

	buf := make([]byte, discoveryBufSize)
	n, err := m.readAvailable(buf)
	if err != nil {
		return nil, fmt.Errorf("read inquiry results: %w", err)
	}
	return buf[:n], nil
}

// remoteName asks the module for the friendly name of addr and logs it.
// It is skipped unless name lookup is enabled and debug logging is on,
// since each lookup blocks for several seconds.
func (m *Module) remoteName(ctx context.Context, addr Address) error {
	if !m.config.nameLookup || !m.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}

	m.ioMu.Lock()
	defer m.ioMu.Unlock()

	if _, err := m.transport.Write([]byte(at.Prefix + at.CmdRemoteName + string(addr) + at.CRLF)); err != nil {
		return fmt.Errorf("query remote name: %w", err)
	}
	if err := m.clock.Sleep(ctx, m.config.nameLookupDelay); err != nil {
		return err
	}

	buf := make([]byte, commandBufSize)
	n, err := m.readAvailable(buf)
	if err != nil {
		return err
	}
	name := strings.TrimPrefix(at.FirstLine(buf[:n]), at.RespRName)
	m.logger.Debug("Remote name", "address", addr, "name", name)
	return nil
}

// mostRecentAddress loads the most recently used address into the
// registry. The registry is left alone when the module has none.
func (m *Module) mostRecentAddress(ctx context.Context) (bool, error) {
	line, err := m.query(ctx, at.Command(at.CmdMRAD))
	if err != nil {
		return false, fmt.Errorf("query last address: %w", err)
	}

	rest, ok := strings.CutPrefix(line, at.RespMRAD)
	if !ok {
		return false, nil
	}
	addr, ok := NormalizeAddress(rest)
	if !ok {
		return false, nil
	}

	m.registry.setOnly(addr)
	return true, nil
}

// pairedCount returns how many devices the module has stored in its pair
// list, or -1 if the reply could not be read.
func (m *Module) pairedCount(ctx context.Context) (int, error) {
	line, err := m.query(ctx, at.Command(at.CmdADCN))
	if err != nil {
		return -1, fmt.Errorf("query paired count: %w", err)
	}

	rest, ok := strings.CutPrefix(line, at.RespADCN)
	if !ok || rest == "" || !isDigit(rest[0]) {
		return -1, nil
	}

	n := int(rest[0] - '0')
	if len(rest) > 1 && isDigit(rest[1]) {
		n = 10*n + int(rest[1]-'0')
	}
	return n, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

package hc05

import (
	"context"
	"fmt"

	"i4.energy/across/btlink/at"
)

// ConnectionState is the module's connectivity state as seen by the
// driver.
type ConnectionState int

const (
	// StateUnknown is the zero value; nothing has been observed yet.
	StateUnknown ConnectionState = iota
	StateError
	// StateNoForce is not a module state; forcing it clears an override.
	StateNoForce
	// StateSearchForPair is a driver-only state used while looking for a
	// peer to pair with.
	StateSearchForPair
	StateInitialized
	StateReady
	StatePairable
	StatePaired
	StateInquiring
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateError:
		return "ERROR"
	case StateNoForce:
		return "NOFORCE"
	case StateSearchForPair:
		return "SEARCH_FOR_PAIR"
	case StateInitialized:
		return "INITIALIZED"
	case StateReady:
		return "READY"
	case StatePairable:
		return "PAIRABLE"
	case StatePaired:
		return "PAIRED"
	case StateInquiring:
		return "INQUIRING"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Offsets inspected in a "+STATE:<MNEMONIC>" line.
const (
	stateMarker     = len(at.RespState) // first mnemonic letter
	initMarker      = stateMarker + 2   // INITIALIZED / INQUIRING
	pairMarker      = stateMarker + 4   // PAIRABLE / PAIRED
	connectMarker   = stateMarker + 7   // CONNECTING / CONNECTED
	minStateLineLen = stateMarker + 1
)

// DecodeState maps a status reply line to a ConnectionState. Only a few
// marker characters at fixed positions are looked at; anything else, or
// a line too short for the marker needed, is StateError.
func DecodeState(line string) ConnectionState {
	if len(line) < minStateLineLen {
		return StateError
	}

	switch line[stateMarker] {
	case 'R':
		return StateReady
	case 'D':
		return StateDisconnected
	case 'I':
		if len(line) <= initMarker {
			return StateError
		}
		if line[initMarker] == 'I' {
			return StateInitialized
		}
		return StateInquiring
	case 'P':
		if len(line) <= pairMarker {
			return StateError
		}
		if line[pairMarker] == 'A' {
			return StatePairable
		}
		return StatePaired
	case 'C':
		if len(line) <= connectMarker {
			return StateError
		}
		if line[connectMarker] == 'I' {
			return StateConnecting
		}
		return StateConnected
	default:
		return StateError
	}
}

// currentState returns the forced state if one is set, otherwise asks
// the module.
func (m *Module) currentState(ctx context.Context) (ConnectionState, error) {
	if s, ok := m.forcedState(); ok {
		m.observe(s)
		return s, nil
	}

	line, err := m.query(ctx, at.Command(at.CmdState))
	if err != nil {
		return StateError, fmt.Errorf("query state: %w", err)
	}

	s := DecodeState(line)
	m.observe(s)
	return s, nil
}

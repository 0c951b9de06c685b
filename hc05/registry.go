package hc05

import "strings"

// MaxDevices bounds the discovery table.
const MaxDevices = 4

// maxAddressLen fits six two digit groups with their separators, e.g.
// "00:11:22:33:44:55".
const maxAddressLen = 17

// Address is a remote device address in the comma separated form the
// module expects in LINK, PAIR and FSAD, e.g. "2C54,91,88C9FE".
type Address string

// NormalizeAddress converts the module's colon separated wire form to
// the comma form. It reports false when s is not made of hex digit groups
// or is longer than a six group address.
func NormalizeAddress(s string) (Address, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAddressLen {
		return "", false
	}

	inGroup := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':' || c == ',':
			if !inGroup {
				return "", false
			}
			inGroup = false
		case isHex(c):
			inGroup = true
		default:
			return "", false
		}
	}
	if !inGroup {
		return "", false
	}

	return Address(strings.ReplaceAll(s, ":", ",")), true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// Registry is the bounded, ordered and deduplicated table of addresses
// the pairing loop works from.
type Registry struct {
	addrs [MaxDevices]Address
	n     int
}

// Add appends a unless it is already present or the table is full.
func (r *Registry) Add(a Address) bool {
	if r.n == MaxDevices {
		return false
	}
	for i := 0; i < r.n; i++ {
		if r.addrs[i] == a {
			return false
		}
	}
	r.addrs[r.n] = a
	r.n++
	return true
}

// Len returns the number of addresses held.
func (r *Registry) Len() int {
	return r.n
}

// Full reports whether no more addresses fit.
func (r *Registry) Full() bool {
	return r.n == MaxDevices
}

// At returns the i-th address in insertion order.
func (r *Registry) At(i int) Address {
	if i < 0 || i >= r.n {
		return ""
	}
	return r.addrs[i]
}

// Addresses returns a copy of the held addresses in insertion order.
func (r *Registry) Addresses() []Address {
	out := make([]Address, r.n)
	copy(out, r.addrs[:r.n])
	return out
}

// Reset empties the table.
func (r *Registry) Reset() {
	*r = Registry{}
}

// setOnly replaces the content with the single address a.
func (r *Registry) setOnly(a Address) {
	r.Reset()
	r.addrs[0] = a
	r.n = 1
}

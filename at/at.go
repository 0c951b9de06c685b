package at

import "fmt"

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prefix = "AT+"
	Probe  = "AT" + CRLF

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	FAIL       = "FAIL"
	Blank      = " "
	OpenParen  = '('
	CloseParen = ')'

	// Data replies and URCs (Unsolicited Result Codes)
	RespState = "+STATE:"
	RespMRAD  = "+MRAD:"
	RespADCN  = "+ADCN:"
	RespRName = "+RNAME:"
	UrcInq    = "+INQ:"
	UrcDisc   = "+DISC"
)

// Commands, without the "AT+" prefix.
const (
	CmdReset        = "RESET"
	CmdInit         = "INIT"
	CmdState        = "STATE?"
	CmdMRAD         = "MRAD?"
	CmdADCN         = "ADCN?"
	CmdInquire      = "INQ"
	CmdInquireStop  = "INQC"
	CmdRoleSlave    = "ROLE=0"
	CmdRoleMaster   = "ROLE=1"
	CmdClassAny     = "CLASS=0"
	CmdConnectAny   = "CMODE=1"
	CmdUART         = "UART=38400,0,0"
	CmdAccessCode   = "IAC=9e8b33"
	CmdName         = "NAME="
	CmdPassword     = "PSWD="
	CmdSearchPaired = "FSAD="
	CmdLink         = "LINK="
	CmdPair         = "PAIR="
	CmdRemoteName   = "RNAME?"
)

// Command frames a module command for the wire.
func Command(cmd string) string {
	return Prefix + cmd + CRLF
}

// InquiryMode builds the INQM command: RSSI mode, at most maxDevices
// answers, scan for units*1.28s.
func InquiryMode(maxDevices, units int) string {
	return fmt.Sprintf("INQM=1,%d,%d", maxDevices, units)
}

type ResponseType int

const (
	TypeNone    ResponseType = iota // nothing read before the timeout
	TypeOK                          // OK
	TypeError                       // ERROR:(x)
	TypeFail                        // FAIL
	TypeURC                         // +INQ, +DISC
	TypeData                        // +STATE:, +MRAD:, ...
	TypeUnknown                     // anything else
)

func (t ResponseType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeOK:
		return "ok"
	case TypeError:
		return "error"
	case TypeFail:
		return "fail"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	default:
		return "unknown"
	}
}

// ErrorCode is a module-reported error number.
type ErrorCode int

// CodeFail is the code reported for a FAIL reply. It sits outside the
// numbered error table so callers can tell the two apart.
const CodeFail ErrorCode = 30

var errorNames = map[ErrorCode]string{
	0x00:     "AT command error",
	0x01:     "default result",
	0x02:     "PSKEY write error",
	0x03:     "device name too long",
	0x04:     "no device name",
	0x05:     "NAP too long",
	0x06:     "UAP too long",
	0x07:     "LAP too long",
	0x08:     "no PIO number mask",
	0x09:     "no PIO number",
	0x0A:     "no Bluetooth device",
	0x0B:     "device length too long",
	0x0C:     "no inquiry access code",
	0x0D:     "inquiry access code too long",
	0x0E:     "invalid inquiry access code",
	0x0F:     "passkey length is zero",
	0x10:     "passkey too long",
	0x11:     "invalid module role",
	0x12:     "invalid baud rate",
	0x13:     "invalid stop bit",
	0x14:     "invalid parity bit",
	0x15:     "authentication device not in pair list",
	0x16:     "SPP not initialized",
	0x17:     "SPP already initialized",
	0x18:     "invalid inquiry mode",
	0x19:     "inquiry timeout too long",
	0x1A:     "no Bluetooth address",
	0x1B:     "invalid safe mode",
	0x1C:     "invalid encryption mode",
	CodeFail: "fail",
}

func (c ErrorCode) String() string {
	if name, ok := errorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error 0x%02X", int(c))
}

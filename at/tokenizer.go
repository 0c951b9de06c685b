package at

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Splitter is used for tokenizing module replies. It uses the signature
// of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings. A bare LF also ends a line
// since some firmware revisions drop the CR on status replies.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimSuffix(data[0:i], []byte("\r")), nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// FirstLine returns the first non-empty line of a raw reply.
func FirstLine(raw []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Split(Splitter)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			return line
		}
	}
	return ""
}

// Classify identifies the nature of a reply line. Only the leading bytes
// are inspected, the way the module firmware is documented.
func Classify(line string) ResponseType {
	switch {
	case line == "":
		return TypeNone
	case strings.HasPrefix(line, OK):
		return TypeOK
	case line[0] == 'E':
		return TypeError
	case line[0] == 'F':
		return TypeFail
	case strings.HasPrefix(line, UrcInq), strings.HasPrefix(line, UrcDisc):
		return TypeURC
	case line[0] == '+':
		return TypeData
	default:
		return TypeUnknown
	}
}

// Reply is the decoded outcome of one command exchange.
type Reply struct {
	Type ResponseType
	Code ErrorCode
	Raw  string
}

func (r Reply) String() string {
	if r.Type == TypeError {
		return fmt.Sprintf("error 0x%02X (%s)", int(r.Code), r.Code)
	}
	return r.Type.String()
}

// Decode turns the raw bytes of a reply into a Reply. An error reply
// whose code cannot be read decodes to TypeUnknown.
func Decode(raw []byte) Reply {
	r := Reply{Raw: string(raw)}
	r.Type = Classify(FirstLine(raw))

	switch r.Type {
	case TypeError:
		code, ok := ParseErrorCode(FirstLine(raw))
		if !ok {
			r.Type = TypeUnknown
			break
		}
		r.Code = code
	case TypeFail:
		r.Code = CodeFail
	}
	return r
}

// ParseErrorCode extracts the error number of an error reply.
//
// The module prints "ERROR:(1A)", a hex mnemonic. The digits start after
// the opening paren, or right after the leading 'E' when there is none.
// A closing paren (or end of line) in the second digit position means a
// single digit code.
func ParseErrorCode(line string) (ErrorCode, bool) {
	if line == "" || line[0] != 'E' {
		return 0, false
	}

	digits := line[1:]
	if i := strings.IndexByte(line, OpenParen); i >= 0 {
		digits = line[i+1:]
	}
	if digits == "" {
		return 0, false
	}

	hi, ok := hexDigit(digits[0])
	if !ok {
		return 0, false
	}
	if len(digits) == 1 || digits[1] == CloseParen {
		return ErrorCode(hi), true
	}

	lo, ok := hexDigit(digits[1])
	if !ok {
		return 0, false
	}
	return ErrorCode(16*hi + lo), true
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	}
	return 0, false
}

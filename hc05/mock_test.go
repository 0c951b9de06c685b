package hc05_test

import (
	"context"
	"time"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/btlink/hc05"
)

// instantClock never waits.
type instantClock struct{}

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type MockSequenceBuilder struct {
	transport *hc05.MockTransport
	calls     []any
}

func NewMockSequence(transport *hc05.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

func (b *MockSequenceBuilder) read(resp string) {
	if resp != "" {
		b.calls = append(b.calls,
			b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
				return copy(p, resp), nil
			}),
		)
	}
	b.calls = append(b.calls, b.transport.EXPECT().Read(gomock.Any()).Return(0, nil))
}

// Probe expects a bare AT at rate, answered when answer is set.
func (b *MockSequenceBuilder) Probe(rate int, answer bool) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().SetBaudRate(rate).Return(nil),
		b.transport.EXPECT().SetReadTimeout(gomock.Any()).Return(nil),
		b.transport.EXPECT().Write([]byte("AT\r\n")).Return(4, nil),
	)
	if !answer {
		b.read("")
		return b
	}
	b.read("OK\r\n")
	b.calls = append(b.calls, b.transport.EXPECT().SetReadTimeout(hc05.DefaultReadTimeout).Return(nil))
	return b
}

// Command expects AT+<cmd> and answers with resp.
func (b *MockSequenceBuilder) Command(cmd, resp string) *MockSequenceBuilder {
	line := "AT+" + cmd + "\r\n"
	b.calls = append(b.calls, b.transport.EXPECT().Write([]byte(line)).Return(len(line), nil))
	b.read(resp)
	return b
}

func (b *MockSequenceBuilder) PairedCount(n string) *MockSequenceBuilder {
	return b.Command("ADCN?", "+ADCN:"+n+"\r\nOK\r\n")
}

func (b *MockSequenceBuilder) State(mnemonic string) *MockSequenceBuilder {
	return b.Command("STATE?", "+STATE:"+mnemonic+"\r\nOK\r\n")
}

// Provision expects the settings written by Configure, all acknowledged.
func (b *MockSequenceBuilder) Provision(name, password string) *MockSequenceBuilder {
	for _, cmd := range []string{"INIT", "NAME=" + name, "PSWD=" + password, "UART=38400,0,0", "IAC=9e8b33", "CMODE=1"} {
		b.Command(cmd, "OK\r\n")
	}
	return b
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}

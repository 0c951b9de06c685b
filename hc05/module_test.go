package hc05_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"go.uber.org/mock/gomock"
	"i4.energy/across/btlink/hc05"
)

func newModule(t *testing.T, dialer hc05.Dialer) *hc05.Module {
	t.Helper()

	config, err := hc05.NewConfigBuilder().
		WithDialer(dialer).
		WithClock(instantClock{}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	m, err := hc05.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	return m
}

func TestModuleNew(t *testing.T) {
	t.Run("Opens the transport without talking to the module", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := hc05.NewMockTransport(ctrl)
		mockDialer := hc05.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)

		m := newModule(t, mockDialer)
		if m.State() != hc05.StateUnknown {
			t.Errorf("expected StateUnknown, got %v", m.State())
		}
		if m.BaudRate() != 0 {
			t.Errorf("expected no baud rate yet, got %d", m.BaudRate())
		}

		mockTransport.EXPECT().Close().Return(nil)
		if err := m.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
	})

	t.Run("ErrNoDialer with a zero Config", func(t *testing.T) {
		_, err := hc05.New(context.Background(), hc05.Config{})
		if err != hc05.ErrNoDialer {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("Dial errors are returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		dialErr := errors.New("port busy")
		mockDialer := hc05.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, dialErr)

		config, _ := hc05.NewConfigBuilder().WithDialer(mockDialer).Build()
		m, err := hc05.New(context.Background(), config)
		if err != dialErr {
			t.Errorf("expected dial error, got: %v", err)
		}
		if m != nil {
			t.Error("expected nil module on error")
		}
	})

	t.Run("ErrNotInitialized when the dialer returns no transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := hc05.NewMockDialer(ctrl)
		mockDialer.EXPECT().Dial(gomock.Any()).Return(nil, nil)

		config, _ := hc05.NewConfigBuilder().WithDialer(mockDialer).Build()
		if _, err := hc05.New(context.Background(), config); err != hc05.ErrNotInitialized {
			t.Errorf("expected ErrNotInitialized, got: %v", err)
		}
	})
}

func TestModuleClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransport := hc05.NewMockTransport(ctrl)
	mockDialer := hc05.NewMockDialer(ctrl)
	mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)
	mockTransport.EXPECT().Close().Return(nil).Times(1)

	m := newModule(t, mockDialer)

	if err := m.Close(); err != nil {
		t.Errorf("unexpected error from Close(): %v", err)
	}
	if err := m.Close(); err != hc05.ErrAlreadyClosed {
		t.Errorf("expected ErrAlreadyClosed, got: %v", err)
	}
	if err := m.Connect(context.Background()); err != hc05.ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured, got: %v", err)
	}
	if err := m.Configure(context.Background(), "btlink", ""); !errors.Is(err, hc05.ErrAlreadyClosed) {
		t.Errorf("expected ErrAlreadyClosed, got: %v", err)
	}
}

func TestModuleLifecycle(t *testing.T) {
	t.Run("Configure then relink the last device", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := hc05.NewMockTransport(ctrl)
		mockDialer := hc05.NewMockDialer(ctrl)

		calls := NewMockSequence(mockTransport).
			Probe(38400, false).
			Probe(38400, true).
			PairedCount("1").
			State("INITIALIZED").
			Provision("btlink", "0000").
			// Connect
			State("INITIALIZED").
			PairedCount("1").
			Command("MRAD?", "+MRAD:2C54:91:88C9FE\r\nOK\r\n").
			Command("LINK=2C54,91,88C9FE", "OK\r\n").
			Build()

		gomock.InOrder(slices.Concat(
			[]any{mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)},
			calls,
			[]any{mockTransport.EXPECT().Close().Return(nil)},
		)...)

		m := newModule(t, mockDialer)
		ctx := context.Background()

		if err := m.Configure(ctx, "btlink", "0000"); err != nil {
			t.Fatalf("unexpected error from Configure(): %v", err)
		}
		if m.BaudRate() != 38400 {
			t.Errorf("expected baud rate 38400, got %d", m.BaudRate())
		}
		if err := m.Connect(ctx); err != nil {
			t.Fatalf("unexpected error from Connect(): %v", err)
		}
		if m.State() != hc05.StateConnected {
			t.Errorf("expected StateConnected, got %v", m.State())
		}
		if err := m.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
	})

	t.Run("Nothing is provisioned when the module is silent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTransport := hc05.NewMockTransport(ctrl)
		mockDialer := hc05.NewMockDialer(ctrl)

		seq := NewMockSequence(mockTransport)
		for _, rate := range hc05.DefaultBaudRates {
			seq.Probe(rate, false)
		}

		gomock.InOrder(slices.Concat(
			[]any{mockDialer.EXPECT().Dial(gomock.Any()).Return(mockTransport, nil)},
			seq.Build(),
		)...)

		m := newModule(t, mockDialer)

		if err := m.Configure(context.Background(), "btlink", ""); err != hc05.ErrModuleNotFound {
			t.Errorf("expected ErrModuleNotFound, got: %v", err)
		}
	})
}

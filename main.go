package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"i4.energy/across/btlink/hc05"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML configuration file")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port the Bluetooth module is attached to")
	flag.Int("baud-rate", 38400, "Baud rate tried first when probing the module")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server (empty to disable)")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("device-name", "btlink", "Bluetooth device name written to the module")
	flag.String("password", "", "Pairing PIN written to the module (default 1234)")
	flag.Bool("strict-replies", false, "Only accept an explicit OK from the module")
	flag.Int("master-scan-units", 25, "Master inquiry length in units of 1.28s (1-48)")
	flag.Bool("stdin", false, "Forward standard input to the remote device")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	moduleConfig, err := hc05.NewConfigBuilder().
		WithLogger(logger.With("component", "hc05")).
		WithBaudRates(append([]int{config.BaudRate}, hc05.DefaultBaudRates...)...).
		WithStrictReplies(config.StrictReplies).
		WithMasterScanUnits(config.MasterScanUnits).
		WithNameLookup(logLevel == slog.LevelDebug).
		WithDialer(hc05.SerialDialer{
			PortName: config.SerialPort,
			Mode: &serial.Mode{
				BaudRate: config.BaudRate,
				Parity:   serial.NoParity,
				DataBits: 8,
				StopBits: serial.OneStopBit,
			},
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create module config", "error", err)
		os.Exit(1)
	}

	m, err := hc05.New(ctx, moduleConfig)
	if err != nil {
		logger.Error("Failed to open module", "error", err, "port", config.SerialPort)
		os.Exit(1)
	}
	defer m.Close()

	logger.Info("Starting Bluetooth link", "port", config.SerialPort, "device_name", config.DeviceName)

	if err := m.Configure(ctx, config.DeviceName, config.Password); err != nil {
		logger.Error("Failed to configure module", "error", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)

	bridge := &Bridge{
		Logger: logger.With("component", "bridge"),
		Device: m,
		Out:    os.Stdout,
	}
	if config.Stdin {
		bridge.In = os.Stdin
	}
	g.Go(func() error {
		return bridge.Run(ctx)
	})

	if config.BindAddress != "" {
		httpServer := &http.Server{
			Addr: config.BindAddress,
			Handler: &Server{
				Logger: logger.With("component", "server"),
				Link:   m,
			},
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			logger.Info("Closing HTTP server")
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bluetooth link failed", "error", err)
		m.Close()
		os.Exit(1)
	}
	logger.Info("Shut down")
}

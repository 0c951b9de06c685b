package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP API listens on (e.g. "0.0.0.0:8080").
	// An empty value disables the API.
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the line speed the port is opened at. The driver probes
	// other speeds when the module does not answer.
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// DeviceName is the Bluetooth name written to the module
	DeviceName string `yaml:"device_name"`
	// Password is the pairing PIN written to the module
	Password string `yaml:"password"`
	// StrictReplies only accepts an explicit OK as an acknowledgement
	StrictReplies bool `yaml:"strict_replies"`
	// MasterScanUnits is the master inquiry length in units of 1.28s
	MasterScanUnits int `yaml:"master_scan_units"`
	// Stdin forwards standard input to the remote device
	Stdin bool `yaml:"stdin"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 38400
		c.LogLevel = "info"
		c.DeviceName = "btlink"
		c.MasterScanUnits = 25
		return nil
	}
}

// WithFile overlays the keys present in a YAML file. An empty path is
// ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr, ok := os.LookupEnv("BIND_ADDRESS"); ok {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if name := os.Getenv("DEVICE_NAME"); name != "" {
			c.DeviceName = name
		}

		if password := os.Getenv("DEVICE_PASSWORD"); password != "" {
			c.Password = password
		}

		if strict := os.Getenv("STRICT_REPLIES"); strict != "" {
			if s, err := strconv.ParseBool(strict); err == nil {
				c.StrictReplies = s
			}
		}

		if units := os.Getenv("MASTER_SCAN_UNITS"); units != "" {
			if u, err := strconv.Atoi(units); err == nil {
				c.MasterScanUnits = u
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "device-name":
				c.DeviceName = f.Value.String()
			case "password":
				c.Password = f.Value.String()
			case "strict-replies":
				if s, err := strconv.ParseBool(f.Value.String()); err == nil {
					c.StrictReplies = s
				}
			case "master-scan-units":
				if u, err := strconv.Atoi(f.Value.String()); err == nil {
					c.MasterScanUnits = u
				}
			case "stdin":
				if s, err := strconv.ParseBool(f.Value.String()); err == nil {
					c.Stdin = s
				}
			}
		})
		return nil
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.SerialPort == "" {
		return errors.New("serial_port must not be empty")
	}

	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be > 0, got %d", c.BaudRate)
	}

	if c.DeviceName == "" {
		return errors.New("device_name must not be empty")
	}

	if c.MasterScanUnits < 1 || c.MasterScanUnits > 48 {
		return fmt.Errorf("master_scan_units must be between 1 and 48, got %d", c.MasterScanUnits)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

package hc05

import (
	"log/slog"
	"time"
)

// DefaultBaudRates is the probe order. Rates are repeated on purpose: the
// module answers more reliably on a second attempt at the same speed.
var DefaultBaudRates = []int{38400, 38400, 115200, 115200, 9600, 19200, 57600}

const maxScanUnits = 48

// Config holds the driver settings. Build one with NewConfigBuilder.
type Config struct {
	dialer Dialer
	logger *slog.Logger
	clock  Clock

	baudRates      []int
	probeTimeout   time.Duration
	commandTimeout time.Duration
	settleDelay    time.Duration
	pollInterval   time.Duration

	resetDelay      time.Duration
	initDelay       time.Duration
	idleDelay       time.Duration
	retryDelay      time.Duration
	slaveWindow     int
	slavePoll       time.Duration
	masterScanUnits int
	pairTimeout     int

	nameLookup      bool
	nameLookupDelay time.Duration
	strictReplies   bool
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	if c.masterScanUnits < 0 || c.masterScanUnits > maxScanUnits {
		return ErrInvalidScanUnits
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if len(c.baudRates) == 0 {
		c.baudRates = DefaultBaudRates
	}
	if c.probeTimeout == 0 {
		c.probeTimeout = 200 * time.Millisecond
	}
	if c.commandTimeout == 0 {
		c.commandTimeout = DefaultReadTimeout
	}
	if c.settleDelay == 0 {
		c.settleDelay = 200 * time.Millisecond
	}
	if c.pollInterval == 0 {
		c.pollInterval = 100 * time.Millisecond
	}
	if c.resetDelay == 0 {
		c.resetDelay = 5 * time.Second
	}
	if c.initDelay == 0 {
		c.initDelay = 2 * time.Second
	}
	if c.idleDelay == 0 {
		c.idleDelay = 5 * time.Second
	}
	if c.retryDelay == 0 {
		c.retryDelay = time.Second
	}
	if c.slaveWindow == 0 {
		c.slaveWindow = 60
	}
	if c.slavePoll == 0 {
		c.slavePoll = time.Second
	}
	if c.masterScanUnits == 0 {
		c.masterScanUnits = 25
	}
	if c.pairTimeout == 0 {
		c.pairTimeout = 20
	}
	if c.nameLookupDelay == 0 {
		c.nameLookupDelay = 5 * time.Second
	}
}

// ConfigBuilder assembles a Config. Zero values are replaced with
// defaults by Build.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets how the serial link is opened. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithLogger sets the logger. Command traffic is logged at debug level.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// WithClock replaces the wall clock used for every wait.
func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.config.clock = c
	return b
}

// WithBaudRates sets the ordered list of speeds tried by the probe.
func (b *ConfigBuilder) WithBaudRates(rates ...int) *ConfigBuilder {
	b.config.baudRates = rates
	return b
}

// WithProbeTimeout sets the read timeout used while probing a speed.
func (b *ConfigBuilder) WithProbeTimeout(d time.Duration) *ConfigBuilder {
	b.config.probeTimeout = d
	return b
}

// WithCommandTimeout sets the read timeout used for commands.
func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.commandTimeout = d
	return b
}

// WithSettleDelay sets the wait after a command before its reply is read.
func (b *ConfigBuilder) WithSettleDelay(d time.Duration) *ConfigBuilder {
	b.config.settleDelay = d
	return b
}

// WithPollInterval sets the wait between reads of a non-immediate reply.
func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.pollInterval = d
	return b
}

// WithSlaveWindow sets how many one-second polls are spent waiting for a
// peer to pair with the module in slave mode.
func (b *ConfigBuilder) WithSlaveWindow(polls int) *ConfigBuilder {
	b.config.slaveWindow = polls
	return b
}

// WithMasterScanUnits sets the master inquiry duration in units of 1.28s.
func (b *ConfigBuilder) WithMasterScanUnits(units int) *ConfigBuilder {
	b.config.masterScanUnits = units
	return b
}

// WithPairTimeout sets the PAIR timeout in seconds.
func (b *ConfigBuilder) WithPairTimeout(seconds int) *ConfigBuilder {
	b.config.pairTimeout = seconds
	return b
}

// WithNameLookup enables remote name queries for discovered devices. The
// names are only logged.
func (b *ConfigBuilder) WithNameLookup(enabled bool) *ConfigBuilder {
	b.config.nameLookup = enabled
	return b
}

// WithStrictReplies makes only an explicit OK count as an acknowledgement.
// By default a timeout or an unrecognized reply is accepted as well.
func (b *ConfigBuilder) WithStrictReplies(strict bool) *ConfigBuilder {
	b.config.strictReplies = strict
	return b
}

// Build validates the settings and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	c := b.config
	c.setDefaults()
	return c, nil
}

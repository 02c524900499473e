// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/ffutop/modbus-link/link"
	"github.com/ffutop/modbus-link/modbus"
)

// Config defines the global configuration structure
type Config struct {
	Links []LinkConfig `mapstructure:"links"`
	Log   LogConfig    `mapstructure:"log"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// LinkConfig defines one serial line and the role played on it
type LinkConfig struct {
	Name        string `mapstructure:"name"`
	Role        string `mapstructure:"role"` // "master", "slave", "both"
	Mode        string `mapstructure:"mode"` // "rtu", "ascii"
	Address     int    `mapstructure:"address"`
	PeerAddress int    `mapstructure:"peer_address"`

	BaudRate       int           `mapstructure:"baud_rate"` // Defaults to the serial baud rate
	ReceiveTimeout time.Duration `mapstructure:"receive_timeout"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	RegisterLimit  int           `mapstructure:"register_limit"`
	QueueSize      int           `mapstructure:"queue_size"`
	FastMode       bool          `mapstructure:"fast_mode"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`

	Transport TransportConfig `mapstructure:"transport"`
	Registers RegistersConfig `mapstructure:"registers"` // Used by the slave role
	Jobs      []JobConfig     `mapstructure:"jobs"`      // Used by the master role
}

// TransportConfig defines how the line is reached
type TransportConfig struct {
	Type   string       `mapstructure:"type"`   // "serial", "tcp", "tcp-listen"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "serial"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp" or "tcp-listen"
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string `mapstructure:"address"` // e.g. "0.0.0.0:4001" or "192.168.1.100:4001"
}

// SerialConfig defines serial port settings
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	Driver   string        `mapstructure:"driver"` // "gridx", "bugst"
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// RegistersConfig defines the register bank served by the slave role
type RegistersConfig struct {
	Size        int               `mapstructure:"size"` // 0 covers the whole address space
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// PersistenceConfig defines data storage settings
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap"
	Path string `mapstructure:"path"` // File path for "file/mmap" type
}

// JobConfig defines a request the master role issues periodically
type JobConfig struct {
	Name     string        `mapstructure:"name"`
	Kind     string        `mapstructure:"kind"` // "read", "write"
	Address  uint16        `mapstructure:"address"`
	Count    uint16        `mapstructure:"count"`  // Registers to read
	Values   []uint16      `mapstructure:"values"` // Registers to write
	Interval time.Duration `mapstructure:"interval"` // 0 runs the job once
}

// LoadConfig loads configuration from file
func LoadConfig(configFile string) (*Config, error) {
	return load(newViper(afero.NewOsFs(), configFile))
}

// LoadConfigFs loads configuration from a file on fs.
func LoadConfigFs(fs afero.Fs, configFile string) (*Config, error) {
	return load(newViper(fs, configFile))
}

func newViper(fs afero.Fs, configFile string) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-link/")
		v.AddConfigPath("$HOME/.modbus-link")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("log.level", "info")
	return v
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("failed to find config file: %w", err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Links) == 0 {
		return nil, &FieldError{Field: "links", Err: ErrMissing}
	}
	// Validate / Fixups
	for i := range config.Links {
		l := &config.Links[i]
		if l.Name == "" {
			l.Name = fmt.Sprintf("link%d", i)
		}
		if err := fixupLink(l); err != nil {
			return nil, err
		}
	}

	return &config, nil
}

// Watch loads the configuration and then reloads it whenever the file
// changes, handing every valid revision to fn. Invalid revisions are logged
// and skipped. fn runs on the watcher goroutine.
func Watch(configFile string, fn func(*Config)) (*Config, error) {
	v := newViper(afero.NewOsFs(), configFile)
	cfg, err := load(v)
	if err != nil {
		return nil, err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			slog.Warn("Ignoring invalid configuration change", "file", e.Name, "err", err)
			return
		}
		slog.Info("Configuration reloaded", "file", e.Name)
		fn(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Parity == "" {
		s.Parity = "N"
	}
	if s.Driver == "" {
		s.Driver = "gridx"
	}
	if s.BaudRate == 0 {
		s.BaudRate = modbus.DefaultBaudRate
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}

// Engine converts the link settings to the engine configuration.
func (l *LinkConfig) Engine() link.Config {
	role, _ := link.ParseRole(l.Role)
	mode, _ := modbus.ParseMode(l.Mode)
	return link.Config{
		Role:           role,
		Mode:           mode,
		Address:        byte(l.Address),
		PeerAddress:    byte(l.PeerAddress),
		BaudRate:       l.BaudRate,
		ReceiveTimeout: l.ReceiveTimeout,
		SendTimeout:    l.SendTimeout,
		RegisterLimit:  l.RegisterLimit,
		QueueSize:      l.QueueSize,
		FastMode:       l.FastMode,
	}
}

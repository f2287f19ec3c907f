package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/lossyudp/internal/protocol"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultSenderBind  = "0.0.0.0:3000"
	DefaultLogHost     = "127.0.0.1"
	DefaultLogPort     = 9100
	DefaultCodec       = "json"
	DefaultTimeout     = "1s"
	DefaultMaxRetries  = 3
	DefaultRelayListen = "0.0.0.0"
)

type SenderConfig struct {
	TargetIP   string `toml:"target_ip"`
	TargetPort int    `toml:"target_port"`
	Bind       string `toml:"bind"`
	Timeout    string `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
	LogHost    string `toml:"log_host"`
	LogPort    int    `toml:"log_port"`
	Codec      string `toml:"codec"`
}

type ReceiverConfig struct {
	ListenIP    string `toml:"listen_ip"`
	ListenPort  int    `toml:"listen_port"`
	LogHost     string `toml:"log_host"`
	LogPort     int    `toml:"log_port"`
	Codec       string `toml:"codec"`
	DedupWindow int    `toml:"dedup_window"`
}

// ImpairmentConfig is one direction of relay impairment. Delays are milliseconds.
type ImpairmentConfig struct {
	Drop       float64 `toml:"drop"`
	Delay      float64 `toml:"delay"`
	DelayMinMS int64   `toml:"delay_min_ms"`
	DelayMaxMS int64   `toml:"delay_max_ms"`
	Seed       int64   `toml:"seed"`
}

type RelayConfig struct {
	ListenIP         string           `toml:"listen_ip"`
	ListenPort       int              `toml:"listen_port"`
	TargetIP         string           `toml:"target_ip"`
	TargetPort       int              `toml:"target_port"`
	LogPort          int              `toml:"log_port"`
	HTTPAddr         string           `toml:"http_addr"`
	CorsOrigins      []string         `toml:"cors_origins"`
	ValidateUpstream bool             `toml:"validate_upstream"`
	Client           ImpairmentConfig `toml:"client"`
	Server           ImpairmentConfig `toml:"server"`
}

func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Bind:       DefaultSenderBind,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		LogHost:    DefaultLogHost,
		LogPort:    DefaultLogPort,
		Codec:      DefaultCodec,
	}
}

func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		LogHost: DefaultLogHost,
		LogPort: DefaultLogPort,
		Codec:   DefaultCodec,
	}
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		ListenIP:         DefaultRelayListen,
		LogPort:          DefaultLogPort,
		ValidateUpstream: true,
		Client:           ImpairmentConfig{Seed: 42},
		Server:           ImpairmentConfig{Seed: 43},
	}
}

// LoadSenderConfig reads path over the defaults and validates the result.
func LoadSenderConfig(path string) (SenderConfig, error) {
	cfg := DefaultSenderConfig()
	if err := loadToml(path, &cfg); err != nil {
		return SenderConfig{}, err
	}
	if err := ValidateSenderConfig(cfg); err != nil {
		return SenderConfig{}, err
	}
	return cfg, nil
}

func LoadReceiverConfig(path string) (ReceiverConfig, error) {
	cfg := DefaultReceiverConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ReceiverConfig{}, err
	}
	if err := ValidateReceiverConfig(cfg); err != nil {
		return ReceiverConfig{}, err
	}
	return cfg, nil
}

func LoadRelayConfig(path string) (RelayConfig, error) {
	cfg := DefaultRelayConfig()
	if err := loadToml(path, &cfg); err != nil {
		return RelayConfig{}, err
	}
	if err := ValidateRelayConfig(cfg); err != nil {
		return RelayConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateSenderConfig(cfg SenderConfig) error {
	if strings.TrimSpace(cfg.TargetIP) == "" {
		return fmt.Errorf("%w: sender missing target_ip", ErrInvalidConfig)
	}
	if err := validatePort("target_port", cfg.TargetPort, false); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Bind) == "" {
		return fmt.Errorf("%w: sender missing bind", ErrInvalidConfig)
	}
	d, err := time.ParseDuration(strings.TrimSpace(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("%w: sender timeout: %v", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: sender timeout must be positive", ErrInvalidConfig)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("%w: sender max_retries must not be negative", ErrInvalidConfig)
	}
	if err := validatePort("log_port", cfg.LogPort, true); err != nil {
		return err
	}
	return validateCodec(cfg.Codec)
}

func ValidateReceiverConfig(cfg ReceiverConfig) error {
	if strings.TrimSpace(cfg.ListenIP) == "" {
		return fmt.Errorf("%w: receiver missing listen_ip", ErrInvalidConfig)
	}
	if err := validatePort("listen_port", cfg.ListenPort, false); err != nil {
		return err
	}
	if err := validatePort("log_port", cfg.LogPort, true); err != nil {
		return err
	}
	if cfg.DedupWindow < 0 {
		return fmt.Errorf("%w: receiver dedup_window must not be negative", ErrInvalidConfig)
	}
	return validateCodec(cfg.Codec)
}

func ValidateRelayConfig(cfg RelayConfig) error {
	if strings.TrimSpace(cfg.ListenIP) == "" {
		return fmt.Errorf("%w: relay missing listen_ip", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.TargetIP) == "" {
		return fmt.Errorf("%w: relay missing target_ip", ErrInvalidConfig)
	}
	if err := validatePort("listen_port", cfg.ListenPort, true); err != nil {
		return err
	}
	if err := validatePort("target_port", cfg.TargetPort, false); err != nil {
		return err
	}
	if err := validatePort("log_port", cfg.LogPort, false); err != nil {
		return err
	}
	if err := validateImpairment("client", cfg.Client); err != nil {
		return err
	}
	return validateImpairment("server", cfg.Server)
}

func validateImpairment(side string, cfg ImpairmentConfig) error {
	if cfg.Drop < 0 || cfg.Drop > 1 {
		return fmt.Errorf("%w: %s drop %v outside [0,1]", ErrInvalidConfig, side, cfg.Drop)
	}
	if cfg.Delay < 0 || cfg.Delay > 1 {
		return fmt.Errorf("%w: %s delay %v outside [0,1]", ErrInvalidConfig, side, cfg.Delay)
	}
	if cfg.DelayMinMS < 0 || cfg.DelayMaxMS < 0 {
		return fmt.Errorf("%w: %s delay window must not be negative", ErrInvalidConfig, side)
	}
	return nil
}

// validatePort accepts 1..65535, and 0 when zeroOK (ephemeral).
func validatePort(name string, port int, zeroOK bool) error {
	if port == 0 && zeroOK {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %s %d out of range", ErrInvalidConfig, name, port)
	}
	return nil
}

func validateCodec(name string) error {
	if _, err := protocol.CodecByName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// HostPort joins host and port for dialing or binding.
func HostPort(host string, port int) string {
	return net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(port))
}

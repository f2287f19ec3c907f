package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/lossyudp/internal/config"
)

// sendctl config.toml keys; only keys present in the file override defaults.
type fileConfig struct {
	TargetIP   string `toml:"target_ip"`
	TargetPort int    `toml:"target_port"`
	Bind       string `toml:"bind"`
	Timeout    string `toml:"timeout"`
	TimeoutMS  int64  `toml:"timeout_ms"`
	MaxRetries int    `toml:"max_retries"`
	LogHost    string `toml:"log_host"`
	LogPort    int    `toml:"log_port"`
	Codec      string `toml:"codec"`
}

func loadFileConfig(path string, cfg *config.SenderConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load sendctl config: %w", err)
	}
	if meta.IsDefined("target_ip") {
		cfg.TargetIP = strings.TrimSpace(raw.TargetIP)
	}
	if meta.IsDefined("target_port") {
		cfg.TargetPort = raw.TargetPort
	}
	if meta.IsDefined("bind") {
		cfg.Bind = strings.TrimSpace(raw.Bind)
	}
	if meta.IsDefined("timeout") {
		cfg.Timeout = strings.TrimSpace(raw.Timeout)
	}
	if meta.IsDefined("timeout_ms") {
		cfg.Timeout = (time.Duration(raw.TimeoutMS) * time.Millisecond).String()
	}
	if meta.IsDefined("max_retries") {
		cfg.MaxRetries = raw.MaxRetries
	}
	if meta.IsDefined("log_host") {
		cfg.LogHost = strings.TrimSpace(raw.LogHost)
	}
	if meta.IsDefined("log_port") {
		cfg.LogPort = raw.LogPort
	}
	if meta.IsDefined("codec") {
		cfg.Codec = strings.TrimSpace(raw.Codec)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load sendctl config: unknown key %q", undecoded[0].String())
	}
	return nil
}

// resolveConfig layers defaults, the optional config file, then explicitly set flags.
func resolveConfig(args []string, stderr io.Writer) (config.SenderConfig, error) {
	fs := flag.NewFlagSet("sendctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := config.DefaultSenderConfig()
	path := fs.String("config", "", "optional TOML config file")
	targetIP := fs.String("target-ip", def.TargetIP, "receiver or relay ip")
	targetPort := fs.Int("target-port", def.TargetPort, "receiver or relay port")
	timeout := fs.Duration("timeout", time.Second, "ack wait per attempt (e.g. 500ms, 2s)")
	maxRetries := fs.Int("max-retries", def.MaxRetries, "retransmissions before a message fails")
	bind := fs.String("bind", def.Bind, "local udp address")
	logHost := fs.String("log-host", def.LogHost, "lifecycle event sink host")
	logPort := fs.Int("log-port", def.LogPort, "lifecycle event sink port (0 disables)")
	codec := fs.String("codec", def.Codec, "wire codec: json|msgpack")
	if err := fs.Parse(args); err != nil {
		return config.SenderConfig{}, err
	}

	cfg := def
	if *path != "" {
		if err := loadFileConfig(*path, &cfg); err != nil {
			return config.SenderConfig{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target-ip":
			cfg.TargetIP = *targetIP
		case "target-port":
			cfg.TargetPort = *targetPort
		case "timeout":
			cfg.Timeout = timeout.String()
		case "max-retries":
			cfg.MaxRetries = *maxRetries
		case "bind":
			cfg.Bind = *bind
		case "log-host":
			cfg.LogHost = *logHost
		case "log-port":
			cfg.LogPort = *logPort
		case "codec":
			cfg.Codec = *codec
		}
	})

	if err := config.ValidateSenderConfig(cfg); err != nil {
		return config.SenderConfig{}, err
	}
	return cfg, nil
}

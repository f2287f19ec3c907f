package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/lossyudp/internal/config"
)

type fileConfig struct {
	ListenIP    string `toml:"listen_ip"`
	ListenPort  int    `toml:"listen_port"`
	LogHost     string `toml:"log_host"`
	LogPort     int    `toml:"log_port"`
	Codec       string `toml:"codec"`
	DedupWindow int    `toml:"dedup_window"`
}

func loadFileConfig(path string, cfg *config.ReceiverConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load recvctl config: %w", err)
	}
	if meta.IsDefined("listen_ip") {
		cfg.ListenIP = strings.TrimSpace(raw.ListenIP)
	}
	if meta.IsDefined("listen_port") {
		cfg.ListenPort = raw.ListenPort
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
	if meta.IsDefined("dedup_window") {
		cfg.DedupWindow = raw.DedupWindow
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load recvctl config: unknown key %q", undecoded[0].String())
	}
	return nil
}

func resolveConfig(args []string, stderr io.Writer) (config.ReceiverConfig, error) {
	fs := flag.NewFlagSet("recvctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := config.DefaultReceiverConfig()
	path := fs.String("config", "", "optional TOML config file")
	listenIP := fs.String("listen-ip", def.ListenIP, "udp listen ip")
	listenPort := fs.Int("listen-port", def.ListenPort, "udp listen port")
	logHost := fs.String("log-host", def.LogHost, "lifecycle event sink host")
	logPort := fs.Int("log-port", def.LogPort, "lifecycle event sink port (0 disables)")
	codec := fs.String("codec", def.Codec, "wire codec: json|msgpack")
	dedup := fs.Int("dedup-window", def.DedupWindow, "remembered seq ids (0 keeps all)")
	if err := fs.Parse(args); err != nil {
		return config.ReceiverConfig{}, err
	}

	cfg := def
	if *path != "" {
		if err := loadFileConfig(*path, &cfg); err != nil {
			return config.ReceiverConfig{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen-ip":
			cfg.ListenIP = *listenIP
		case "listen-port":
			cfg.ListenPort = *listenPort
		case "log-host":
			cfg.LogHost = *logHost
		case "log-port":
			cfg.LogPort = *logPort
		case "codec":
			cfg.Codec = *codec
		case "dedup-window":
			cfg.DedupWindow = *dedup
		}
	})

	if err := config.ValidateReceiverConfig(cfg); err != nil {
		return config.ReceiverConfig{}, err
	}
	return cfg, nil
}

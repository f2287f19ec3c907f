package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/lossyudp/internal/config"
)

type impairmentFile struct {
	Drop       float64 `toml:"drop"`
	Delay      float64 `toml:"delay"`
	DelayMinMS int64   `toml:"delay_min_ms"`
	DelayMaxMS int64   `toml:"delay_max_ms"`
	Seed       int64   `toml:"seed"`
}

type fileConfig struct {
	ListenIP         string         `toml:"listen_ip"`
	ListenPort       int            `toml:"listen_port"`
	TargetIP         string         `toml:"target_ip"`
	TargetPort       int            `toml:"target_port"`
	LogPort          int            `toml:"log_port"`
	HTTPAddr         string         `toml:"http_addr"`
	CorsOrigins      []string       `toml:"cors_origins"`
	ValidateUpstream bool           `toml:"validate_upstream"`
	Client           impairmentFile `toml:"client"`
	Server           impairmentFile `toml:"server"`
}

func loadFileConfig(path string, cfg *config.RelayConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load relayctl config: %w", err)
	}
	if meta.IsDefined("listen_ip") {
		cfg.ListenIP = strings.TrimSpace(raw.ListenIP)
	}
	if meta.IsDefined("listen_port") {
		cfg.ListenPort = raw.ListenPort
	}
	if meta.IsDefined("target_ip") {
		cfg.TargetIP = strings.TrimSpace(raw.TargetIP)
	}
	if meta.IsDefined("target_port") {
		cfg.TargetPort = raw.TargetPort
	}
	if meta.IsDefined("log_port") {
		cfg.LogPort = raw.LogPort
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("validate_upstream") {
		cfg.ValidateUpstream = raw.ValidateUpstream
	}
	overlayImpairment(meta, "client", raw.Client, &cfg.Client)
	overlayImpairment(meta, "server", raw.Server, &cfg.Server)
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load relayctl config: unknown key %q", undecoded[0].String())
	}
	return nil
}

func overlayImpairment(meta toml.MetaData, table string, raw impairmentFile, cfg *config.ImpairmentConfig) {
	if meta.IsDefined(table, "drop") {
		cfg.Drop = raw.Drop
	}
	if meta.IsDefined(table, "delay") {
		cfg.Delay = raw.Delay
	}
	if meta.IsDefined(table, "delay_min_ms") {
		cfg.DelayMinMS = raw.DelayMinMS
	}
	if meta.IsDefined(table, "delay_max_ms") {
		cfg.DelayMaxMS = raw.DelayMaxMS
	}
	if meta.IsDefined(table, "seed") {
		cfg.Seed = raw.Seed
	}
}

func resolveConfig(args []string, stderr io.Writer) (config.RelayConfig, error) {
	fs := flag.NewFlagSet("relayctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := config.DefaultRelayConfig()
	path := fs.String("config", "", "optional TOML config file")
	listenIP := fs.String("listen-ip", def.ListenIP, "client-facing udp ip")
	listenPort := fs.Int("listen-port", def.ListenPort, "client-facing udp port")
	targetIP := fs.String("target-ip", def.TargetIP, "upstream receiver ip")
	targetPort := fs.Int("target-port", def.TargetPort, "upstream receiver port")
	clientDrop := fs.Float64("client-drop", def.Client.Drop, "client->server drop probability")
	serverDrop := fs.Float64("server-drop", def.Server.Drop, "server->client drop probability")
	clientDelay := fs.Float64("client-delay", def.Client.Delay, "client->server delay probability")
	serverDelay := fs.Float64("server-delay", def.Server.Delay, "server->client delay probability")
	clientMin := fs.Int64("client-delay-time-min", def.Client.DelayMinMS, "client->server min delay ms")
	clientMax := fs.Int64("client-delay-time-max", def.Client.DelayMaxMS, "client->server max delay ms")
	serverMin := fs.Int64("server-delay-time-min", def.Server.DelayMinMS, "server->client min delay ms")
	serverMax := fs.Int64("server-delay-time-max", def.Server.DelayMaxMS, "server->client max delay ms")
	clientSeed := fs.Int64("client-seed", def.Client.Seed, "client->server rng seed")
	serverSeed := fs.Int64("server-seed", def.Server.Seed, "server->client rng seed")
	logPort := fs.Int("log-port", def.LogPort, "tcp port for lifecycle events")
	httpAddr := fs.String("http-addr", def.HTTPAddr, "optional dashboard http address")
	validate := fs.Bool("validate-upstream", def.ValidateUpstream, "discard server-side datagrams from other sources")
	if err := fs.Parse(args); err != nil {
		return config.RelayConfig{}, err
	}

	cfg := def
	if *path != "" {
		if err := loadFileConfig(*path, &cfg); err != nil {
			return config.RelayConfig{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen-ip":
			cfg.ListenIP = *listenIP
		case "listen-port":
			cfg.ListenPort = *listenPort
		case "target-ip":
			cfg.TargetIP = *targetIP
		case "target-port":
			cfg.TargetPort = *targetPort
		case "client-drop":
			cfg.Client.Drop = *clientDrop
		case "server-drop":
			cfg.Server.Drop = *serverDrop
		case "client-delay":
			cfg.Client.Delay = *clientDelay
		case "server-delay":
			cfg.Server.Delay = *serverDelay
		case "client-delay-time-min":
			cfg.Client.DelayMinMS = *clientMin
		case "client-delay-time-max":
			cfg.Client.DelayMaxMS = *clientMax
		case "server-delay-time-min":
			cfg.Server.DelayMinMS = *serverMin
		case "server-delay-time-max":
			cfg.Server.DelayMaxMS = *serverMax
		case "client-seed":
			cfg.Client.Seed = *clientSeed
		case "server-seed":
			cfg.Server.Seed = *serverSeed
		case "log-port":
			cfg.LogPort = *logPort
		case "http-addr":
			cfg.HTTPAddr = *httpAddr
		case "validate-upstream":
			cfg.ValidateUpstream = *validate
		}
	})

	if err := config.ValidateRelayConfig(cfg); err != nil {
		return config.RelayConfig{}, err
	}
	return cfg, nil
}

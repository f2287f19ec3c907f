package main

import (
	"flag"
	"os"

	"github.com/danmuck/lossyudp/internal/config"
	"github.com/danmuck/lossyudp/internal/logging"
	"github.com/danmuck/lossyudp/internal/logs"
)

func fatalf(format string, args ...any) {
	logs.Errf(format, args...)
	os.Exit(1)
}

func defaultPath(kind string) string {
	switch kind {
	case "sender":
		return "cmd/sendctl/config.toml"
	case "receiver":
		return "cmd/recvctl/config.toml"
	case "relay":
		return "cmd/relayctl/config.toml"
	default:
		fatalf("unknown kind: %s", kind)
		return ""
	}
}

func main() {
	kind := flag.String("kind", "relay", "config kind: sender|receiver|relay")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()
	logging.ConfigureRuntime()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}

		var err error
		switch *kind {
		case "sender":
			_, err = config.LoadSenderConfig(path)
		case "receiver":
			_, err = config.LoadReceiverConfig(path)
		case "relay":
			_, err = config.LoadRelayConfig(path)
		default:
			fatalf("unknown kind: %s", *kind)
		}
		if err != nil {
			fatalf("configgen: %v", err)
		}
		logs.Infof("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		fatalf("configgen: %v", err)
	}
	logs.Infof("Wrote %s config template to %s", *kind, target)
}

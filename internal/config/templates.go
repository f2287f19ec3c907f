package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "sender":
		return senderTemplate, nil
	case "receiver":
		return receiverTemplate, nil
	case "relay":
		return relayTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const senderTemplate = `target_ip = "127.0.0.1"
target_port = 4000
bind = "0.0.0.0:3000"
timeout = "1s"
max_retries = 3
log_host = "127.0.0.1"
log_port = 9100
codec = "json"
`

const receiverTemplate = `listen_ip = "127.0.0.1"
listen_port = 5000
log_host = "127.0.0.1"
log_port = 9100
codec = "json"
# 0 keeps every seq for the life of the process
dedup_window = 0
`

const relayTemplate = `listen_ip = "0.0.0.0"
listen_port = 4000
target_ip = "127.0.0.1"
target_port = 5000
log_port = 9100
http_addr = ""
cors_origins = ["http://localhost:3000"]
validate_upstream = true

[client]
drop = 0.1
delay = 0.2
delay_min_ms = 50
delay_max_ms = 250
seed = 42

[server]
drop = 0.1
delay = 0.2
delay_min_ms = 50
delay_max_ms = 250
seed = 43
`

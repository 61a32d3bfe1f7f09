package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	KindServer = "server"
	KindClient = "client"
)

func durationString(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	return d.String()
}

func serverTemplateFile() serverFile {
	cfg := DefaultServerConfig()
	return serverFile{
		Addr:           cfg.Addr,
		MetricsAddr:    "127.0.0.1:9744",
		MaxConnections: cfg.MaxConnections,
		ReadTimeout:    durationString(cfg.ReadTimeout),
		WriteTimeout:   durationString(cfg.WriteTimeout),
		MaxStringBytes: cfg.MaxStringBytes,
		MaxCount:       cfg.MaxCount,
		MaxDepth:       cfg.MaxDepth,
	}
}

func clientTemplateFile() clientFile {
	cfg := DefaultClientConfig()
	return clientFile{
		Addr:               cfg.Addr,
		ConnectTimeout:     durationString(cfg.ConnectTimeout),
		MaxConnectAttempts: cfg.MaxConnectAttempts,
		ReadTimeout:        durationString(cfg.ReadTimeout),
		WriteTimeout:       durationString(cfg.WriteTimeout),
		BackoffInitial:     durationString(cfg.Backoff.InitialDelay),
		BackoffMultiplier:  cfg.Backoff.Multiplier,
		BackoffMax:         durationString(cfg.Backoff.MaxDelay),
		BackoffJitter:      cfg.Backoff.Jitter,
	}
}

// Template renders the default config for kind in the format implied by
// path's extension (.yaml/.yml, otherwise TOML).
func Template(kind, path string) (string, error) {
	var v any
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindServer:
		v = serverTemplateFile()
	case KindClient:
		v = clientTemplateFile()
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}

	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		fmt.Fprintf(&buf, "# macroctl %s config\n", kind)
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		if err := enc.Close(); err != nil {
			return "", err
		}
	default:
		fmt.Fprintf(&buf, "# macroctl %s config\n", kind)
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind, path)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

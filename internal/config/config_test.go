package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/macroctl/internal/testutil/testlog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServerConfigTOMLOverlay(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "server.toml", `
addr = "0.0.0.0:59905"
max_connections = 8
read_timeout = "2m"
max_depth = 32
`)
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultServerConfig()
	if cfg.Addr != "0.0.0.0:59905" || cfg.MaxConnections != 8 || cfg.ReadTimeout != 2*time.Minute || cfg.MaxDepth != 32 {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.WriteTimeout != def.WriteTimeout || cfg.MaxStringBytes != def.MaxStringBytes {
		t.Fatalf("undefined keys should keep defaults: %+v", cfg)
	}

	tc := cfg.Transport()
	if tc.ListenAddr != cfg.Addr || tc.MaxConnections != 8 || tc.Stream.Limits.MaxDepth != 32 {
		t.Fatalf("transport mapping mismatch: %+v", tc)
	}
}

func TestLoadServerConfigZeroValuesAreHonored(t *testing.T) {
	path := writeFile(t, "server.toml", "max_connections = 0\nwrite_timeout = \"0\"\n")
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxConnections != 0 || cfg.WriteTimeout != 0 {
		t.Fatalf("explicit zero overridden by defaults: %+v", cfg)
	}
}

func TestLoadServerConfigYAML(t *testing.T) {
	path := writeFile(t, "server.yaml", "addr: 127.0.0.1:7000\nmetrics_addr: 127.0.0.1:7001\n")
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" || cfg.MetricsAddr != "127.0.0.1:7001" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	for _, name := range []string{"server.toml", "server.yaml"} {
		t.Run(name, func(t *testing.T) {
			content := "adr = \"x\"\n"
			if filepath.Ext(name) == ".yaml" {
				content = "adr: x\n"
			}
			if _, err := LoadServerConfig(writeFile(t, name, content)); err == nil {
				t.Fatalf("expected unknown key error")
			}
		})
	}
}

func TestLoadServerConfigBadDuration(t *testing.T) {
	path := writeFile(t, "server.toml", "read_timeout = \"soon\"\n")
	_, err := LoadServerConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestServerEnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, "10.0.0.1:1")
	t.Setenv(EnvMetricsAddr, "10.0.0.1:2")
	t.Setenv(EnvMaxConnections, "3")
	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "10.0.0.1:1" || cfg.MetricsAddr != "10.0.0.1:2" || cfg.MaxConnections != 3 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	t.Setenv(EnvMaxConnections, "many")
	if _, err := LoadServerConfig(""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadClientConfig(t *testing.T) {
	path := writeFile(t, "client.toml", `
addr = "server:59905"
max_connect_attempts = 2
backoff_initial = "10ms"
backoff_jitter = false
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "server:59905" || cfg.MaxConnectAttempts != 2 || cfg.Backoff.InitialDelay != 10*time.Millisecond || cfg.Backoff.Jitter {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if tc := cfg.Transport(); tc.MaxConnectAttempts != 2 || tc.Backoff.InitialDelay != 10*time.Millisecond {
		t.Fatalf("transport mapping mismatch: %+v", tc)
	}
}

func TestValidateClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.Backoff.Multiplier = 0.5
	if err := ValidateClientConfig(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestTemplatesRoundTrip(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	for _, tc := range []struct{ kind, name string }{
		{KindServer, "server.toml"},
		{KindServer, "server.yaml"},
		{KindClient, "client.toml"},
		{KindClient, "client.yml"},
	} {
		path := filepath.Join(dir, tc.name)
		if err := WriteTemplate(path, tc.kind, false); err != nil {
			t.Fatalf("write %s: %v", tc.name, err)
		}
		if err := WriteTemplate(path, tc.kind, false); err == nil {
			t.Fatalf("expected refusal to overwrite %s", tc.name)
		}
		var err error
		if tc.kind == KindServer {
			_, err = LoadServerConfig(path)
		} else {
			_, err = LoadClientConfig(path)
		}
		if err != nil {
			t.Fatalf("template %s does not load: %v", tc.name, err)
		}
	}
	if _, err := Template("proxy", "x.toml"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

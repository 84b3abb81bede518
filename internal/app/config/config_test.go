package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
app:
  name: redaxion-backend
  env: test
  log_level: debug
  base_url: https://api.example.com
  frontend_url: https://front.example.com
server:
  port: "9090"
mysql:
  dsn: user:pass@tcp(127.0.0.1:3306)/redaxion
redis:
  addr: 127.0.0.1:6379
flow:
  base_url: https://sandbox.flow.cl/api
  api_key: fk
  api_secret: fs
mercadopago:
  base_url: https://api.mercadopago.com
  access_token: mp
  sandbox: true
smtp:
  host: smtp.example.com
  port: 587
pricing:
  transcription: 5990
  exam: 7990
  meeting: 5990
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("wrong port: %s", cfg.Server.Port)
	}
	if cfg.Pricing.Exam != 7990 {
		t.Errorf("wrong exam price: %d", cfg.Pricing.Exam)
	}
	if !cfg.MercadoPago.Sandbox {
		t.Error("sandbox flag must be set")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_DefaultPort(t *testing.T) {
	content := testYAML
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Server.Port = ""
	if got := cfg.GetServerPort(); got != "8080" {
		t.Errorf("expected default port 8080, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dsn", func(c *Config) { c.MySQL.DSN = "" }},
		{"missing redis", func(c *Config) { c.Redis.Addr = "" }},
		{"missing base url", func(c *Config) { c.App.BaseURL = "" }},
		{"missing flow creds", func(c *Config) { c.Flow.APISecret = "" }},
		{"missing mp token", func(c *Config) { c.MercadoPago.AccessToken = "" }},
		{"missing smtp host", func(c *Config) { c.SMTP.Host = "" }},
		{"zero price", func(c *Config) { c.Pricing.Meeting = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clone := *cfg
			tc.mutate(&clone)
			if err := clone.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

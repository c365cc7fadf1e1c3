package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("API_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOGIN_RATE_WINDOW", "2m")
	t.Setenv("AUTH_GENERIC_LOGIN_ERRORS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "9090" || cfg.DBDriver != DriverSQLite {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.LoginRateWindow != 2*time.Minute {
		t.Errorf("LoginRateWindow = %v", cfg.LoginRateWindow)
	}
	if !cfg.GenericLoginErrors {
		t.Errorf("GenericLoginErrors not set")
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.0.2.7" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
	if cfg.DefaultPageSize != 10 {
		t.Errorf("DefaultPageSize default = %d", cfg.DefaultPageSize)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DB_DRIVER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := "api_port: \"7070\"\ndb_driver: sqlite\nsqlite_path: /tmp/x.db\ndefault_page_size: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "7070" || cfg.SQLitePath != "/tmp/x.db" || cfg.DefaultPageSize != 5 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "blog", DBSslMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=blog sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("PostgresDSN() = %q", got)
	}
}

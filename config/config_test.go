package config

import (
	"testing"
	"time"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(mapEnv(nil))

	if cfg.StoreBackend != BackendCSV {
		t.Errorf("StoreBackend: got %q, want %q", cfg.StoreBackend, BackendCSV)
	}
	if cfg.LocalCSV != "cricauction_upcoming.csv" {
		t.Errorf("LocalCSV: got %q", cfg.LocalCSV)
	}
	if cfg.MaxPages != 500 || cfg.StagnantPageLimit != 1 {
		t.Errorf("pagination defaults: got %d/%d, want 500/1", cfg.MaxPages, cfg.StagnantPageLimit)
	}
	if cfg.PageChangeTimeout != 6*time.Second {
		t.Errorf("PageChangeTimeout: got %v, want 6s", cfg.PageChangeTimeout)
	}
	if !cfg.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.WorksheetName != DefaultWorksheet {
		t.Errorf("WorksheetName: got %q", cfg.WorksheetName)
	}
}

func TestFromEnvOverridesAndBadValues(t *testing.T) {
	cfg := FromEnv(mapEnv(map[string]string{
		"STORE_BACKEND":          "SQLite",
		"MAX_PAGES":              "12",
		"STAGNANT_PAGE_LIMIT":    "nope",
		"HEADLESS":               "false",
		"PAGE_CHANGE_TIMEOUT_MS": "1500",
		"LOCAL_CSV":              "   ",
	}))

	if cfg.StoreBackend != BackendSQLite {
		t.Errorf("StoreBackend: got %q, want %q", cfg.StoreBackend, BackendSQLite)
	}
	if cfg.MaxPages != 12 {
		t.Errorf("MaxPages: got %d, want 12", cfg.MaxPages)
	}
	if cfg.StagnantPageLimit != 1 {
		t.Errorf("invalid int should fall back, got %d", cfg.StagnantPageLimit)
	}
	if cfg.Headless {
		t.Error("Headless should be false")
	}
	if cfg.PageChangeTimeout != 1500*time.Millisecond {
		t.Errorf("PageChangeTimeout: got %v", cfg.PageChangeTimeout)
	}
	if cfg.LocalCSV != "cricauction_upcoming.csv" {
		t.Errorf("blank value should fall back, got %q", cfg.LocalCSV)
	}
}

func TestResolveCredentials(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Credentials
	}{
		{"none", nil, NoSync{}},
		{
			"graph",
			map[string]string{"TENANT_ID": "t", "CLIENT_ID": "c", "CLIENT_SECRET": "s", "CB_EMAIL": "e", "CB_PASSWORD": "p"},
			GraphCredentials{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		},
		{"partial graph", map[string]string{"TENANT_ID": "t", "CLIENT_ID": "c"}, NoSync{}},
		{"portal", map[string]string{"CB_EMAIL": "e", "CB_PASSWORD": "p"}, PortalCredentials{Email: "e", Password: "p"}},
		{"blank secret", map[string]string{"TENANT_ID": "t", "CLIENT_ID": "c", "CLIENT_SECRET": "  "}, NoSync{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveCredentials(mapEnv(tt.env)); got != tt.want {
				t.Errorf("ResolveCredentials() = %#v; want %#v", got, tt.want)
			}
		})
	}
}

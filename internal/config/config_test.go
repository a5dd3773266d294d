package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// unsetEnv 清除变量并在测试结束后恢复；godotenv 不会覆盖已存在（即使为空）的变量。
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	unsetEnv(t, "COC_API_TOKEN", "CLAN_TAG", "DATABASE_DSN")
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "settings.yaml", "CLAN_TAG: '2pp'\nAPI:\n  TOKEN: from-file\n")
	c, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ClanTag != "#2PP" {
		t.Fatalf("tag not normalized: %q", c.ClanTag)
	}
	if c.API.BaseURL != DefaultBaseURL || c.API.TimeoutSeconds != 25 || c.Sync.IntervalSeconds != 300 {
		t.Fatalf("defaults not applied: %+v %+v", c.API, c.Sync)
	}
	if c.Database.Type != "sqlite" || c.Database.DSN == "" {
		t.Fatalf("db defaults not applied: %+v", c.Database)
	}
	if c.LogFormat != "pretty" || c.LogLocale != "zh-CN" || c.LogColor != "auto" {
		t.Fatalf("log defaults missing: %+v", c)
	}

	envPath := writeFile(t, dir, ".env", "COC_API_TOKEN=from-dotenv\n")
	c, err = Load(cfgPath, envPath)
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if c.API.Token != "from-dotenv" {
		t.Fatalf("token=%q want from-dotenv", c.API.Token)
	}
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "settings.yaml", "CLAN_TAG: '#2PP'\nAPI:\n  TOKEN: x\n")
	if _, err := Load(cfgPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	unsetEnv(t, "COC_API_TOKEN", "CLAN_TAG", "DATABASE_DSN")
	dir := t.TempDir()
	cases := map[string]string{
		"no token":     "CLAN_TAG: '#2PP'\n",
		"no tag":       "API:\n  TOKEN: x\n",
		"bad format":   "CLAN_TAG: '#2PP'\nAPI:\n  TOKEN: x\nLOG_FORMAT: xml\n",
		"short sync":   "CLAN_TAG: '#2PP'\nAPI:\n  TOKEN: x\nSYNC:\n  INTERVAL_SECONDS: 1\n",
		"bad database": "CLAN_TAG: '#2PP'\nAPI:\n  TOKEN: x\nDATABASE:\n  type: postgres\n",
	}
	for name, body := range cases {
		p := writeFile(t, dir, "c.yaml", body)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{"": "", "abc": "#ABC", " #2pOo ": "#2P00", "#9L9": "#9L9"}
	for in, want := range cases {
		if got := NormalizeTag(in); got != want {
			t.Fatalf("NormalizeTag(%q)=%q want %q", in, got, want)
		}
	}
}

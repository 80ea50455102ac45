package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/profile"
	"github.com/matzehuels/decrepit/pkg/source"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := write(t, `
workers = 3
timeout = "5s"
cache_backend = "redis"
redis_addr = "localhost:6379"
slow = ["nixos", "freebsd"]

[sources.alpine]
url = "https://pkgs.alpinelinux.org/packages?name=rust&branch={release}"
xpath = "//td[@class='version']/text()"
regex = '(?P<version>\d+[.]\d+[.]\d+)'

[sources.alpine-edge]
alias = "alpine"

[sources.devuan]
url = "https://pkginfo.devuan.org/{release}/rustc"
inherits = "debian"

[[profiles]]
date = "2018-01-01"
releases = { alpine = "v3.7", debian = "stretch" }
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workers != 3 || cfg.Timeout != 5*time.Second {
		t.Errorf("Workers, Timeout = %d, %s, want 3, 5s", cfg.Workers, cfg.Timeout)
	}
	if cfg.CacheBackend != BackendRedis || cfg.RedisConfig().Addr != "localhost:6379" {
		t.Errorf("unexpected cache settings: %+v", cfg)
	}
	if cfg.CacheDir != DefaultCacheDir() {
		t.Errorf("CacheDir = %q, want default %q", cfg.CacheDir, DefaultCacheDir())
	}
	if diff := cmp.Diff([]string{"nixos", "freebsd"}, cfg.Slow); diff != "" {
		t.Errorf("Slow mismatch (-want +got):\n%s", diff)
	}

	defs := cfg.Definitions()
	if defs["alpine-edge"].Kind != source.KindAlias || defs["alpine-edge"].Alias != "alpine" {
		t.Errorf("alpine-edge = %+v, want alias of alpine", defs["alpine-edge"])
	}
	if got := defs["devuan"].Rule; got.Inherits != "debian" || got.XPath != "" {
		t.Errorf("devuan rule = %+v", got)
	}
	if got := defs["alpine"].Rule.XPath; got != "//td[@class='version']/text()" {
		t.Errorf("alpine xpath = %q", got)
	}

	profiles := cfg.AllProfiles()
	if len(profiles) != 3 || profiles[0].Date != "2018-01-01" {
		t.Errorf("AllProfiles() dates = %v", dates(profiles))
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(write(t, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty file should yield defaults (-want +got):\n%s", diff)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadOptional() error: %v", err)
	}
	if cfg.Workers != Default().Workers {
		t.Errorf("Workers = %d, want default", cfg.Workers)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("Load(missing) error = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, content, want string
	}{
		{"syntax", "workers = ", ""},
		{"unknown key", "wrokers = 3", "wrokers"},
		{"negative workers", "workers = -1", "workers"},
		{"backend", `cache_backend = "s3"`, "cache_backend"},
		{"redis without addr", `cache_backend = "redis"`, "redis_addr"},
		{"alias and rule", "[sources.x]\nalias = \"debian\"\nurl = \"https://x\"", "alias cannot"},
		{"empty source", "[sources.x]\ninherits = \"\"", "needs alias"},
		{"bad url", "[sources.x]\nurl = \"ftp://x/{release}\"", "source x"},
		{"bad name", "[sources.X]\nalias = \"debian\"", "sources"},
		{"bad profile", "[[profiles]]\ndate = \"soon\"", "profile date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.content))
			if !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Fatalf("Load() error = %v, want CONFIGURATION_ERROR", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestAllProfilesReplacesSameDate(t *testing.T) {
	cfg := Default()
	cfg.Profiles = append(cfg.Profiles, profileAt("2017-03-16", "debian", "wheezy"))
	profiles := cfg.AllProfiles()
	if len(profiles) != 2 {
		t.Fatalf("AllProfiles() = %v, want 2 profiles", dates(profiles))
	}
	if got := profiles[1].Releases["debian"]; got != "wheezy" {
		t.Errorf("2017-03-16 debian = %q, want wheezy", got)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")
	got, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/etc/xdg", "decrepit", "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func profileAt(date string, kv ...string) profile.Profile {
	p := profile.Profile{Date: date, Releases: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Releases[kv[i]] = kv[i+1]
	}
	return p
}

func dates(profiles []profile.Profile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Date
	}
	return out
}

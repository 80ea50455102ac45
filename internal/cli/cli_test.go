package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/decrepit/pkg/errors"
)

// pages serves one rustc version per path and a 500 for /broken.
func pages(t *testing.T) *httptest.Server {
	t.Helper()
	versions := map[string]string{
		"/alpha/one": "1.20.0",
		"/beta/two":  "1.18.0",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := versions[r.URL.Path]
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "<html><body><h1>rustc %s-1</h1></body></html>", v)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testCLI returns a CLI whose config defines alpha, beta and gamma against
// srv plus a 2030-01-01 profile using only those sources.
func testCLI(t *testing.T, srv *httptest.Server) (*CLI, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := fmt.Sprintf(`
cache_backend = "none"
slow = ["gamma"]

[sources.alpha]
url = "%[1]s/alpha/{release}"
xpath = "//h1/text()"
regex = 'rustc (?P<version>\d+[.]\d+[.]\d+)'

[sources.beta]
url = "%[1]s/beta/{release}"
inherits = "alpha"

[sources.gamma]
url = "%[1]s/broken"
inherits = "alpha"

[[profiles]]
date = "2030-01-01"
releases = { alpha = "one", beta = "two", gamma = "three" }
`, srv.URL)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out
	c.configPath = path
	c.now = func() time.Time { return time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC) }
	return c, &out
}

func execute(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestCheckMinimum(t *testing.T) {
	c, out := testCLI(t, pages(t))
	if err := execute(t, c, "--config", c.configPath); err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	if got := out.String(); got != "1.18.0\n" {
		t.Errorf("output = %q, want %q", got, "1.18.0\n")
	}
}

func TestCheckAllJSON(t *testing.T) {
	c, out := testCLI(t, pages(t))
	if err := execute(t, c, "--config", c.configPath, "-a", "-J", "-R", "2030"); err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	var got []map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	want := []map[string]string{
		{"distro": "gamma", "release": "three", "version": "0.0.0"},
		{"distro": "beta", "release": "two", "version": "1.18.0"},
		{"distro": "alpha", "release": "one", "version": "1.20.0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckSelectionAndOverride(t *testing.T) {
	c, out := testCLI(t, pages(t))
	err := execute(t, c, "--config", c.configPath, "-a", "-J", "-R", "-d", "beta:one,alpha", "-d", "alpha")
	if err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	var got []map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := []map[string]string{
		{"distro": "beta", "release": "one", "version": "0.0.0"},
		{"distro": "alpha", "release": "one", "version": "1.20.0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckMarkdown(t *testing.T) {
	c, out := testCLI(t, pages(t))
	if err := execute(t, c, "--config", c.configPath, "-a", "-M", "--fast"); err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	if strings.Contains(out.String(), "gamma") {
		t.Errorf("--fast should skip gamma:\n%s", out)
	}
	if !strings.Contains(out.String(), "| beta") {
		t.Errorf("expected a pipe table:\n%s", out)
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"too old", []string{"2016-12"}, ExitError, "provided date `2016-12-01` is too old: no data available"},
		{"bad date", []string{"someday"}, ExitError, "invalid date"},
		{"unknown distro", []string{"-d", "hurd"}, ExitError, `unknown distro "hurd"`},
		{"no packages", []string{"-d", "gamma", "--fast"}, ExitNoPackages, "no packages found!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testCLI(t, pages(t))
			err := execute(t, c, append([]string{"--config", c.configPath}, tt.args...)...)
			if err == nil {
				t.Fatal("execute() error = nil")
			}
			if got := ExitCode(err); got != tt.code {
				t.Errorf("ExitCode() = %d, want %d (err: %v)", got, tt.code, err)
			}
			if got := ErrorMessage(err); !strings.Contains(got, tt.msg) {
				t.Errorf("ErrorMessage() = %q, want it to contain %q", got, tt.msg)
			}
		})
	}
}

func TestList(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out

	if err := execute(t, c, "list", "--no-cache", "2017-04-14"); err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	want := "arch, nixos, freebsd:2017Q1, freebsd-latest:2017Q2, fedora:24, fedora-latest:25, " +
		"opensuse:42.2, openbsd:6.0, openbsd-latest:6.1, debian:jessie, debian-unstable:sid, " +
		"debian-testing:stretch, ubuntu:xenial, ubuntu-latest:zesty\n"
	if out.String() != want {
		t.Errorf("list output:\n got %q\nwant %q", out.String(), want)
	}
}

func TestCachePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out

	if err := execute(t, c, "cache", "path"); err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != filepath.Join(os.TempDir(), appName) {
		t.Errorf("cache path = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{context.Canceled, ExitInterrupted},
		{fmt.Errorf("alpha: %w", context.Canceled), ExitInterrupted},
		{errNoPackages, ExitNoPackages},
		{errors.New(errors.ErrCodeInvalidInput, "bad"), ExitError},
		{stderrors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := errors.Wrap(errors.ErrCodeConfiguration,
		errors.New(errors.ErrCodeInvalidInput, "invalid source name: %q", "X"), "config %s", "c.toml")
	if got, want := ErrorMessage(err), `config c.toml: invalid source name: "X"`; got != want {
		t.Errorf("ErrorMessage() = %q, want %q", got, want)
	}
	if got := ErrorMessage(stderrors.New("plain")); got != "plain" {
		t.Errorf("ErrorMessage(plain) = %q", got)
	}
}

func TestServe(t *testing.T) {
	c, _ := testCLI(t, pages(t))
	c.noCache = true
	e, err := c.newEnv(context.Background())
	if err != nil {
		t.Fatalf("newEnv() error: %v", err)
	}
	defer e.Close()

	api := httptest.NewServer(newRouter(&server{env: e, now: c.now, logger: log.New(io.Discard)}))
	defer api.Close()

	get := func(path string, v any) int {
		t.Helper()
		resp, err := http.Get(api.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		return resp.StatusCode
	}

	var health map[string]string
	if code := get("/healthz", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("/healthz = %d %v", code, health)
	}

	var distros distrosResponse
	get("/distros", &distros)
	if distros.Profile != "2030-01-01" || distros.Releases["beta"] != "two" {
		t.Errorf("/distros = %+v", distros)
	}

	var versions versionsResponse
	if code := get("/versions?fast=true", &versions); code != http.StatusOK {
		t.Fatalf("/versions status = %d", code)
	}
	if len(versions.Results) != 2 || versions.Results[0]["distro"] != "beta" || versions.RunID == "" {
		t.Errorf("/versions = %+v", versions)
	}

	var minimum minimumResponse
	get("/minimum?distro=alpha", &minimum)
	if minimum.Version != "1.20.0" || minimum.Date != "2031-06-01" {
		t.Errorf("/minimum = %+v", minimum)
	}

	var bad errorResponse
	if code := get("/minimum?date=1999", &bad); code != http.StatusBadRequest || bad.Code != errors.ErrCodeInvalidInput {
		t.Errorf("/minimum?date=1999 = %d %+v", code, bad)
	}
	if code := get("/versions?fast=maybe", &bad); code != http.StatusBadRequest {
		t.Errorf("/versions?fast=maybe status = %d", code)
	}
}

func TestCompleteDistros(t *testing.T) {
	c, _ := testCLI(t, pages(t))
	got, _ := c.completeDistros(nil, nil, "debian,")
	for _, want := range []string{"debian,alpha", "debian,gamma", "debian,ubuntu-latest"} {
		if !slices.Contains(got, want) {
			t.Errorf("completeDistros() = %v, missing %q", got, want)
		}
	}
}

func TestCompletionScript(t *testing.T) {
	c, out := testCLI(t, pages(t))
	if err := execute(t, c, "completion", "bash"); err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	if !strings.Contains(out.String(), "decrepit") {
		t.Error("bash completion does not mention the command")
	}
}

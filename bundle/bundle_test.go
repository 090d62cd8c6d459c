package bundle

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnvFromString(t *testing.T) {
	cases := map[string]Env{
		"production":  Production,
		" Production": Production,
		"development": Development,
		"test":        Development,
		"":            Development,
	}
	for in, want := range cases {
		if got := EnvFromString(in); got != want {
			t.Errorf("EnvFromString(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestEnvFromEnviron(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	if got := EnvFromEnviron(); got != Production {
		t.Errorf("got %q, want production", got)
	}
}

func TestTargets_Production(t *testing.T) {
	ts := Targets(Production)
	if len(ts) != 2 {
		t.Fatalf("targets: got %d, want 2", len(ts))
	}
	b, lib := ts[0], ts[1]

	if b.Path("/w") != filepath.Join("/w", "dist", "onfido.min.js") {
		t.Errorf("browser path: got %q", b.Path("/w"))
	}
	if lib.Path("/w") != filepath.Join("/w", "lib", "index.js") {
		t.Errorf("library path: got %q", lib.Path("/w"))
	}
	for _, tg := range ts {
		if tg.Library != "Onfido" || tg.LibraryTarget != "umd" {
			t.Errorf("%s: library %q/%q", tg.Name, tg.Library, tg.LibraryTarget)
		}
		if !tg.Minify {
			t.Errorf("%s: production must minify", tg.Name)
		}
		if tg.Devtool != "source-map" {
			t.Errorf("%s: devtool got %q", tg.Name, tg.Devtool)
		}
		if tg.CSSSourceMaps {
			t.Errorf("%s: no css maps in production", tg.Name)
		}
		if tg.Defines["process.env.NODE_ENV"] != `"production"` {
			t.Errorf("%s: define got %q", tg.Name, tg.Defines["process.env.NODE_ENV"])
		}
	}
	if !b.ExtractCSS || !b.HTMLPage || b.AssetNames == "" {
		t.Errorf("browser target: %+v", b)
	}
	if lib.ExtractCSS || lib.HTMLPage || lib.AssetNames != "" {
		t.Errorf("library target: %+v", lib)
	}
}

func TestTargets_Development(t *testing.T) {
	for _, tg := range Targets(Development) {
		if tg.Minify {
			t.Errorf("%s: development must not minify", tg.Name)
		}
		if tg.Devtool != "cheap-module-eval-source-map" {
			t.Errorf("%s: devtool got %q", tg.Name, tg.Devtool)
		}
		if !tg.CSSSourceMaps || tg.ExtractCSS {
			t.Errorf("%s: css settings %+v", tg.Name, tg)
		}
	}
}

func TestTargets_DefinesNotShared(t *testing.T) {
	ts := Targets(Development)
	ts[0].Defines["x"] = "1"
	if _, ok := ts[1].Defines["x"]; ok {
		t.Error("library defines alias browser defines")
	}
}

func TestServerConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	s, err := NewServer(ServerConfig{Root: "testdata/dist"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr: got %q", s.Addr())
	}

	t.Setenv("PORT", "9123")
	s, err = NewServer(ServerConfig{Root: "testdata/dist", Host: "127.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Addr() != "127.0.0.1:9123" {
		t.Errorf("addr: got %q", s.Addr())
	}
}

func TestNewServer_BadRoot(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("empty root should fail")
	}
	if _, err := NewServer(ServerConfig{Root: "testdata/missing"}); err == nil {
		t.Error("missing root should fail")
	}
	if _, err := NewServer(ServerConfig{Root: "testdata/dist/index.html"}); err == nil {
		t.Error("file root should fail")
	}
}

func get(t *testing.T, base, p string) (int, string) {
	t.Helper()
	resp, err := http.Get(base + p)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServer_HistoryFallback(t *testing.T) {
	s, err := NewServer(ServerConfig{Root: "testdata/dist"})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	cases := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", 200, `id="onfido-mount"`},
		{"/onfido.min.js", 200, "var Onfido"},
		{"/cross-device/connected", 200, `id="onfido-mount"`},
		{"/missing.js", 404, ""},
	}
	for _, c := range cases {
		status, body := get(t, ts.URL, c.path)
		if status != c.wantStatus {
			t.Errorf("GET %s: status got %d, want %d", c.path, status, c.wantStatus)
		}
		if !strings.Contains(body, c.wantBody) {
			t.Errorf("GET %s: body %q does not contain %q", c.path, body, c.wantBody)
		}
	}
}

func TestServer_ListenAndServeStops(t *testing.T) {
	s, err := NewServer(ServerConfig{Root: "testdata/dist", Host: "127.0.0.1", Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	s.cfg.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + s.Addr() + "/")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// Command sdkcheck drives a browser against the rendered widget and checks
// every string on a screen against the locale dictionaries.
//
// Usage:
//
//	sdkcheck -config sdkcheck.yaml -screen cross_device_mobile_connected -lang es
//	sdkcheck -serve -screen document_upload_confirmation   # serve bundle.root and check it
//	sdkcheck -url http://localhost:8080/ -dump             # print the mount node as markdown
//	sdkcheck -list                                         # list known screens
//	sdkcheck -config sdkcheck.yaml -history 10             # recent stored runs
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hazyhaar/sdkcheck/browser"
	"github.com/hazyhaar/sdkcheck/bundle"
	"github.com/hazyhaar/sdkcheck/dom"
	"github.com/hazyhaar/sdkcheck/internal/config"
	"github.com/hazyhaar/sdkcheck/internal/store"
	"github.com/hazyhaar/sdkcheck/locale"
	"github.com/hazyhaar/sdkcheck/screens"
	"github.com/hazyhaar/sdkcheck/verify"
)

var errChecksFailed = errors.New("sdkcheck: checks failed")

type options struct {
	configPath string
	screen     string
	lang       string
	url        string
	dump       bool
	serve      bool
	list       bool
	history    int
	show       string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to sdkcheck.yaml")
	flag.StringVar(&o.screen, "screen", screens.CrossDeviceMobileConnectedName, "screen to check")
	flag.StringVar(&o.lang, "lang", "", "locale to check (default: widget.lang)")
	flag.StringVar(&o.url, "url", "", "widget URL (default: widget.url)")
	flag.BoolVar(&o.dump, "dump", false, "print the widget mount node as markdown and exit")
	flag.BoolVar(&o.serve, "serve", false, "serve bundle.root and point the browser at it")
	flag.BoolVar(&o.list, "list", false, "list known screens and exit")
	flag.IntVar(&o.history, "history", 0, "print the N most recent stored runs and exit")
	flag.StringVar(&o.show, "show", "", "print a stored run and its results and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, os.Stdout, o); err != nil {
		if !errors.Is(err, errChecksFailed) {
			logger.Error("sdkcheck: fatal", "error", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, stdout io.Writer, o options) error {
	if o.list {
		for _, n := range screens.Names() {
			fmt.Fprintln(stdout, n)
		}
		return nil
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.lang != "" {
		cfg.Widget.Lang = o.lang
	}
	if o.url != "" {
		cfg.Widget.URL = o.url
	}

	if o.history > 0 || o.show != "" {
		return runHistory(ctx, stdout, cfg, o)
	}

	if o.serve {
		u, err := serveBundle(ctx, logger, cfg)
		if err != nil {
			return err
		}
		if o.url == "" {
			cfg.Widget.URL = u
		}
	}
	if cfg.Widget.URL == "" {
		return errors.New("sdkcheck: no widget URL: set widget.url, -url or -serve")
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headful:          !cfg.Browser.Headless,
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, cfg.Widget.URL)
	if err != nil {
		return err
	}
	defer tab.Close()

	finder := dom.NewFinder(tab, dom.WithTimeout(cfg.Wait.Timeout), dom.WithPoll(cfg.Wait.Poll))

	if o.dump {
		return dump(ctx, stdout, finder)
	}
	return check(ctx, logger, stdout, cfg, finder, o.screen)
}

func serveBundle(ctx context.Context, logger *slog.Logger, cfg *config.Config) (string, error) {
	if cfg.Bundle.Root == "" {
		return "", errors.New("sdkcheck: -serve needs bundle.root")
	}
	target := bundle.Targets(bundle.EnvFromString(cfg.Bundle.Env))[0]
	root := filepath.Dir(target.Path(cfg.Bundle.Root))
	logger.Info("sdkcheck: serving bundle", "target", target.Name, "root", root, "minify", target.Minify)

	srv, err := bundle.NewServer(bundle.ServerConfig{
		Root:   root,
		Host:   cfg.Bundle.Host,
		Port:   cfg.Bundle.Port,
		Logger: logger,
	})
	if err != nil {
		return "", err
	}
	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return "", fmt.Errorf("sdkcheck: listen %s: %w", srv.Addr(), err)
	}
	go func() {
		if err := srv.Serve(ctx, ln); err != nil {
			logger.Error("sdkcheck: bundle server", "error", err)
		}
	}()

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	return "http://" + net.JoinHostPort("127.0.0.1", port) + "/", nil
}

func dump(ctx context.Context, w io.Writer, finder *dom.Finder) error {
	mount := finder.WaitElement("#onfido-mount")
	md, err := dom.Snapshot(ctx, mount)
	if err != nil {
		return fmt.Errorf("sdkcheck: dump: %w", err)
	}
	_, err = fmt.Fprintln(w, md)
	return err
}

func check(ctx context.Context, logger *slog.Logger, stdout io.Writer, cfg *config.Config, finder *dom.Finder, name string) error {
	catalog, err := locale.LoadDir(cfg.Locale.Dir,
		locale.WithDefault(cfg.Locale.Default), locale.WithLogger(logger))
	if err != nil {
		return err
	}
	scr, err := screens.New(name, screens.Deps{
		Finder:       finder,
		Catalog:      catalog,
		DocumentType: cfg.Widget.Document,
	})
	if err != nil {
		return err
	}
	c, err := catalog.Copy(cfg.Widget.Lang)
	if err != nil {
		return err
	}

	started := time.Now()
	v := verify.NewReport(logger)
	scr.VerifyUIElements(ctx, v, c)
	results := v.Results()

	enc := json.NewEncoder(stdout)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}

	rec := &store.Run{
		Screen:     scr.Name(),
		Lang:       c.Lang().String(),
		URL:        cfg.Widget.URL,
		StartedAt:  started.UnixMilli(),
		FinishedAt: time.Now().UnixMilli(),
	}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(ctx, rec, results); err != nil {
			return err
		}
	}

	logger.Info("sdkcheck: done",
		"screen", scr.Name(), "lang", c.Lang().String(), "run", rec.ID, "checks", len(results), "failed", v.Failed())
	if v.Failed() {
		return errChecksFailed
	}
	return nil
}

func runHistory(ctx context.Context, stdout io.Writer, cfg *config.Config, o options) error {
	if cfg.Store.Path == "" {
		return errors.New("sdkcheck: store.path is not configured")
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	enc := json.NewEncoder(stdout)
	if o.show != "" {
		r, err := st.GetRun(ctx, o.show)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("sdkcheck: run %s not found", o.show)
		}
		results, err := st.Results(ctx, r.ID)
		if err != nil {
			return err
		}
		return enc.Encode(struct {
			*store.Run
			Results []verify.Result `json:"results"`
		}{r, results})
	}

	runs, err := st.RecentRuns(ctx, o.history)
	if err != nil {
		return err
	}
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calgrid/internal/config"
	appLog "calgrid/internal/log"
	"calgrid/internal/recur"
	"calgrid/internal/sched"
	"calgrid/internal/source"
	"calgrid/internal/source/httpapi"
	"calgrid/internal/source/ics"
	"calgrid/internal/source/mem"
	"calgrid/internal/state"
	"calgrid/internal/visible"
	"calgrid/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	dump       bool
}

func main() {
	appLog.Info("calgrid starting", "version", "0.1.0-dev")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if conf.WeekStart != "sunday" {
		appLog.Warn("unsupported week_start, weeks start on Sunday", "week_start", conf.WeekStart)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"api_base", conf.APIBase != "",
		"feed_count", len(conf.Feeds),
		"show_holidays", conf.ShowHolidays,
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	src := buildSource(conf)

	ref := state.NewRef(initialState(conf))
	refresher := sched.New(src, ref)

	if flags.dump {
		if err := refresher.RefreshCalendars(ctx); err != nil {
			appLog.Error("calendar fetch failed", err)
		}
		if err := dumpSnapshot(ctx, src, ref.Get()); err != nil {
			appLog.Error("dump failed", err)
			os.Exit(1)
		}
		return
	}

	if flags.once {
		if err := refresher.RefreshCalendars(ctx); err != nil {
			appLog.Error("calendar fetch failed", err)
		}
		if err := refresher.RefreshEvents(ctx); err != nil {
			appLog.Error("refresh failed", err)
			os.Exit(1)
		}
		appLog.Info("single refresh complete, exiting")
		return
	}

	if err := refresher.Start(ctx, conf.RefreshCron); err != nil {
		appLog.Error("failed to start refresher", err)
		os.Exit(1)
	}
	defer refresher.Stop()

	server := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, ref, src).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.Error("server shutdown failed", err)
		}
	}()

	appLog.Info("serving", "listen", "http://"+conf.Listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("server failed", err)
		os.Exit(1)
	}

	appLog.Info("calgrid exiting")
}

// buildSource assembles the event source stack: the upstream API when
// configured (the bundled in-memory store otherwise), plus every ICS
// subscription feed.
func buildSource(conf *config.Config) source.Source {
	fetcher := source.NewFetcher(conf.CacheDir)

	sources := source.Multi{}
	if conf.APIBase != "" {
		sources = append(sources, httpapi.New(conf.APIBase, fetcher))
	} else {
		sources = append(sources, mem.NewStore())
	}
	for _, feed := range conf.Feeds {
		sources = append(sources, ics.NewFeed(feed.ID, feed.Name, feed.Color, feed.URL, fetcher))
	}
	return sources
}

func initialState(conf *config.Config) state.State {
	now := time.Now()
	if loc, err := time.LoadLocation(conf.Timezone); err == nil {
		now = now.In(loc)
	} else {
		appLog.Error("unknown timezone, using local", err, "timezone", conf.Timezone)
	}

	st := state.New(now)
	st.ShowHolidays = conf.ShowHolidays
	st.ShowBirthdays = conf.ShowBirthdays
	return st
}

// dumpSnapshot fetches the current view's range once and writes the
// expanded visible event set to stdout as JSON.
func dumpSnapshot(ctx context.Context, src source.Source, st state.State) error {
	rng, err := st.Range()
	if err != nil {
		return err
	}
	fetched, err := src.FetchEvents(ctx, rng, st.Search)
	if err != nil {
		return err
	}

	expanded := recur.ExpandAll(fetched, rng)
	events := visible.Visible(expanded.Events, st.Selection, visible.Options{
		ShowHolidays:  st.ShowHolidays,
		ShowBirthdays: st.ShowBirthdays,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"range":     rng,
		"events":    events,
		"truncated": expanded.Truncated,
	})
}

func parseFlags() flagConfig {
	var cfg flagConfig
	flag.StringVar(&cfg.configPath, "config", "/etc/calgrid/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch cycle and exit")
	flag.BoolVar(&cfg.dump, "dump", false, "Fetch once and print the visible event set as JSON")
	flag.Parse()
	return cfg
}

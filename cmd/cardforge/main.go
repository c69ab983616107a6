package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/catalog"
	"github.com/cardforge/cardforge/internal/config"
	"github.com/cardforge/cardforge/internal/diag"
	"github.com/cardforge/cardforge/internal/fetch"
	"github.com/cardforge/cardforge/internal/imagecache"
	"github.com/cardforge/cardforge/internal/logging"
	"github.com/cardforge/cardforge/internal/metrics"
	"github.com/cardforge/cardforge/internal/orchestrator"
	"github.com/cardforge/cardforge/internal/searchcache"
	"go.uber.org/zap"
)

var (
	configPath  = flag.String("config", "", "path to a YAML config file (optional)")
	forceReload = flag.Bool("force-reload", false, "force a catalog refresh on startup")
)

func main() {
	flag.Parse()

	if code := run(); code != 0 {
		os.Exit(code)
	}
}

func run() int {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		return 1
	}
	config.SetConfig(cfg)

	log := logging.New(cfg.Debug)
	defer log.Sync()

	reg := metrics.New()
	fetcher := fetch.New(cfg.Upstream.Cooldown, cfg.Upstream.UserAgent, logging.For(log, logging.CategoryFetch), reg)

	names := catalog.NewNameCatalog(cfg.Cache.Dir, cfg.Upstream.BaseURL+"/catalog/card-names", cfg.Cache.CatalogTTL, fetcher, logging.For(log, logging.CategoryCatalog))
	sets := catalog.NewSetCodeCatalog(cfg.Cache.Dir, cfg.Upstream.BaseURL+"/sets", cfg.Cache.CatalogTTL, fetcher, logging.For(log, logging.CategoryCatalog))

	searchCache := searchcache.New(cfg.Cache.Dir+"/search_results_cache.json", cache.IntLimit(cfg.Cache.SearchMaxEntries), cache.ByteLimit(cfg.Cache.SearchMaxBytes), cfg.Cache.ImageSizeEstimate, logging.For(log, logging.CategoryCache), reg)
	imageCache, err := imagecache.New(cfg.Cache.Dir+"/images", cache.ByteLimit(cfg.Cache.ImageMaxBytes), cfg.Cache.ImageSizeEstimate, logging.For(log, logging.CategoryCache), reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening image cache: %v\n", err)
		return 1
	}

	searchURL := cfg.Upstream.BaseURL + `/cards/search?q=name:"%s"&unique=prints`
	orch := orchestrator.New(searchURL, fetcher, names, sets, searchCache, imageCache, logging.For(log, logging.CategoryLoader))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.EnsureCardLookup(ctx, *forceReload); err != nil {
		log.Warn("initial catalog load failed, continuing with an empty resolver", zap.Error(err))
	}

	var diagServer *http.Server
	if cfg.Diag.Enabled {
		router := diag.NewRouter(reg.Registerer(), orch)
		diagServer = &http.Server{Addr: cfg.Diag.Addr, Handler: router}
		go func() {
			if err := diagServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("diagnostics server exited", zap.Error(err))
			}
		}()
		log.Info("diagnostics server listening", zap.String("addr", cfg.Diag.Addr))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()

	if diagServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = diagServer.Shutdown(shutdownCtx)
	}

	if err := orch.SaveCaches(); err != nil {
		fmt.Fprintf(os.Stderr, "saving caches: %v\n", err)
		return 1
	}
	return 0
}

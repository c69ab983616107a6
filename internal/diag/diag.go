// Package diag exposes cardforge's diagnostics HTTP server: liveness,
// Prometheus exposition, a JSON snapshot of cache/catalog state, and a
// websocket stream of the current background load's progress.
//
// Grounded on the teacher's internal/system/probe.go (the shape of a small
// read-only status surface) for /healthz and /stats, built with
// go-chi/chi/v5, the router the rest of the retrieval pack reaches for. The
// /stats/ws stream is grounded on the teacher's internal/hosting/ws.go
// (github.com/gorilla/websocket, the same upgrader/writeWait/pingPeriod
// pattern) trimmed from a multi-channel pub/sub hub down to a single
// push-only stream, since cardforge has exactly one in-flight background
// load to watch rather than per-site broadcast channels.
package diag

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/catalog"
	"github.com/cardforge/cardforge/internal/loader"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
	progressPoll = 500 * time.Millisecond
)

// StatsSource supplies the live numbers behind /stats.
type StatsSource interface {
	ImageCacheStats() cache.Stats
	SearchCacheStats() cache.Stats
	NameCatalogInfo() catalog.Info
	SetCodeCatalogInfo() catalog.Info
}

// ProgressSource supplies the live background-load progress behind
// /stats/ws. It reports false when no background load has started yet or
// when no new snapshot has arrived since the previous call.
type ProgressSource interface {
	CurrentProgress() (loader.Progress, bool)
}

// Source is everything diag's router needs from the orchestrator.
type Source interface {
	StatsSource
	ProgressSource
}

type statsResponse struct {
	ImageCache  cacheStatsView  `json:"imageCache"`
	SearchCache cacheStatsView  `json:"searchCache"`
	NameCatalog catalogInfoView `json:"nameCatalog"`
	SetCodes    catalogInfoView `json:"setCodes"`
}

type cacheStatsView struct {
	Count            int       `json:"count"`
	Bytes            int64     `json:"bytes"`
	OldestCreatedAt  time.Time `json:"oldestCreatedAt"`
	NewestAccessedAt time.Time `json:"newestAccessedAt"`
	StrategyName     string    `json:"strategyName"`
}

type catalogInfoView struct {
	CachedAt time.Time `json:"cachedAt"`
	Count    int       `json:"count"`
	Stale    bool      `json:"stale"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewRouter builds the chi router serving /healthz, /metrics, /stats, and
// /stats/ws.
func NewRouter(registerer *prometheus.Registry, source Source) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{
			ImageCache:  cacheStatsView(source.ImageCacheStats()),
			SearchCache: cacheStatsView(source.SearchCacheStats()),
			NameCatalog: catalogInfoView(source.NameCatalogInfo()),
			SetCodes:    catalogInfoView(source.SetCodeCatalogInfo()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	r.Get("/stats/ws", progressStreamHandler(source))

	return r
}

// progressStreamHandler upgrades the connection and pushes a JSON-encoded
// loader.Progress snapshot whenever its phase or current entry changes
// (other field changes alone are not pushed), until the client goes away,
// the load reaches PhaseCompleted, or the connection errors.
func progressStreamHandler(source ProgressSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(progressPoll)
		defer ticker.Stop()
		pinger := time.NewTicker(pingPeriod)
		defer pinger.Stop()

		var lastPhase loader.Phase
		var lastCurrent int
		for {
			select {
			case <-r.Context().Done():
				return
			case <-pinger.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ticker.C:
				progress, ok := source.CurrentProgress()
				if !ok {
					continue
				}
				if progress.Phase == lastPhase && progress.CurrentEntry == lastCurrent {
					continue
				}
				lastPhase = progress.Phase
				lastCurrent = progress.CurrentEntry

				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(progress); err != nil {
					return
				}
				if progress.Phase == loader.PhaseCompleted {
					return
				}
			}
		}
	}
}

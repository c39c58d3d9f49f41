package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Mrassimo/datapilot-sub008/internal/config"
	"github.com/Mrassimo/datapilot-sub008/internal/engine"
	"github.com/Mrassimo/datapilot-sub008/internal/format"
	"github.com/Mrassimo/datapilot-sub008/internal/ingest"
	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/monitoring"
	"github.com/Mrassimo/datapilot-sub008/internal/resilience"
	"github.com/Mrassimo/datapilot-sub008/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		collector := monitoring.NewCollector(st, cfg.Monitoring.QualityThreshold)
		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		api := &apiServer{
			store:     st,
			collector: collector,
			breaker:   resilience.NewBreaker("store", 0, 0),
			engineConfig: engine.Config{
				MaxRows:           cfg.Engine.MaxRows,
				MemoryThresholdMB: cfg.Engine.MemoryThresholdMB,
				MinRows:           cfg.Engine.MinRows,
				MaxPairs:          cfg.Engine.MaxPairs,
				ChunkSize:         cfg.Engine.ChunkSize,
				MonthFirst:        cfg.Engine.MonthFirst,
			},
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type apiServer struct {
	store        store.Store
	collector    *monitoring.Collector
	breaker      *resilience.Breaker
	engineConfig engine.Config
}

func (s *apiServer) routes(sc config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(rateLimit(rate.Limit(sc.RateRPS), sc.RateBurst))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/analyses", s.handleCreate)
	r.Get("/analyses", s.handleList)
	r.Get("/analyses/{id}", s.handleGet)
	r.Delete("/analyses/{id}", s.handleDelete)

	return r
}

// rateLimit applies one shared token bucket across all clients.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	lookback := 24
	if v := r.URL.Query().Get("lookback_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "lookback_hours must be a positive integer")
			return
		}
		lookback = n
	}

	var snap *monitoring.MetricsSnapshot
	err := s.breaker.Call(r.Context(), func(ctx context.Context) error {
		var err error
		snap, err = s.collector.Collect(ctx, lookback)
		return err
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type createRequest struct {
	Path       string `json:"path"`
	Sheet      string `json:"sheet,omitempty"`
	NoHeader   bool   `json:"no_header,omitempty"`
	MonthFirst bool   `json:"month_first,omitempty"`
	MaxRows    int64  `json:"max_rows,omitempty"`
	Save       bool   `json:"save,omitempty"`
}

func (s *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	ec := s.engineConfig
	ec.MonthFirst = ec.MonthFirst || req.MonthFirst
	if req.MaxRows > 0 {
		ec.MaxRows = req.MaxRows
	}
	if req.NoHeader {
		ec.Header = format.HeaderAbsent
	}
	eng, err := engine.New(ec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var a *model.Analysis
	switch strings.ToLower(filepath.Ext(req.Path)) {
	case ".xlsx":
		src, openErr := ingest.OpenXLSX(req.Path, ingest.XLSXOptions{SheetName: req.Sheet})
		if openErr != nil {
			writeError(w, http.StatusUnprocessableEntity, openErr.Error())
			return
		}
		a, err = eng.AnalyzeRows(r.Context(), req.Path, src, !req.NoHeader)
	default:
		a, err = eng.AnalyzeFile(r.Context(), req.Path)
	}
	if err != nil {
		zap.L().Error("analysis failed", zap.String("path", req.Path), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.Save {
		saveErr := s.breaker.Call(r.Context(), func(ctx context.Context) error {
			return s.store.SaveAnalysis(ctx, a)
		})
		if saveErr != nil {
			s.storeError(w, saveErr)
			return
		}
	}

	writeJSON(w, http.StatusCreated, a)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Source: r.URL.Query().Get("source"),
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = n
	}

	var runs []model.RunSummary
	err := s.breaker.Call(r.Context(), func(ctx context.Context) error {
		var err error
		runs, err = s.store.ListRuns(ctx, filter)
		return err
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var a *model.Analysis
	err := s.breaker.Call(r.Context(), func(ctx context.Context) error {
		var err error
		a, err = s.store.GetAnalysis(ctx, id)
		return err
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.breaker.Call(r.Context(), func(ctx context.Context) error {
		return s.store.DeleteAnalysis(ctx, id)
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) storeError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case eris.Is(err, resilience.ErrOpen):
		writeError(w, http.StatusServiceUnavailable, "store temporarily unavailable")
	default:
		zap.L().Error("store request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

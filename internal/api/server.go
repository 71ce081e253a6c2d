// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/bot"
	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/export"
	"github.com/rovshanmuradov/coinbot/internal/telegram"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultTradeLimit  = 20
	defaultExportLimit = 10000
)

type positionView struct {
	Mint        string    `json:"mint"`
	EntryPrice  float64   `json:"entry_price"`
	PeakPrice   float64   `json:"peak_price"`
	SoldPercent float64   `json:"sold_percent"`
	Units       uint64    `json:"units"`
	State       string    `json:"state"`
	OpenedAt    time.Time `json:"opened_at"`
}

type tradeView struct {
	ID        string    `json:"id"`
	Side      string    `json:"side"`
	Mint      string    `json:"mint"`
	Reason    string    `json:"reason"`
	Percent   float64   `json:"percent"`
	Units     uint64    `json:"units"`
	Lamports  uint64    `json:"lamports"`
	Signature string    `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}

// Controller is the engine surface the admin API drives.
type Controller interface {
	telegram.Controller
	Position(mint string) (domain.Position, bool)
}

// Server is the local admin HTTP API.
type Server struct {
	ctrl     Controller
	token    string
	trades   telegram.TradeLog
	exporter *export.TradeExporter
	runCtx   context.Context
	http     *http.Server
	logger   *zap.Logger
}

// NewServer builds the router. runCtx is passed to engine Start. trades may
// be nil. POST routes require token as a bearer token.
func NewServer(runCtx context.Context, addr, token string, ctrl Controller, trades telegram.TradeLog, logger *zap.Logger) *Server {
	s := &Server{
		ctrl:     ctrl,
		token:    token,
		trades:   trades,
		exporter: export.NewTradeExporter(logger),
		runCtx:   runCtx,
		logger:   logger.Named("admin_api"),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	r.HandleFunc("/positions/{mint}", s.handlePosition).Methods(http.MethodGet)
	r.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	r.HandleFunc("/trades/export", s.handleExport).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	auth := requireToken(s.token)
	r.Handle("/start", auth(http.HandlerFunc(s.handleStart))).Methods(http.MethodPost)
	r.Handle("/stop", auth(http.HandlerFunc(s.handleStop))).Methods(http.MethodPost)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 Admin API listening",
			zap.String("addr", s.http.Addr),
			zap.Bool("control_enabled", s.token != ""))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	positions := s.ctrl.ListPositions()
	out := make([]positionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ctrl.Position(mux.Vars(r)["mint"])
	if !ok {
		writeError(w, http.StatusNotFound, "position not found")
		return
	}
	writeJSON(w, http.StatusOK, toPositionView(p))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal disabled")
		return
	}
	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	trades, err := s.trades.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Warn("Trade query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "trade query failed")
		return
	}
	out := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeView{
			ID: t.ID, Side: t.Side, Mint: t.Mint, Reason: t.Reason, Percent: t.Percent,
			Units: t.Units, Lamports: t.Lamports, Signature: t.Signature, CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExport streams the journal as csv (default) or json.
// Query: format, side, mint, since and until (RFC3339), limit.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal disabled")
		return
	}
	q := r.URL.Query()
	opts := export.Options{
		Format: export.Format(q.Get("format")),
		Mint:   q.Get("mint"),
		Side:   q.Get("side"),
	}
	if opts.Format == "" {
		opts.Format = export.FormatCSV
	}
	if opts.Format != export.FormatCSV && opts.Format != export.FormatJSON {
		writeError(w, http.StatusBadRequest, "format must be csv or json")
		return
	}
	for key, dst := range map[string]*time.Time{"since": &opts.Since, "until": &opts.Until} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+key)
			return
		}
		*dst = ts
	}
	limit := defaultExportLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	trades, err := s.trades.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Warn("Trade query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "trade query failed")
		return
	}

	contentType := "text/csv"
	if opts.Format == export.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=trades."+string(opts.Format))
	if _, err := s.exporter.Export(w, trades, opts); err != nil {
		s.logger.Warn("Trade export failed", zap.Error(err))
	}
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.Start(s.runCtx); err != nil {
		if errors.Is(err, bot.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	stopped := s.ctrl.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

func toPositionView(p domain.Position) positionView {
	return positionView{
		Mint:        p.Mint,
		EntryPrice:  p.EntryPrice,
		PeakPrice:   p.PeakPrice,
		SoldPercent: p.SoldPercent,
		Units:       p.Units,
		State:       string(p.State),
		OpenedAt:    p.OpenedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

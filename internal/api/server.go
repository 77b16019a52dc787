package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"predictionmarket-backend/internal/config"
	"predictionmarket-backend/internal/market"
	"predictionmarket-backend/internal/randomness"
	"predictionmarket-backend/internal/treasury"
)

// Server holds all dependencies for the HTTP server.
type Server struct {
	cfg        *config.Config
	registry   *market.Registry
	vault      *treasury.Vault
	randomness *randomness.Coordinator
	wsHub      *Hub
	httpServer *http.Server
	log        *logrus.Logger
}

// NewServer creates a new API server.
func NewServer(
	cfg *config.Config,
	registry *market.Registry,
	vault *treasury.Vault,
	coordinator *randomness.Coordinator,
	log *logrus.Logger,
) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		cfg:        cfg,
		registry:   registry,
		vault:      vault,
		randomness: coordinator,
		wsHub:      NewHub(log),
		log:        log,
	}
}

// Hub returns the websocket hub so wiring code can broadcast market events.
func (s *Server) Hub() *Hub {
	return s.wsHub
}

// RegisterRoutes registers all HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Market endpoints
	mux.HandleFunc("POST /api/markets", s.handleCreateMarket)
	mux.HandleFunc("GET /api/markets", s.handleListMarkets)
	mux.HandleFunc("GET /api/markets/count", s.handleMarketsCount)
	mux.HandleFunc("GET /api/markets/range", s.handleMarketsRange)
	mux.HandleFunc("GET /api/markets/{id}", s.handleGetMarket)
	mux.HandleFunc("GET /api/markets/{id}/odds", s.handleGetOdds)

	// Betting and settlement
	mux.HandleFunc("POST /api/markets/{id}/bets", s.handlePlaceBet)
	mux.HandleFunc("POST /api/markets/{id}/close", s.handleCloseMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", s.handleRequestResolution)
	mux.HandleFunc("POST /api/markets/{id}/settle", s.handleSettle)
	mux.HandleFunc("POST /api/markets/{id}/claims", s.handleClaimPayout)

	// Randomness fulfillment callback
	mux.HandleFunc("POST /api/randomness/fulfill", s.handleFulfillRandomness)

	// Treasury endpoints
	mux.HandleFunc("GET /api/treasury", s.handleTreasuryBalances)
	mux.HandleFunc("POST /api/treasury/operational", s.handleDepositOperational)
	mux.HandleFunc("POST /api/treasury/randomness", s.handleDepositRandomness)

	// Observability
	mux.Handle("GET /metrics", promhttp.Handler())

	// WebSocket endpoint
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Start starts the HTTP server and blocks until it is shut down or fails.
func (s *Server) Start() error {
	go s.wsHub.Run()

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	addr := ":" + s.cfg.ServerPort
	s.httpServer = &http.Server{Addr: addr, Handler: corsMiddleware(mux)}

	s.log.WithField("addr", addr).Info("Server starting")
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests, making
// Start return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth is the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// corsMiddleware adds CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

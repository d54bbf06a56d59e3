// Package api exposes the copy engine and the wallet balance over HTTP and
// streams engine events over a WebSocket.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"copy-trade-bot-go/internal/balance"
	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/engine"
	"copy-trade-bot-go/internal/metrics"
	"copy-trade-bot-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Engine is the part of the copy engine the API drives.
type Engine interface {
	Arm(ctx context.Context) error
	Disarm()
	SetRisk(risk float64) error
	Snapshot(ctx context.Context) (engine.Snapshot, error)
	Analyzing() string
	Follow(ctx context.Context, traderID string) (bool, error)
	Unfollow(ctx context.Context, traderID string) (bool, error)
	AddCustomTrader(ctx context.Context, name, address string) (models.TraderProfile, error)
	Traders(ctx context.Context) ([]models.TraderProfile, error)
	FollowedIDs(ctx context.Context) ([]string, error)
	Markets() []models.Market
	Trades(ctx context.Context, limit int) ([]models.TradeLogEntry, error)
	Positions(ctx context.Context) ([]models.PortfolioPosition, error)
	Subscribe() (<-chan engine.Event, func())
}

// Wallet is the connected-wallet balance display.
type Wallet interface {
	Connect(credential string) error
	Disconnect()
	State() balance.State
}

// Server is the HTTP front of the bot.
type Server struct {
	engine Engine
	wallet Wallet
	hub    *Hub
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server listening on the configured port.
func NewServer(cfg config.Server, eng Engine, wallet Wallet, logger *zap.Logger) *Server {
	logger = logger.Named("api-server")
	s := &Server{
		engine: eng,
		wallet: wallet,
		hub:    NewHub(logger),
		logger: logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ws", s.hub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/state", s.getState)
			r.Get("/trades", s.listTrades)
			r.Get("/positions", s.listPositions)
			r.Get("/markets", s.listMarkets)

			r.Post("/engine/arm", s.arm)
			r.Post("/engine/disarm", s.disarm)
			r.Put("/engine/risk", s.setRisk)

			r.Get("/traders", s.listTraders)
			r.Post("/traders", s.addTrader)
			r.Post("/traders/{id}/follow", s.follow)
			r.Delete("/traders/{id}/follow", s.unfollow)

			r.Get("/wallet", s.getWallet)
			r.Post("/wallet", s.connectWallet)
			r.Delete("/wallet", s.disconnectWallet)
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	events, unsubscribe := s.engine.Subscribe()
	defer unsubscribe()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx, events)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Stopping API server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

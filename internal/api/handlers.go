package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"

	"copy-trade-bot-go/internal/balance"
	"copy-trade-bot-go/internal/engine"
	"copy-trade-bot-go/internal/models"
	"copy-trade-bot-go/internal/registry"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what, zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, what)
}

// decodeBody reads a single JSON object into v. Unknown fields are rejected.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "copybot"})
}

type stateResponse struct {
	Engine engine.Snapshot `json:"engine"`
	Wallet balance.State   `json:"wallet"`
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		s.internalError(w, "Failed to read engine state", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateResponse{Engine: snap, Wallet: s.wallet.State()})
}

// listTrades returns the trade log, oldest first. ?limit=N keeps the last N.
func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	trades, err := s.engine.Trades(r.Context(), limit)
	if err != nil {
		s.internalError(w, "Failed to get trades", err)
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.engine.Positions(r.Context())
	if err != nil {
		s.internalError(w, "Failed to get positions", err)
		return
	}
	s.writeJSON(w, http.StatusOK, positions)
}

type marketView struct {
	models.Market
	Analyzing bool `json:"analyzing"`
}

func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	analyzing := s.engine.Analyzing()
	markets := s.engine.Markets()
	out := make([]marketView, 0, len(markets))
	for _, m := range markets {
		out = append(out, marketView{Market: m, Analyzing: m.ID == analyzing})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type traderView struct {
	models.TraderProfile
	Followed bool `json:"followed"`
}

func (s *Server) listTraders(w http.ResponseWriter, r *http.Request) {
	traders, err := s.engine.Traders(r.Context())
	if err != nil {
		s.internalError(w, "Failed to get traders", err)
		return
	}
	followed, err := s.engine.FollowedIDs(r.Context())
	if err != nil {
		s.internalError(w, "Failed to get follow set", err)
		return
	}

	out := make([]traderView, 0, len(traders))
	for _, t := range traders {
		out = append(out, traderView{TraderProfile: t, Followed: slices.Contains(followed, t.ID)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type addTraderRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s *Server) addTrader(w http.ResponseWriter, r *http.Request) {
	var req addTraderRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trader, err := s.engine.AddCustomTrader(r.Context(), req.Name, req.Address)
	switch {
	case errors.Is(err, registry.ErrEmptyName), errors.Is(err, registry.ErrEmptyAddress):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.internalError(w, "Failed to add trader", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, traderView{TraderProfile: trader, Followed: true})
}

type followResponse struct {
	ID       string   `json:"id"`
	Changed  bool     `json:"changed"`
	Followed []string `json:"followed"`
}

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	s.changeFollow(w, r, s.engine.Follow)
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	s.changeFollow(w, r, s.engine.Unfollow)
}

func (s *Server) changeFollow(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (bool, error)) {
	id := chi.URLParam(r, "id")
	changed, err := op(r.Context(), id)
	if err != nil {
		s.internalError(w, "Failed to change follow set", err)
		return
	}
	followed, err := s.engine.FollowedIDs(r.Context())
	if err != nil {
		s.internalError(w, "Failed to get follow set", err)
		return
	}
	s.writeJSON(w, http.StatusOK, followResponse{ID: id, Changed: changed, Followed: followed})
}

func (s *Server) arm(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Arm(r.Context())
	switch {
	case errors.Is(err, engine.ErrNoFollowedTraders):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, engine.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.internalError(w, "Failed to arm engine", err)
		return
	}
	s.getState(w, r)
}

func (s *Server) disarm(w http.ResponseWriter, r *http.Request) {
	s.engine.Disarm()
	s.getState(w, r)
}

type riskRequest struct {
	RiskPerTrade *float64 `json:"riskPerTrade"`
}

func (s *Server) setRisk(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RiskPerTrade == nil {
		s.writeError(w, http.StatusBadRequest, "riskPerTrade is required")
		return
	}
	if err := s.engine.SetRisk(*req.RiskPerTrade); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.getState(w, r)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.wallet.State())
}

type connectRequest struct {
	Credential string `json:"credential"`
}

func (s *Server) connectWallet(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.wallet.Connect(req.Credential); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.wallet.State())
}

func (s *Server) disconnectWallet(w http.ResponseWriter, r *http.Request) {
	s.wallet.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}

package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/briangreenhill/coinwatch/coingecko"
	"github.com/briangreenhill/coinwatch/internal/market"
)

const maxTopCoinsLimit = 250 // CoinGecko per_page ceiling

func (s *Server) handleTopCoins(w http.ResponseWriter, r *http.Request) {
	limit := market.DefaultTopCoinsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopCoinsLimit {
			s.writeError(w, http.StatusBadRequest, "Invalid limit parameter", "")
			return
		}
		limit = n
	}

	coins, err := s.Market.TopCoins(r.Context(), limit)
	if err != nil {
		s.Log.Error().Err(err).Msg("fetch top coins")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch coins data", "")
		return
	}
	s.writeJSON(w, http.StatusOK, coins)
}

func (s *Server) handleCoinDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid coin ID", "")
		return
	}

	detail, err := s.Market.CoinDetail(r.Context(), id)
	if err != nil {
		s.Log.Error().Err(err).Str("coin", id).Msg("fetch coin details")
		s.writeError(w, upstreamStatus(err), "Failed to fetch coin details", "")
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid coin ID", "")
		return
	}
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "7d"
	}

	points, err := s.Market.PriceHistory(r.Context(), id, rng)
	if err != nil {
		s.Log.Error().Err(err).Str("coin", id).Str("range", rng).Msg("fetch price history")
		// The history endpoint surfaces upstream detail to help debug
		// chart gaps; the other endpoints keep their errors generic.
		s.writeError(w, upstreamStatus(err), "Failed to fetch price history", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.Market.Overview(r.Context())
	if err != nil {
		s.Log.Error().Err(err).Msg("fetch market overview")
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch market overview data", "")
		return
	}
	s.writeJSON(w, http.StatusOK, overview)
}

// upstreamStatus maps an unknown coin upstream 404 through to the
// client; everything else is a generic 500.
func upstreamStatus(err error) int {
	var apiErr *coingecko.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]any{"error": msg}
	if details != "" {
		body["details"] = details
	}
	s.writeJSON(w, status, body)
}

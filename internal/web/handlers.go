package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/camuig/pulse-trader/internal/position"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	symbol := r.URL.Query().Get("symbol")

	if account == "" && symbol == "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		trades, err := s.repo.RecentTrades(limit)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trades)
		return
	}

	trades, err := s.repo.Trades(account, symbol)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	symbol := r.URL.Query().Get("symbol")
	if account == "" || symbol == "" {
		http.Error(w, "account and symbol query parameters are required", http.StatusBadRequest)
		return
	}

	trades, err := s.repo.Trades(account, symbol)
	if err != nil {
		s.fail(w, err)
		return
	}

	st := position.Derive(trades)
	resp := map[string]any{
		"account":    account,
		"symbol":     symbol,
		"spot_open":  st.SpotOpen(),
		"long_open":  st.LongOpen(),
		"short_open": st.ShortOpen(),
	}
	if st.SpotOpen() {
		resp["spot_qty"] = st.Spot.Qty
	}
	if st.LongOpen() {
		resp["long_qty"] = st.Long.Qty
	}
	if st.ShortOpen() {
		resp["short_qty"] = st.Short.Qty
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("web request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package api

import (
	"fmt"
	"net/http"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
	"github.com/andreashuber69/smart-trade-sub000/internal/repository"
)

type tradeJSON struct {
	T       int64  `json:"t"`
	Pair    string `json:"pair"`
	Side    string `json:"side"`
	Amount  string `json:"amount"`
	Price   string `json:"price"`
	Fee     string `json:"fee"`
	OrderID string `json:"orderId"`
	IsPaper bool   `json:"isPaper"`
}

func tradesToJSON(trades []models.Trade) []tradeJSON {
	out := make([]tradeJSON, len(trades))
	for i, t := range trades {
		out[i] = tradeJSON{
			T: t.Timestamp.UnixMilli(), Pair: t.Pair, Side: t.Side,
			Amount: t.Amount.String(), Price: t.Price.String(), Fee: t.Fee.String(),
			OrderID: t.OrderID, IsPaper: t.IsPaper,
		}
	}
	return out
}

// parseTradeMode extracts the ?mode= query parameter.
// Returns a *bool: nil = all, true = paper, false = live.
func parseTradeMode(r *http.Request) (*bool, error) {
	v := r.URL.Query().Get("mode")
	switch v {
	case "", "all":
		return nil, nil
	case "paper":
		b := true
		return &b, nil
	case "live":
		b := false
		return &b, nil
	default:
		return nil, fmt.Errorf("invalid mode %q, expected paper|live|all", v)
	}
}

func (s *Server) handleTradesToday(w http.ResponseWriter, r *http.Request) {
	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair := r.URL.Query().Get("pair")

	today := repository.TradingDayNow()
	trades, err := s.tradeRepo.GetByDay(r.Context(), today, pair, mode)
	if err != nil {
		fmt.Printf("Error fetching today's trades: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, tradesToJSON(trades))
}

func (s *Server) handleTradesByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair := r.URL.Query().Get("pair")

	trades, err := s.tradeRepo.GetByDay(r.Context(), date, pair, mode)
	if err != nil {
		fmt.Printf("Error fetching trades for %s: %v\n", date, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, tradesToJSON(trades))
}

func (s *Server) handleAllTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair := r.URL.Query().Get("pair")

	trades, err := s.tradeRepo.GetAll(r.Context(), limit, pair, mode)
	if err != nil {
		fmt.Printf("Error fetching all trades: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	mode, err := parseTradeMode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair := r.URL.Query().Get("pair")

	stats, err := s.tradeRepo.GetStats(r.Context(), pair, mode)
	if err != nil {
		fmt.Printf("Error fetching trade stats: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trade stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

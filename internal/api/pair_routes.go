package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

type pairStateJSON struct {
	Pair                    string `json:"pair"`
	Enabled                 bool   `json:"enabled"`
	NextTradeTime           string `json:"nextTradeTime,omitempty"`
	LastTradeTime           string `json:"lastTradeTime,omitempty"`
	SectionStart            string `json:"sectionStart,omitempty"`
	PeriodEnd               string `json:"periodEnd,omitempty"`
	RetryIntervalMs         int64  `json:"retryIntervalMs"`
	TradeCountSinceTransfer int    `json:"tradeCountSinceTransfer"`
	LastStatus              string `json:"lastStatus,omitempty"`
	LastBalanceFirst        string `json:"lastBalanceFirst"`
	LastBalanceSecond       string `json:"lastBalanceSecond"`
}

func pairStateFromModel(state *models.TradeState) pairStateJSON {
	out := pairStateJSON{
		Pair:                    state.Pair,
		Enabled:                 state.Enabled(),
		RetryIntervalMs:         state.RetryIntervalMs,
		TradeCountSinceTransfer: state.TradeCountSinceTransfer,
		LastStatus:              state.LastStatus,
		LastBalanceFirst:        state.LastBalanceFirst.String(),
		LastBalanceSecond:       state.LastBalanceSecond.String(),
	}
	if !state.NextTradeTime.IsZero() {
		out.NextTradeTime = state.NextTradeTime.UTC().Format(time.RFC3339)
	}
	if !state.LastTradeTime.IsZero() {
		out.LastTradeTime = state.LastTradeTime.UTC().Format(time.RFC3339)
	}
	if !state.Period.SectionStart.IsZero() {
		out.SectionStart = state.Period.SectionStart.UTC().Format(time.RFC3339)
	}
	if !state.Period.PeriodEnd.IsZero() {
		out.PeriodEnd = state.Period.PeriodEnd.UTC().Format(time.RFC3339)
	}
	return out
}

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	pairs := s.control.Pairs()
	sort.Strings(pairs)
	writeJSON(w, http.StatusOK, map[string][]string{"pairs": pairs})
}

func (s *Server) handlePairState(w http.ResponseWriter, r *http.Request) {
	pair := r.PathValue("pair")
	state, err := s.control.State(r.Context(), pair)
	if err != nil {
		if isUnknownPair(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		fmt.Printf("Error fetching state for %s: %v\n", pair, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch pair state")
		return
	}
	if state == nil {
		writeJSON(w, http.StatusOK, pairStateJSON{Pair: pair})
		return
	}
	writeJSON(w, http.StatusOK, pairStateFromModel(state))
}

func (s *Server) handlePairEnable(w http.ResponseWriter, r *http.Request) {
	pair := r.PathValue("pair")
	if err := s.control.Enable(r.Context(), pair); err != nil {
		if isUnknownPair(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		fmt.Printf("Error enabling %s: %v\n", pair, err)
		writeError(w, http.StatusInternalServerError, "failed to enable pair")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pair": pair, "status": "enabled"})
}

func (s *Server) handlePairDisable(w http.ResponseWriter, r *http.Request) {
	pair := r.PathValue("pair")
	if err := s.control.Disable(r.Context(), pair); err != nil {
		if isUnknownPair(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		fmt.Printf("Error disabling %s: %v\n", pair, err)
		writeError(w, http.StatusInternalServerError, "failed to disable pair")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pair": pair, "status": "disabled"})
}

func isUnknownPair(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no engine registered")
}

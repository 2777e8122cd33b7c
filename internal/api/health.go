package api

import (
	"net/http"
	"sort"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Service   string         `json:"service"`
	Timestamp string         `json:"timestamp"`
	Pairs     []string       `json:"pairs,omitempty"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if s.pool == nil {
		dbStatus = "disconnected"
	} else if err := s.pool.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
	}

	resp := healthResponse{
		Status:    "ok",
		Service:   "smart-trade-engine",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus},
	}
	if s.control != nil {
		resp.Pairs = s.control.Pairs()
		sort.Strings(resp.Pairs)
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleHealth(t *testing.T) {
	s := &Server{control: &fakeControl{pairs: []string{"etheur", "btceur"}}}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Service != "smart-trade-engine" {
		t.Fatalf("service: got %q", body.Service)
	}
	if len(body.Pairs) != 2 || body.Pairs[0] != "btceur" {
		t.Fatalf("pairs: got %v", body.Pairs)
	}
	// No pool wired in this test, so the database must report disconnected.
	if body.Services.Database != "disconnected" {
		t.Fatalf("database status: got %q", body.Services.Database)
	}
	t.Logf("Health: %+v", body)
}

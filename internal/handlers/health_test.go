package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)
	h := NewHealthHandler(db, nil)
	e := echo.New()

	check := func() (int, map[string]any) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
		if err := h.HealthCheck(c); err != nil {
			t.Fatalf("HealthCheck: %v", err)
		}
		var out map[string]any
		json.Unmarshal(rec.Body.Bytes(), &out)
		return rec.Code, out
	}

	code, out := check()
	if code != http.StatusOK || out["status"] != "healthy" {
		t.Fatalf("unexpected response %d: %v", code, out)
	}
	if _, ok := out["checks"].(map[string]any)["mongo"]; ok {
		t.Fatal("mongo reported although not configured")
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()
	code, out = check()
	if code != http.StatusServiceUnavailable || out["checks"].(map[string]any)["postgres"] != "unavailable" {
		t.Fatalf("unexpected response %d: %v", code, out)
	}
}

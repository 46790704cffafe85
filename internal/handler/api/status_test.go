package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/internal/domain/models"
	"spotwatch/internal/engine"
	"spotwatch/internal/usecase"
	xhttp "spotwatch/pkg/http"
	"spotwatch/pkg/logger"
)

func newTestHandler(snap *engine.Snapshot) *StatusHandler {
	quoter := usecase.NewQuoteCalculator(snap, 1.5, []usecase.PriceTier{{MinQuantity: 10, DiscountPct: 2}})
	return NewStatusHandler(logger.Nop(), snap, quoter, nil, "XAU")
}

func doRequest(h *StatusHandler, target string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestStatusEndpoint(t *testing.T) {
	snap := engine.NewSnapshot()
	rec, body := doRequest(newTestHandler(snap), "/api/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, body.Status)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "XAU", data["symbol"])
	assert.Equal(t, "CLOSED", data["status"])
	assert.NotContains(t, data, "price", "no reading yet means no price field")
}

func TestDeltasEndpoint(t *testing.T) {
	snap := engine.NewSnapshot()
	_, body := doRequest(newTestHandler(snap), "/api/deltas")

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "deltas")
}

func TestReferenceEndpoint(t *testing.T) {
	snap := engine.NewSnapshot()
	snap.SetReference(models.ReferenceClose{HorizonDays: 30, Price: 2200})
	snap.SetMedianClose(2210)

	_, body := doRequest(newTestHandler(snap), "/api/reference")
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2210.0, data["median_close"])

	refs, ok := data["references"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, refs, "30")
}

func TestQuoteEndpoint(t *testing.T) {
	snap := engine.NewSnapshot()
	snap.SetReference(models.ReferenceClose{HorizonDays: engine.HorizonSession, Price: 2000})
	h := newTestHandler(snap)

	t.Run("valid", func(t *testing.T) {
		_, body := doRequest(h, "/api/quote?quantity=20")
		require.Equal(t, http.StatusOK, body.Status)
		data := body.Data.(map[string]interface{})
		assert.Equal(t, 2.0, data["discount_pct"])
	})

	t.Run("missing quantity", func(t *testing.T) {
		_, body := doRequest(h, "/api/quote")
		assert.Equal(t, http.StatusBadRequest, body.Status)
	})

	t.Run("no reference resolved", func(t *testing.T) {
		bare := newTestHandler(engine.NewSnapshot())
		_, body := doRequest(bare, "/api/quote?quantity=20")
		assert.Equal(t, http.StatusServiceUnavailable, body.Status)
	})
}

func TestHistoryEndpointDisabled(t *testing.T) {
	_, body := doRequest(newTestHandler(engine.NewSnapshot()), "/api/history")
	assert.Equal(t, http.StatusServiceUnavailable, body.Status)
}

func TestHealthEndpoint(t *testing.T) {
	rec, _ := doRequest(newTestHandler(engine.NewSnapshot()), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

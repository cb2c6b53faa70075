package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/handlers"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/testutil"
)

// TestAlertHandler_EvaluateDryRun tests the POST /api/alert/evaluate endpoint.
//
// WHY: Users try a condition before saving it. The dry run must report the
// measured value and must reject conditions the evaluator cannot run.
func TestAlertHandler_EvaluateDryRun(t *testing.T) {
	post := func(t *testing.T, handler *handlers.AlertHandler, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := testutil.NewJSONRequest(http.MethodPost, "/api/alert/evaluate", body, nil)
		w := httptest.NewRecorder()
		handler.EvaluateDryRun(w, req)
		return w
	}

	t.Run("triggers a price alert above threshold", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewAlertHandler(testutil.NewTestAlertService(t, db))
		btc := testutil.CreateAsset(t, db, "BTC", model.AssetClassCrypto)
		testutil.NewQuote(btc.ID, "USD").WithPrice("42000").WithTimestamp(testutil.Now.Add(-time.Hour)).Build(t, db)

		w := post(t, handler, `{"scope":"ASSET","assetId":"`+btc.ID+`","quoteCurrency":"usd","type":"PRICE_ABOVE","threshold":40000}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		var response model.AlertEvaluation
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !response.Triggered {
			t.Error("Expected alert to trigger")
		}
		if response.MeasuredValue.String() != "42000" {
			t.Errorf("Expected measured value 42000, got %s", response.MeasuredValue)
		}
	})

	t.Run("returns 400 for unknown type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewAlertHandler(testutil.NewTestAlertService(t, db))

		w := post(t, handler, `{"scope":"ASSET","type":"MOON","threshold":1}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("returns 400 for a non-positive lookback", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewAlertHandler(testutil.NewTestAlertService(t, db))

		w := post(t, handler, `{"scope":"ASSET","assetId":"BTC","quoteCurrency":"USD","type":"PERCENT_CHANGE","threshold":5,"lookbackMinutes":0}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("returns 400 for malformed JSON", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewAlertHandler(testutil.NewTestAlertService(t, db))

		w := post(t, handler, `{"scope":`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("returns 409 when there is no quote yet", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewAlertHandler(testutil.NewTestAlertService(t, db))
		btc := testutil.CreateAsset(t, db, "BTC", model.AssetClassCrypto)

		w := post(t, handler, `{"scope":"ASSET","assetId":"`+btc.ID+`","quoteCurrency":"USD","type":"PRICE_BELOW","threshold":1}`)

		if w.Code != http.StatusConflict {
			t.Errorf("Expected status 409, got %d: %s", w.Code, w.Body.String())
		}
	})
}

// TestAlertHandler_EvaluateStored tests the POST /api/alert/{uuid}/evaluate endpoint.
//
// WHY: Evaluating a stored condition through the API must never record a
// trigger; only the sweep does that.
func TestAlertHandler_EvaluateStored(t *testing.T) {
	t.Run("evaluates without recording the trigger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAlertService(t, db)
		handler := handlers.NewAlertHandler(svc)
		btc := testutil.CreateAsset(t, db, "BTC", model.AssetClassCrypto)
		testutil.NewQuote(btc.ID, "USD").WithPrice("42000").WithTimestamp(testutil.Now.Add(-time.Hour)).Build(t, db)
		alert := testutil.NewAlert(model.AlertPriceAbove).ForAsset(btc.ID, "USD").WithThreshold("40000").Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/alert/"+alert.ID+"/evaluate", map[string]string{"uuid": alert.ID})
		w := httptest.NewRecorder()

		handler.EvaluateStored(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		var lastTriggered *string
		if err := db.QueryRow(`SELECT last_triggered_at FROM alert_condition WHERE id = ?`, alert.ID).Scan(&lastTriggered); err != nil {
			t.Fatalf("Failed to read alert: %v", err)
		}
		if lastTriggered != nil {
			t.Errorf("Expected no recorded trigger, got %s", *lastTriggered)
		}
	})

	t.Run("returns 404 for an unknown alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewAlertHandler(testutil.NewTestAlertService(t, db))
		id := testutil.MakeID()

		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/alert/"+id+"/evaluate", map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.EvaluateStored(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

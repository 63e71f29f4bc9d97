package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/radiusdt/vector-bandit/internal/config"
	"github.com/radiusdt/vector-bandit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Bandit: config.BanditConfig{
			SampleCount:      200,
			DefaultKPIMetric: models.MetricEngagements,
			DefaultKPIWeight: 1,
		},
	}
	return NewServer(&Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestUpdateThenDump(t *testing.T) {
	srv := newTestServer(t)

	rec, out := doJSON(t, srv, http.MethodPost, "/update_bandit", map[string]any{
		"item_id":         "X",
		"date":            "2024-01-01",
		"item_group_id":   "G1",
		"num_impressions": 100,
		"num_engagements": 30,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "1 records appended", out["message"])

	rec, out = doJSON(t, srv, http.MethodPost, "/dump_bandit_data", map[string]any{
		"item_id_list": []string{"X"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])

	data, ok := out["bandit_data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "X", row["item_id"])
	assert.Equal(t, "G1", row["item_group_id"])
	assert.Equal(t, float64(100), row["num_impressions"])
}

func TestUpdateAcceptsList(t *testing.T) {
	srv := newTestServer(t)

	rec, out := doJSON(t, srv, http.MethodPost, "/update_bandit", []map[string]any{
		{"item_id": "A", "date": "2024-01-01", "item_group_id": "G"},
		{"item_id": "B", "date": "2024-01-01", "item_group_id": "G"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 records appended", out["message"])
}

func TestUpdateValidationFailure(t *testing.T) {
	srv := newTestServer(t)

	rec, out := doJSON(t, srv, http.MethodPost, "/update_bandit", map[string]any{
		"item_id": "X",
		"date":    "2024-01-01",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["message"], "item_group_id")
	assert.Equal(t, float64(0), out["records_appended"])

	// Nothing was committed.
	rec, out = doJSON(t, srv, http.MethodPost, "/dump_bandit_data", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out["bandit_data"])
}

func TestPullLevers(t *testing.T) {
	srv := newTestServer(t)

	for _, payload := range []map[string]any{
		{"item_id": "A", "date": "2024-01-01", "item_group_id": "G", "num_impressions": 100, "num_engagements": 80},
		{"item_id": "B", "date": "2024-01-01", "item_group_id": "G", "num_impressions": 100, "num_engagements": 20},
	} {
		resp, _ := doJSON(t, srv, http.MethodPost, "/update_bandit", payload)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	rec, out := doJSON(t, srv, http.MethodPost, "/pull_levers", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])

	draws, ok := out["random_draws"].([]any)
	require.True(t, ok)
	require.Len(t, draws, 2)

	first := draws[0].(map[string]any)
	second := draws[1].(map[string]any)
	assert.Equal(t, "A", first["item"])
	assert.Equal(t, "B", second["item"])
	assert.Greater(t, first["probability"].(float64), second["probability"].(float64))
}

func TestPullLeversWithLocalSnapshot(t *testing.T) {
	srv := newTestServer(t)

	rec, out := doJSON(t, srv, http.MethodPost, "/pull_levers", map[string]any{
		"local": []map[string]any{
			{"item_id": "L", "item_group_id": "G", "num_impressions": 50, "num_engagements": 25},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	draws := out["random_draws"].([]any)
	require.Len(t, draws, 1)
	assert.Equal(t, "L", draws[0].(map[string]any)["item"])
}

func TestPullLeversFilter(t *testing.T) {
	srv := newTestServer(t)

	rec, out := doJSON(t, srv, http.MethodPost, "/pull_levers", map[string]any{
		"items": []string{"B"},
		"local": []map[string]any{
			{"item_id": "A", "item_group_id": "G", "num_impressions": 100, "num_engagements": 50},
			{"item_id": "B", "item_group_id": "G", "num_impressions": 100, "num_engagements": 50},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	draws := out["random_draws"].([]any)
	require.Len(t, draws, 1)
	assert.Equal(t, "B", draws[0].(map[string]any)["item"])
}

func TestCountEndpoint(t *testing.T) {
	srv := newTestServer(t)

	events := []map[string]any{
		{"type": "impression", "line_item_id": "li1", "campaign_id": "c1", "auction_id": "a1"},
		{"type": "impression", "line_item_id": "li1", "campaign_id": "c1", "auction_id": "a1"},
		{"type": "first_dropped", "line_item_id": "li1", "campaign_id": "c1", "auction_id": "a1"},
	}

	rec, out := doJSON(t, srv, http.MethodPost, "/count", events)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])

	counts := out["count"].([]any)
	require.Len(t, counts, 1)
	count := counts[0].(map[string]any)
	assert.Equal(t, "li1", count["item_id"])
	assert.Equal(t, "c1", count["item_group_id"])
	assert.Equal(t, float64(1), count["num_impressions"])
	assert.Equal(t, float64(1), count["num_engagements"])
}

func TestCountStoreAndReplay(t *testing.T) {
	srv := newTestServer(t)

	events := []map[string]any{
		{"type": "impression", "line_item_id": "li1", "campaign_id": "c1", "auction_id": "a1"},
		{"type": "impression", "line_item_id": "li1", "campaign_id": "c1", "auction_id": "a2"},
	}

	rec, _ := doJSON(t, srv, http.MethodPost, "/count?store=true", events)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := doJSON(t, srv, http.MethodGet, "/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	counts := out["count"].([]any)
	require.Len(t, counts, 1)
	assert.Equal(t, float64(2), counts[0].(map[string]any)["num_impressions"])
}

func TestHealthAndIndex(t *testing.T) {
	srv := newTestServer(t)

	rec, out := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vector-bandit")
}

func TestSpendEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodPost, "/update_bandit", []map[string]any{
		{"item_id": "A", "date": "2024-01-01", "item_group_id": "G1", "daily_spend": 1.5},
		{"item_id": "B", "date": "2024-01-01", "item_group_id": "G1", "daily_spend": 2.0},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := doJSON(t, srv, http.MethodGet, "/spend?item_group_id=G1&date=2024-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "G1", out["item_group_id"])
	assert.InDelta(t, 3.5, out["daily_spend"].(float64), 1e-9)

	// Group id is mandatory.
	rec, out = doJSON(t, srv, http.MethodGet, "/spend?date=2024-01-01", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
}

func TestBadPayload(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{"not json", "null", ""} {
		req := httptest.NewRequest(http.MethodPost, "/update_bandit", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, false, out["success"])
	}
}

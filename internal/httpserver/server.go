package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/radiusdt/vector-bandit/internal/bandit"
	"github.com/radiusdt/vector-bandit/internal/config"
	"github.com/radiusdt/vector-bandit/internal/database"
	"github.com/radiusdt/vector-bandit/internal/metrics"
	"github.com/radiusdt/vector-bandit/internal/models"
	"github.com/radiusdt/vector-bandit/internal/storage"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps HTTP handlers around the bandit engine.
type Server struct {
	engine     *bandit.Engine
	eventStore storage.EventStore
	deps       *Dependencies
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
// Missing backends fall back to in-memory implementations so the
// service can run without infrastructure for development and tests.
func NewServer(deps *Dependencies) http.Handler {
	var statRepo storage.StatRepo
	if deps.DB != nil {
		statRepo = storage.NewPostgresStatRepo(deps.DB.Pool)
	} else {
		statRepo = storage.NewInMemoryStatRepo()
	}

	var spend storage.SpendTracker
	if deps.Redis != nil {
		spend = storage.NewRedisSpendTracker(deps.Redis.Client)
	} else {
		spend = storage.NewInMemorySpendTracker()
	}

	var eventStore storage.EventStore
	if deps.ClickHouse != nil {
		eventStore = storage.NewClickHouseEventStore(deps.ClickHouse.Conn)
	} else {
		eventStore = storage.NewInMemoryEventStore()
	}

	defaultWeights := models.KPIWeight{
		deps.Config.Bandit.DefaultKPIMetric: deps.Config.Bandit.DefaultKPIWeight,
	}
	engine := bandit.NewEngine(
		statRepo,
		spend,
		bandit.NewSampler(),
		bandit.Config{
			SampleCount:    deps.Config.Bandit.SampleCount,
			DefaultWeights: defaultWeights,
		},
		deps.Logger,
		deps.Metrics,
	)

	s := &Server{
		engine:     engine,
		eventStore: eventStore,
		deps:       deps,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)

	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Bandit endpoints
	mux.HandleFunc("/update_bandit", s.handleUpdate)
	mux.HandleFunc("/pull_levers", s.handleDraw)
	mux.HandleFunc("/dump_bandit_data", s.handleDump)
	mux.HandleFunc("/count", s.handleCount)
	mux.HandleFunc("/spend", s.handleSpend)

	return mux
}

// =============================================
// Handlers
// =============================================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<h3>vector-bandit up</h3>")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if s.deps.DB != nil {
		if err := s.deps.DB.Health(ctx); err != nil {
			status["postgres"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["postgres"] = "ok"
		}
	}
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Health(ctx); err != nil {
			status["redis"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "ok"
		}
	}
	if s.deps.ClickHouse != nil {
		if err := s.deps.ClickHouse.Health(ctx); err != nil {
			status["clickhouse"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["clickhouse"] = "ok"
		}
	}

	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	writeJSON(w, code, status)
}

// handleUpdate accepts a single ingestion record or a list. Records
// are committed one at a time; the first failure stops the batch and
// the response reports how many earlier records went through.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	recs, err := decodeRecords(body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "unable to process input data")
		return
	}

	accepted, err := s.engine.UpdateBatch(r.Context(), recs)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":          false,
				"message":          vErr.Error(),
				"records_appended": accepted,
			})
			return
		}
		s.logger.Error("update failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":          false,
			"message":          "storage failure",
			"records_appended": accepted,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%d records appended", accepted),
	})
}

type drawRequest struct {
	Items []string `json:"items"`
	// Optimizer is accepted for forward compatibility but unused.
	Optimizer string            `json:"optimizer"`
	Local     []models.ItemStat `json:"local"`
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	var req drawRequest
	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "unable to read request body")
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				s.fail(w, http.StatusBadRequest, "unable to process input data")
				return
			}
		}
	}

	ranked, err := s.engine.Draw(r.Context(), bandit.DrawOptions{
		Items:    req.Items,
		Snapshot: req.Local,
	})
	if err != nil {
		s.logger.Error("draw failed", zap.Error(err))
		s.fail(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if ranked == nil {
		ranked = []models.RankedItem{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"random_draws": ranked,
	})
}

type dumpRequest struct {
	ItemIDList      []string `json:"item_id_list"`
	ItemGroupIDList []string `json:"item_group_id_list"`
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	var req dumpRequest
	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "unable to read request body")
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				s.fail(w, http.StatusBadRequest, "unable to process input data")
				return
			}
		}
	}

	stats, err := s.engine.Dump(r.Context(), req.ItemIDList, req.ItemGroupIDList)
	if err != nil {
		s.logger.Error("dump failed", zap.Error(err))
		s.fail(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if stats == nil {
		stats = []models.ItemStat{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"bandit_data": stats,
	})
}

// handleCount aggregates raw tracking events into per-item counts.
// POST bodies carry the events; ?store=true also persists them to the
// event store. GET aggregates previously stored events, optionally
// restricted with ?since=RFC3339.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	opts := bandit.AggregateOptions{
		TotalType:   r.URL.Query().Get("total"),
		SuccessType: r.URL.Query().Get("success"),
	}
	if clicks, err := strconv.ParseBool(r.URL.Query().Get("clicks")); err == nil {
		opts.CountClicks = clicks
	}

	var events []models.TrackingEvent

	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "unable to read request body")
			return
		}
		if err := json.Unmarshal(body, &events); err != nil {
			s.fail(w, http.StatusBadRequest, "unable to process input data")
			return
		}

		if s.metrics != nil {
			s.metrics.EventsIngested.Add(float64(len(events)))
		}

		if store, _ := strconv.ParseBool(r.URL.Query().Get("store")); store {
			if err := s.eventStore.SaveEvents(r.Context(), events); err != nil {
				s.logger.Error("event store write failed", zap.Error(err))
				s.fail(w, http.StatusInternalServerError, "storage failure")
				return
			}
		}

	case http.MethodGet:
		var since time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				s.fail(w, http.StatusBadRequest, "invalid since parameter")
				return
			}
			since = parsed
		}
		var err error
		events, err = s.eventStore.ListEvents(r.Context(), since)
		if err != nil {
			s.logger.Error("event store read failed", zap.Error(err))
			s.fail(w, http.StatusInternalServerError, "storage failure")
			return
		}

	default:
		s.methodNotAllowed(w)
		return
	}

	counts := bandit.CountEvents(events, opts)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   counts,
	})
}

// handleSpend reports the recorded daily spend for one item group.
// ?date= defaults to today (UTC).
func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	groupID := r.URL.Query().Get("item_group_id")
	if groupID == "" {
		s.fail(w, http.StatusBadRequest, "item_group_id is required")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format(models.DateLayout)
	}

	spend, err := s.engine.DailySpend(r.Context(), groupID, date)
	if err != nil {
		s.logger.Error("spend read failed", zap.Error(err))
		s.fail(w, http.StatusInternalServerError, "storage failure")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"item_group_id": groupID,
		"date":          date,
		"daily_spend":   spend,
	})
}

// =============================================
// Helpers
// =============================================

// decodeRecords accepts either a single JSON object or a JSON array of
// ingestion records. A null or empty body is malformed, not an empty
// batch.
func decodeRecords(body []byte) ([]models.IngestRecord, error) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, fmt.Errorf("empty payload")
	}
	var recs []models.IngestRecord
	if err := json.Unmarshal(body, &recs); err == nil {
		return recs, nil
	}
	var rec models.IngestRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, err
	}
	return []models.IngestRecord{rec}, nil
}

func (s *Server) fail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"message": message,
	})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.fail(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/config"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/forecast"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/market"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/sentiment"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

// newTestRouter wires every handler against one shared in-memory repo,
// with the real scorers and the baseline model behind them, so a test
// can drive a whole ingest-to-evaluation flow over HTTP.
func newTestRouter() (*gin.Engine, *stubRepo) {
	gin.SetMode(gin.TestMode)
	repo := newStubRepo()

	calendar := market.NewCalendar("America/New_York")
	aggregator := &service.SentimentAggregatorService{
		Repo:     repo,
		Calendar: calendar,
		Dynamic:  sentiment.DynamicScorer{},
	}
	reconciler := &service.OutcomeReconcilerService{Repo: repo}
	engine := &service.PredictionEngineService{Repo: repo, Model: forecast.Baseline{}}

	r := gin.New()
	(&ArticleHandler{Service: &service.ArticleStoreService{Repo: repo}, Repo: repo}).Register(r)
	(&TickerHandler{Service: &service.TickerRegistryService{Repo: repo}, Repo: repo}).Register(r)
	(&LinkHandler{
		Linker:     &service.MentionLinkerService{Repo: repo},
		Aggregator: aggregator,
		Reconciler: reconciler,
		Repo:       repo,
	}).Register(r)
	(&PredictionHandler{Engine: engine, Repo: repo}).Register(r)
	(&ActualHandler{Reconciler: reconciler, Repo: repo}).Register(r)
	(&PipelineHandler{
		Repo: repo,
		Scoring: &service.ScoringPassService{
			Repo:       repo,
			Aggregator: aggregator,
			Engine:     engine,
			Config:     config.ScoringConfig{Enabled: true, BatchSize: 50},
		},
	}).Register(r)
	return r, repo
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, w.Body.String())
	}
	return env
}

// dataField pulls one field out of the envelope's data object.
func dataField(t *testing.T, env envelope, key string) any {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal(env.Data, &obj); err != nil {
		t.Fatalf("decode data: %v data=%s", err, string(env.Data))
	}
	return obj[key]
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) envelope {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	return decodeEnvelope(t, w)
}

func wantOK(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	env := wantStatus(t, w, http.StatusOK)
	if env.Code != 0 || env.Message != "ok" {
		t.Fatalf("envelope code=%d message=%q want 0/ok", env.Code, env.Message)
	}
	return env
}

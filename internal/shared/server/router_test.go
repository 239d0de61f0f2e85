package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/services/health"
	"cvcoach-backend/internal/shared/config"
	"cvcoach-backend/internal/wizard"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := wizard.NewService(wizard.NewStore(), nil, nil)
	return NewRouter(RouterDeps{
		Config: config.Config{
			Env:               "dev",
			CORSAllowOrigin:   []string{"http://localhost:5173"},
			RateLimitRate:     5,
			RateLimitBurst:    20,
			LLMRateLimitRate:  0.5,
			LLMRateLimitBurst: 5,
			MaxUploadBytes:    1 << 20,
		},
		Health: health.NewService(nil, "openai", "local"),
		Wizard: wizard.NewHandler(svc, documents.NewService(0)),
	})
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok":true`) {
			t.Fatalf("%s: unexpected %d %s", path, resp.Code, resp.Body.String())
		}
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "analysis_started_total") {
		t.Fatalf("metrics: unexpected %d", resp.Code)
	}
}

func TestAPIRequiresIdentity(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "abc")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["userId"] != "guest:abc" || body["guest"] != true {
		t.Fatalf("unexpected body %+v", body)
	}
	limits, _ := body["limits"].(map[string]any)
	if limits["maxUploadBytes"] != float64(1<<20) || limits["analysisBurst"] != float64(5) {
		t.Fatalf("unexpected limits %+v", limits)
	}
}

func TestModelBackedRoutesAreThrottled(t *testing.T) {
	r := newTestRouter(t)

	create := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", nil)
	create.Header.Set("X-Guest-Id", "abc")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, create)
	var ws map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &ws); err != nil {
		t.Fatalf("decode: %v", err)
	}
	path := "/api/v1/workspaces/" + ws["id"].(string) + "/reanalyze"

	// burst 5 for model-backed routes; every call fails fast with 409
	codes := []int{}
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-Guest-Id", "abc")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	for i, code := range codes[:5] {
		if code != http.StatusConflict {
			t.Fatalf("call %d: expected 409, got %d", i, code)
		}
	}
	if codes[5] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", codes[5])
	}
}

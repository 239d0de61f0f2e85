package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvcoach-backend/internal/reports"
	"cvcoach-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Env:               "dev",
		ObjectStoreType:   "local",
		LocalStoreDir:     t.TempDir(),
		LLMProvider:       "openai",
		LLMModel:          "gpt-4o-mini",
		OpenAIAPIKey:      "sk-test",
		MaxUploadBytes:    1 << 20,
		RateLimitRate:     5,
		RateLimitBurst:    20,
		LLMRateLimitRate:  1,
		LLMRateLimitBurst: 5,
	}
}

func TestBuildWithoutDatabaseUsesMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	assert.Nil(t, app.DB)
	assert.IsType(t, &reports.MemoryRepo{}, app.Reports.Repo)
	assert.NotNil(t, app.Wizard)
	assert.Equal(t, int64(1<<20), app.Documents.MaxBytes)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"database":"memory"`)
}

func TestBuildCoreRequiresProviderKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = ""
	_, err := BuildCore(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg = testConfig(t)
	cfg.LLMProvider = "gemini"
	_, err = BuildCore(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestBuildCoreRequiresBucketForS3(t *testing.T) {
	cfg := testConfig(t)
	cfg.ObjectStoreType = "s3"
	_, err := BuildCore(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

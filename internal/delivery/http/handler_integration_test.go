package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/smartkanban/backend/config"
	"github.com/smartkanban/backend/internal/domain"
	"github.com/smartkanban/backend/internal/extractor"
	"github.com/smartkanban/backend/internal/infrastructure/cache"
	"github.com/smartkanban/backend/internal/infrastructure/openai"
	"github.com/smartkanban/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

const goodKey = "sk-good-key-1234"

const normalizedContent = `{"title_short":"Acme Espresso Beans, 1 kg","price":"14.99 €","quantity_unit":"1 kg",` +
	`"supplier":"Acme","image_url":"","product_url":"https://www.amazon.de/dp/B08N5WRWNW/",` +
	`"reorder_level":"1 package","order_quantity":"1 package","notes":""}`

const productPage = `<html><head><title>Acme</title></head><body>
<span id="productTitle">Acme Espresso Beans 1 kg</span>
<span class="a-price"><span class="a-offscreen">14,99 €</span></span>
<a id="bylineInfo">by Acme</a></body></html>`

// fakeOpenAI answers chat completions and model listings like the real API
type fakeOpenAI struct {
	server      *httptest.Server
	completions atomic.Int32
}

func newFakeOpenAI(t *testing.T) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+goodKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			f.completions.Add(1)
			body, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1700000000,
				"model":   "gpt-4o-mini",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": normalizedContent},
				}},
			})
			_, _ = w.Write(body)
		case strings.HasSuffix(r.URL.Path, "/models"):
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model","created":1700000000,"owned_by":"openai"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
		Cache: config.CacheConfig{
			Type: config.CacheMemory,
		},
	}
}

// setupTestRouter wires the real service onto memory stores and a fake OpenAI
func setupTestRouter(t *testing.T) (*gin.Engine, *fakeOpenAI) {
	t.Helper()
	api := newFakeOpenAI(t)

	backend := cache.NewMemoryCache()
	service := usecase.NewProductService(
		extractor.New(extractor.Config{}, nil),
		openai.NewClient(openai.Config{BaseURL: api.server.URL + "/v1/"}, nil),
		cache.NewProductCache(backend, nil),
		cache.NewSettingsStore(backend),
		cache.NewPrintStore(backend),
		usecase.ProductServiceConfig{},
		nil,
	)

	router := SetupRouter(testConfig(), NewHandler(service, nil), nil)
	if router == nil {
		t.Fatal("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}
	return router, api
}

func doJSON(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v (%s)", err, w.Body.String())
	}
	return resp
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doJSON(router, http.MethodGet, "/health", "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "smartkanban-backend" {
			t.Errorf("service = %v, want smartkanban-backend", response["service"])
		}
		if w.Header().Get(RequestIDHeader) == "" {
			t.Errorf("%s header not set", RequestIDHeader)
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(router, method, "/health", "", nil)
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestExtractEndpoint runs the pipeline through the HTTP surface
func TestExtractEndpoint(t *testing.T) {
	pageURL := "https://www.amazon.de/Acme-Espresso/dp/B08N5WRWNW/ref=sr_1_1"
	body, _ := json.Marshal(domain.ExtractRequest{URL: pageURL, HTML: productPage})

	t.Run("extracts, normalizes and caches", func(t *testing.T) {
		router, api := setupTestRouter(t)
		auth := map[string]string{"Authorization": "Bearer " + goodKey}

		w := doJSON(router, http.MethodPost, "/api/v1/products/extract", string(body), auth)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.ExtractResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if result.Cached {
			t.Errorf("cached = true on first run")
		}
		if result.Data.TitleShort != "Acme Espresso Beans, 1 kg" {
			t.Errorf("title_short = %q", result.Data.TitleShort)
		}
		if result.Data.ImageURL != "" {
			t.Errorf("image_url = %q, want empty when neither source has one", result.Data.ImageURL)
		}
		if result.Data.Raw.Price != "14.99 €" {
			t.Errorf("raw price = %q, want 14.99 €", result.Data.Raw.Price)
		}

		// second run is served from the cache without another completion
		w = doJSON(router, http.MethodPost, "/api/v1/products/extract", string(body), auth)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if !result.Cached {
			t.Errorf("cached = false on second run")
		}
		if got := api.completions.Load(); got != 1 {
			t.Errorf("completions = %d, want 1", got)
		}

		// invalidation forces a fresh run
		w = doJSON(router, http.MethodDelete, "/api/v1/products/cache?url="+pageURL, "", nil)
		if w.Code != http.StatusNoContent {
			t.Errorf("invalidate Status = %d, want %d", w.Code, http.StatusNoContent)
		}
		w = doJSON(router, http.MethodPost, "/api/v1/products/extract", string(body), auth)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := api.completions.Load(); got != 2 {
			t.Errorf("completions = %d, want 2 after invalidation", got)
		}
	})

	t.Run("missing key is a configuration error", func(t *testing.T) {
		router, api := setupTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/products/extract", string(body), nil)
		if w.Code != http.StatusPreconditionFailed {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusPreconditionFailed)
		}
		resp := decodeError(t, w)
		if resp.Kind != KindConfiguration {
			t.Errorf("kind = %q, want %q", resp.Kind, KindConfiguration)
		}
		if resp.Error != openai.MissingKeyMessage {
			t.Errorf("error = %q, want %q", resp.Error, openai.MissingKeyMessage)
		}
		if got := api.completions.Load(); got != 0 {
			t.Errorf("completions = %d, want 0", got)
		}
	})

	t.Run("rejected key is an upstream error", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/products/extract", string(body),
			map[string]string{"Authorization": "Bearer sk-wrong"})
		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
		if resp := decodeError(t, w); resp.Kind != KindUpstream {
			t.Errorf("kind = %q, want %q", resp.Kind, KindUpstream)
		}
	})

	t.Run("rejects browser pages", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/products/extract", `{"url":"chrome://extensions"}`, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if resp := decodeError(t, w); resp.Kind != KindInvalidPage {
			t.Errorf("kind = %q, want %q", resp.Kind, KindInvalidPage)
		}
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		for _, payload := range []string{`{`, `{}`, `{"url":""}`} {
			w := doJSON(router, http.MethodPost, "/api/v1/products/extract", payload, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("payload %s: Status = %d, want %d", payload, w.Code, http.StatusBadRequest)
			}
			if resp := decodeError(t, w); resp.Kind != KindInvalidRequest {
				t.Errorf("payload %s: kind = %q, want %q", payload, resp.Kind, KindInvalidRequest)
			}
		}
	})

	t.Run("requires html when fetching is disabled", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doJSON(router, http.MethodPost, "/api/v1/products/extract", `{"url":"https://shop.example/p/1"}`, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestNormalizeEndpoint tests normalization of a record extracted elsewhere
func TestNormalizeEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	payload := `{"raw":{"title":"Acme Espresso Beans 1 kg","supplier":"Acme"},"api_key":"` + goodKey + `"}`
	w := doJSON(router, http.MethodPost, "/api/v1/products/normalize", payload, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
	}

	var record domain.NormalizedRecord
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if record.Supplier != "Acme" {
		t.Errorf("supplier = %q, want Acme", record.Supplier)
	}
}

// TestSettingsEndpoints tests settings storage and key verification
func TestSettingsEndpoints(t *testing.T) {
	router, api := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/settings", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"language":"en"`) {
		t.Errorf("default settings = %s, want language en", w.Body.String())
	}

	w = doJSON(router, http.MethodPut, "/api/v1/settings", `{"openai_api_key":"not-a-key"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid key Status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doJSON(router, http.MethodPut, "/api/v1/settings", `{"openai_api_key":"`+goodKey+`","language":"de"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save Status = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
	}
	var saved domain.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if saved.OpenAIAPIKey != "sk-...1234" {
		t.Errorf("openai_api_key = %q, want masked", saved.OpenAIAPIKey)
	}
	if saved.Language != domain.LanguageGerman {
		t.Errorf("language = %q, want de", saved.Language)
	}

	// the stored key now serves requests that carry none
	body, _ := json.Marshal(domain.ExtractRequest{URL: "https://shop.example/p/1", HTML: productPage})
	w = doJSON(router, http.MethodPost, "/api/v1/products/extract", string(body), nil)
	if w.Code != http.StatusOK {
		t.Errorf("extract with stored key Status = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
	}
	if got := api.completions.Load(); got != 1 {
		t.Errorf("completions = %d, want 1", got)
	}

	t.Run("verify accepts the stored key", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/settings/verify", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var resp VerifyKeyResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if !resp.Valid {
			t.Errorf("valid = false, want true")
		}
	})

	t.Run("verify reports a rejected key", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/settings/verify", `{"api_key":"sk-wrong"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var resp VerifyKeyResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if resp.Valid || resp.Error == "" {
			t.Errorf("response = %+v, want invalid with reason", resp)
		}
	})
}

// TestPrintEndpoints tests the one-shot print handoff
func TestPrintEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/print", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("empty Status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = doJSON(router, http.MethodPost, "/api/v1/print", `{"title_short":"Nitrile Gloves M","reorder_level":"2 boxes"}`, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("save Status = %d, want %d", w.Code, http.StatusNoContent)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/print", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("take Status = %d, want %d", w.Code, http.StatusOK)
	}
	var data domain.PrintData
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if data.TitleShort != "Nitrile Gloves M" || data.ReorderLevel != "2 boxes" {
		t.Errorf("print data = %+v", data)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/print", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second take Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for Chrome extension", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doJSON(router, http.MethodGet, "/health", "", map[string]string{"Origin": "chrome-extension://abcdefghijklmnop"})
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abcdefghijklmnop" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "chrome-extension://abcdefghijklmnop")
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
		}
	})

	t.Run("preflight on api route", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doJSON(router, http.MethodOptions, "/api/v1/products/extract", "", map[string]string{
			"Origin":                        "http://localhost:3000",
			"Access-Control-Request-Method": "POST",
		})
		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
	})
}

// TestRecoveryIntegration tests panic recovery through the full router
func TestRecoveryIntegration(t *testing.T) {
	router, _ := setupTestRouter(t)

	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := doJSON(router, http.MethodGet, "/panic", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, path := range []string{"/api/products/extract", "/products/extract", "/api/v2/products/extract"} {
		w := doJSON(router, http.MethodPost, path, `{}`, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"configuration", &domain.ConfigurationError{Message: "x"}, http.StatusPreconditionFailed, KindConfiguration},
		{"upstream", &domain.UpstreamError{StatusCode: 500}, http.StatusBadGateway, KindUpstream},
		{"schema", &domain.SchemaError{Detail: "x"}, http.StatusBadGateway, KindSchema},
		{"fetch", domain.ErrFetchFailed, http.StatusBadGateway, KindFetchFailed},
		{"invalid page", domain.ErrInvalidPage, http.StatusBadRequest, KindInvalidPage},
		{"bind", invalidBody(io.ErrUnexpectedEOF), http.StatusBadRequest, KindInvalidRequest},
		{"print missing", domain.ErrPrintDataNotFound, http.StatusNotFound, KindNotFound},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, KindRateLimited},
		{"unknown", os.ErrClosed, http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := classifyError(tt.err)
			if status != tt.wantStatus || kind != tt.wantKind {
				t.Errorf("classifyError() = (%d, %s), want (%d, %s)", status, kind, tt.wantStatus, tt.wantKind)
			}
		})
	}
}

package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/model"
)

func pageImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page-1.png")
	require.NoError(t, os.WriteFile(path, []byte("not-a-real-png"), 0o644))
	return path
}

func modelResponse(t *testing.T, fields any) string {
	t.Helper()
	text, err := json.Marshal(fields)
	require.NoError(t, err)
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": string(text)}},
				},
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     120,
			"candidatesTokenCount": 40,
			"totalTokenCount":      160,
		},
	}
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(b)
}

func newTestClient(baseURL string, retries int) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		Model:      "test-model",
		APIKey:     "test-key",
		MaxRetries: retries,
	}, nil)
}

func receiptRequest(t *testing.T) model.ExtractRequest {
	return model.ExtractRequest{
		DocType:           constants.Receipt,
		PagePaths:         []string{pageImage(t)},
		OCRText:           "TOTAL $42.50",
		AllowedCategories: []string{"Groceries", "Other"},
		DefaultCurrency:   "USD",
	}
}

func TestExtractFieldsSuccess(t *testing.T) {
	fields := map[string]any{
		"merchant_name": "Trader Joe's",
		"tx_date":       "2024-03-15",
		"total":         "42.50",
		"currency_code": "USD",
		"category":      "Groceries",
	}
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// schema and inline image travel with the request
		gc := req["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", gc["responseMimeType"])
		assert.NotNil(t, gc["responseJsonSchema"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse(t, fields)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	res, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.NoError(t, err)

	assert.Equal(t, "/models/test-model:generateContent", gotPath.Load())
	require.NotNil(t, res.Receipt)
	assert.Equal(t, "Trader Joe's", res.Receipt.MerchantName)
	assert.Equal(t, "42.50", res.Receipt.Total)
	assert.Equal(t, 160, res.Usage.Total)
	assert.Equal(t, 120, res.Usage.Prompt)
}

func TestExtractFieldsStripsFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fenced := "```json\n{\"merchant_name\":\"Cafe\",\"tx_date\":\"2024-01-02\",\"total\":\"10.00\",\"currency_code\":\"USD\"}\n```"
		resp := map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{
				"parts": []any{map[string]any{"text": fenced}},
			}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	res, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.NoError(t, err)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, "Cafe", res.Receipt.MerchantName)
}

func TestExtractFieldsRetriesOn429(t *testing.T) {
	fields := map[string]any{
		"merchant_name": "Cafe",
		"tx_date":       "2024-01-02",
		"total":         "10.00",
		"currency_code": "USD",
	}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"rate limited"}}`))
			return
		}
		_, _ = w.Write([]byte(modelResponse(t, fields)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	res, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.NotNil(t, res.Receipt)
}

func TestExtractFieldsRetriesWithoutSchemaOnRejection(t *testing.T) {
	fields := map[string]any{
		"merchant_name": "Cafe",
		"tx_date":       "2024-01-02",
		"total":         "10.00",
		"currency_code": "USD",
	}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		gc := req["generationConfig"].(map[string]any)
		if calls.Add(1) == 1 {
			require.NotNil(t, gc["responseJsonSchema"])
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"responseJsonSchema is not supported"}}`))
			return
		}
		// retried request must have dropped the schema
		assert.Nil(t, gc["responseJsonSchema"])
		_, _ = w.Write([]byte(modelResponse(t, fields)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	res, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.NotNil(t, res.Receipt)
}

func TestExtractFieldsFailsFastOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractFieldsMaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	_, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractFieldsLenientRepair(t *testing.T) {
	// tip is non-numeric garbage; strict validation fails, lenient drops it.
	fields := map[string]any{
		"merchant_name": "Cafe",
		"tx_date":       "2024-01-02",
		"total":         "10.00",
		"currency_code": "USD",
		"tip":           "a couple bucks",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(modelResponse(t, fields)))
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:         srv.URL,
		Model:           "test-model",
		APIKey:          "test-key",
		LenientOptional: true,
	}, nil)
	res, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.NoError(t, err)
	require.NotNil(t, res.Receipt)
	assert.Empty(t, res.Receipt.Tip)

	// strict mode rejects the same document
	strict := newTestClient(srv.URL, 0)
	_, err = strict.ExtractFields(context.Background(), receiptRequest(t))
	assert.Error(t, err)
}

func TestExtractFieldsSchemaMismatch(t *testing.T) {
	fields := map[string]any{
		"merchant_name": "Cafe",
		"currency_code": "USD",
		// required tx_date and total missing
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(modelResponse(t, fields)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	_, err := c.ExtractFields(context.Background(), receiptRequest(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestExtractFieldsNoUsablePages(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0", 0)
	req := receiptRequest(t)
	req.PagePaths = []string{filepath.Join(t.TempDir(), "missing.png")}
	_, err := c.ExtractFields(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable page images")
}

func TestMimeTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", mimeTypeFor("/tmp/a.png"))
	assert.Equal(t, "image/jpeg", mimeTypeFor("b.JPG"))
}

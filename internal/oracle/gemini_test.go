package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testMarket = models.Market{
	ID:       "m1",
	Question: "Will Bitcoin hit $100k by Dec 31, 2024?",
	OddsYes:  0.52,
	OddsNo:   0.48,
}

var testTrader = &models.TraderProfile{ID: "t1", Name: "GCR_Whale", WinRate: 78}

// envelope wraps answer the way generateContent does.
func envelope(answer string) string {
	text, _ := json.Marshal(answer)
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%s}],"role":"model"}}]}`, text)
}

// setupTestServer creates a test server and a GeminiDecider pointed at it.
func setupTestServer(t *testing.T, apiKey string, handler http.Handler) (*GeminiDecider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	g, err := NewGeminiDecider(&config.Oracle{
		ApiKey:  apiKey,
		Model:   "test-model",
		BaseURL: server.URL,
	}, 40, zap.NewNop())
	require.NoError(t, err)
	return g, server
}

func TestGeminiDecider_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `GCR_Whale`)
		assert.Contains(t, string(body), `Win Rate: 78%`)
		assert.Contains(t, string(body), `Current Odds for YES: 0.52`)
		assert.Contains(t, string(body), `"responseMimeType":"application/json"`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(envelope(`{"decision":"COPY_BUY_NO","reasoning":"Mirroring a proven contrarian.","amount":40}`)))
	})

	g, server := setupTestServer(t, "secret", handler)
	defer server.Close()

	decision, err := g.Decide(context.Background(), testMarket, testTrader)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionCopyBuyNo, decision.Decision)
	assert.Equal(t, "Mirroring a proven contrarian.", decision.Reasoning)
	assert.Equal(t, 40.0, decision.Amount)
}

func TestGeminiDecider_UnknownTrader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `Unknown Whale`)
		assert.Contains(t, string(body), `Win Rate: Unknown%`)
		_, _ = w.Write([]byte(envelope(`{"decision":"HOLD","reasoning":"No edge.","amount":0}`)))
	})

	g, server := setupTestServer(t, "secret", handler)
	defer server.Close()

	decision, err := g.Decide(context.Background(), testMarket, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionHold, decision.Decision)
}

func TestGeminiDecider_MissingFieldsGetDefaults(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope(`{}`)))
	})

	g, server := setupTestServer(t, "secret", handler)
	defer server.Close()

	decision, err := g.Decide(context.Background(), testMarket, testTrader)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionHold, decision.Decision)
	assert.Equal(t, "Insufficient data.", decision.Reasoning)
	assert.Zero(t, decision.Amount)
}

func TestGeminiDecider_ReasoningIsBounded(t *testing.T) {
	long := strings.Repeat("x", 100)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope(`{"decision":"COPY_BUY_YES","reasoning":"` + long + `","amount":10}`)))
	})

	g, server := setupTestServer(t, "secret", handler)
	defer server.Close()

	decision, err := g.Decide(context.Background(), testMarket, testTrader)
	require.NoError(t, err)
	assert.Len(t, decision.Reasoning, 40)
}

func TestGeminiDecider_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "envelope not json", body: `<html>`},
		{name: "no candidates", body: `{"candidates":[]}`},
		{name: "answer not json", body: envelope(`COPY_BUY_YES`)},
		{name: "unknown decision", body: envelope(`{"decision":"BUY_EVERYTHING","reasoning":"x"}`)},
		{name: "wrong type", body: envelope(`{"decision":"HOLD","amount":"lots"}`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			g, server := setupTestServer(t, "secret", handler)
			defer server.Close()

			_, err := g.Decide(context.Background(), testMarket, testTrader)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestGeminiDecider_HTTPError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	})

	g, server := setupTestServer(t, "secret", handler)
	defer server.Close()

	_, err := g.Decide(context.Background(), testMarket, testTrader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call decision model")
}

func TestGeminiDecider_MissingKeyNeverCalls(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote oracle must not be called without a key")
	})

	g, server := setupTestServer(t, "", handler)
	defer server.Close()

	_, err := g.Decide(context.Background(), testMarket, testTrader)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicart/assistant/internal/assistant"
	"github.com/omnicart/assistant/internal/blob"
	"github.com/omnicart/assistant/internal/knowledge"
	"github.com/omnicart/assistant/internal/query"
	"github.com/omnicart/assistant/internal/retrieval"
)

type idleCompleter struct{}

func (idleCompleter) Complete(ctx context.Context, model, systemPrompt, userMessage string, temperature float64) (string, error) {
	return "ok", nil
}

// stallProvider blocks in Embed until the request context is cancelled.
type stallProvider struct{}

func (stallProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	// Linger past cancellation so the handler's timeout branch wins the select.
	time.Sleep(50 * time.Millisecond)
	return nil, ctx.Err()
}

func (stallProvider) Model() string { return "stub-embedding" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMux(t *testing.T, service *assistant.Service, timeout time.Duration) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(service, timeout, discardLogger()).Register(mux)
	return mux
}

// unconfiguredService resolves every message to the configuration-error reply,
// which is enough to exercise the transport layer.
func unconfiguredService() *assistant.Service {
	return assistant.NewService(nil, nil, nil, assistant.DefaultConfig(), discardLogger())
}

func postChat(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) chatEnvelope {
	t.Helper()
	var env chatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandleChat_ResolvesMessage(t *testing.T) {
	mux := newTestMux(t, unconfiguredService(), 0)

	rec := postChat(mux, `{"message": "show me speakers"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	require.NotNil(t, env.Data)
	assert.Equal(t, assistant.ReplyNotConfigured, env.Data.Reply)
	assert.Equal(t, query.IntentConfigurationError, env.Data.Intent)
	assert.NotNil(t, env.Data.Products)
	assert.NotNil(t, env.Data.Actions)
}

func TestHandleChat_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing message", body: `{}`},
		{name: "empty message", body: `{"message": ""}`},
		{name: "numeric message", body: `{"message": 42}`},
		{name: "object message", body: `{"message": {"text": "hi"}}`},
		{name: "malformed json", body: `{"message"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t, unconfiguredService(), 0)

			rec := postChat(mux, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, "Please provide a message to process.", env.Message)
			assert.Nil(t, env.Data)
		})
	}
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, unconfiguredService(), 0)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleChat_TimeoutFallsBack(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, blobs.Write(blob.KnowledgeIndexDoc, &knowledge.Index{
		EmbeddingModel: "stub-embedding",
		Entries: []knowledge.Record{{
			Entry: knowledge.Entry{
				ID:       "product:p1",
				Kind:     knowledge.KindProduct,
				Metadata: knowledge.EntryMetadata{ID: "p1", Name: "Portable Speaker"},
			},
			Embedding: []float32{1, 0},
		}},
	}))

	provider := stallProvider{}
	service := assistant.NewService(
		idleCompleter{},
		knowledge.NewRefresher(blobs, provider, discardLogger()),
		retrieval.NewRetriever(provider, retrieval.DefaultConfig()),
		assistant.DefaultConfig(),
		discardLogger(),
	)
	mux := newTestMux(t, service, 20*time.Millisecond)

	rec := postChat(mux, `{"message": "show me speakers"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	require.NotNil(t, env.Data)
	assert.Equal(t, assistant.ReplyUnavailable, env.Data.Reply)
	assert.Equal(t, query.IntentError, env.Data.Intent)
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(t, unconfiguredService(), 0)

	for _, path := range []string{"/chat/health", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.True(t, env.Success)
		assert.Equal(t, "Chat assistant is ready", env.Message)
		assert.Nil(t, env.Data)
	}
}

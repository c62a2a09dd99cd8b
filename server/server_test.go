package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story_studio/generator"
)

// countingLLM records calls and answers with a fixed reply.
type countingLLM struct {
	calls atomic.Int32
	reply string
	err   error
}

func (c *countingLLM) Complete(context.Context, generator.Prompt) (string, error) {
	c.calls.Add(1)
	return c.reply, c.err
}

// stubGen returns err from both endpoints, or blocks until the context ends
// when block is set.
type stubGen struct {
	text  string
	err   error
	block bool
}

func (s stubGen) CreateOutline(ctx context.Context, _ generator.CreateRequest) (string, error) {
	return s.answer(ctx)
}

func (s stubGen) ReviseOutline(ctx context.Context, _ generator.ReviseRequest) (string, error) {
	return s.answer(ctx)
}

func (s stubGen) answer(ctx context.Context) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func newHandler(t *testing.T, gen Generator, opts Options) http.Handler {
	t.Helper()
	srv, err := New(gen, opts)
	require.NoError(t, err)
	return srv.Routes()
}

func agentWith(t *testing.T, llm generator.LLMClient) *generator.Agent {
	t.Helper()
	agent, err := generator.NewAgent(llm, llm, nil)
	require.NoError(t, err)
	return agent
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestValidationFailuresSkipModel(t *testing.T) {
	llm := &countingLLM{reply: "unused"}
	h := newHandler(t, agentWith(t, llm), Options{})

	tests := []struct {
		path, body, want string
	}{
		{"/outline", `{"theme":"   ","mode":"Dreamscape"}`, "Theme required"},
		{"/outline", `{}`, "Theme required"},
		{"/outline/revise", `{"outline":"1) Hook","instructions":"  "}`, "Outline + instructions required"},
		{"/outline/revise", `{"outline":"","instructions":"darker"}`, "Outline + instructions required"},
	}
	for _, tc := range tests {
		rec := do(h, http.MethodPost, tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.body)
		assert.Equal(t, tc.want, rec.Body.String())
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	}
	assert.Zero(t, llm.calls.Load())
}

func TestCreateAndReviseSuccess(t *testing.T) {
	llm := &countingLLM{reply: "1) Hook\n2) Setup"}
	h := newHandler(t, agentWith(t, llm), Options{})

	rec := do(h, http.MethodPost, "/outline", `{"theme":"storm","mode":"Memory Lane","voice":{"summary":"wry"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1) Hook\n2) Setup", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(h, http.MethodPost, "/outline/revise", `{"outline":"1) Hook","instructions":"darker","voice":"wry"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), llm.calls.Load())
}

func TestUpstreamFailurePassesThrough(t *testing.T) {
	const body = `{"error":{"message":"Rate limit exceeded","code":429}}`
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, body)
	}))
	defer upstream.Close()

	llm, err := generator.NewLLM(generator.LLMSettings{
		Provider: "openrouter",
		BaseURL:  upstream.URL,
		APIKey:   "sk-test",
		Model:    "x-ai/grok-4-fast:free",
	})
	require.NoError(t, err)
	h := newHandler(t, agentWith(t, llm), Options{})

	tests := []struct {
		path string
		body string
	}{
		{"/outline", `{"theme":"storm"}`},
		{"/outline/revise", `{"outline":"1) Hook","instructions":"darker"}`},
	}
	for i, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, body, rec.Body.String())
			assert.Equal(t, int32(i+1), hits.Load())
		})
	}
}

func TestUpstreamSuccessEndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "m",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "\n 1) **Hook**: rain\n"},
			}},
		})
	}))
	defer upstream.Close()

	llm, err := generator.NewLLM(generator.LLMSettings{BaseURL: upstream.URL, APIKey: "k", Model: "m"})
	require.NoError(t, err)
	h := newHandler(t, agentWith(t, llm), Options{})

	rec := do(h, http.MethodPost, "/outline", `{"theme":"storm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1) **Hook**: rain", rec.Body.String())
}

func TestTransportFailureIsBadGateway(t *testing.T) {
	h := newHandler(t, stubGen{err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused")}, Options{})

	rec := do(h, http.MethodPost, "/outline/revise", `{"outline":"x","instructions":"y"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestRequestTimeout(t *testing.T) {
	h := newHandler(t, stubGen{block: true}, Options{Timeout: 20 * time.Millisecond})

	rec := do(h, http.MethodPost, "/outline", `{"theme":"storm"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestMethodAndBodyChecks(t *testing.T) {
	h := newHandler(t, stubGen{text: "ok"}, Options{})

	rec := do(h, http.MethodGet, "/outline", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	rec = do(h, http.MethodPost, "/outline/revise", `{"outline":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Invalid JSON body"))

	rec = do(h, http.MethodPost, "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExport(t *testing.T) {
	h := newHandler(t, stubGen{}, Options{})

	rec := do(h, http.MethodPost, "/outline/export",
		`{"outline":"<p>1) Hook</p><p>2) Setup</p>","theme":"Night Ferry","mode":"Dreamscape","format":"md"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="night-ferry.md"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "# Night Ferry\n\n_Theme: Night Ferry | Mode: Dreamscape_\n\n1) Hook\n2) Setup\n", rec.Body.String())

	rec = do(h, http.MethodPost, "/outline/export", `{"outline":"<p>x</p>","format":"pdf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/outline/export", `{"outline":"<p></p>","format":"text"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Outline required", rec.Body.String())
}

func TestHealthAndRequestID(t *testing.T) {
	h := newHandler(t, stubGen{}, Options{})

	rec := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestStaticPage(t *testing.T) {
	h := newHandler(t, stubGen{}, Options{})

	rec := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Story Studio</title>")

	rec = do(h, http.MethodGet, "/studio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Create Outline")

	rec = do(h, http.MethodGet, "/app.js", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "function toPlainText")
	assert.Contains(t, rec.Body.String(), `document.execCommand("defaultParagraphSeparator", false, "p")`)
	assert.Contains(t, rec.Body.String(), "normalizeBlocks(editor)")
}

func TestNewRequiresGenerator(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

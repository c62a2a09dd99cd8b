package outline

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story_studio/generator"
)

func TestClientPostsJSON(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "1) Hook")
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil)
	text, err := c.ReviseOutline(context.Background(), generator.ReviseRequest{
		Outline:      "1) Old",
		Instructions: "new",
		Mode:         generator.ModeDreamscape,
		Voice:        generator.Voice{Summary: "calm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1) Hook", text)
	assert.Equal(t, "/outline/revise", gotPath)
	assert.Equal(t, "1) Old", gotBody["outline"])
	assert.Equal(t, "Dreamscape", gotBody["mode"])
	assert.Equal(t, map[string]any{"summary": "calm"}, gotBody["voice"])
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"slow down"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).CreateOutline(context.Background(), generator.CreateRequest{Theme: "x"})
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusTooManyRequests, serr.StatusCode)
	assert.Equal(t, `{"error":"slow down"}`, serr.Body)
}

func TestStudioOverClientNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "1) Hook\n2) Setup")
	}))
	c := NewClient(srv.URL, nil)
	s := NewStudio(c, nil)
	s.SetTheme("storm")
	require.NoError(t, s.Create(context.Background()))
	before := s.Snapshot()

	srv.Close()
	s.SetNote("darker")
	require.Error(t, s.Revise(context.Background()))

	after := s.Snapshot()
	assert.Equal(t, before.Outline, after.Outline)
	assert.Equal(t, before.History, after.History)
}

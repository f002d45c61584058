package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSearchUnconfigured(t *testing.T) {
	got := New(Config{}, nil).Search(context.Background(), "Jane Doe Engineer", 3)
	require.Len(t, got, 1)
	assert.Equal(t, "placeholder result for: Jane Doe Engineer", got[0].Title)
	assert.Empty(t, got[0].Link)
}

func TestSearchList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Jane Doe Engineer", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"title":"one","snippet":"a","link":"https://one"},
			{"title":"two","snippet":"b","link":"https://two"},
			{"title":"three","snippet":"c","link":"https://three"}
		]`))
	}))
	defer srv.Close()

	got := New(Config{APIURL: srv.URL, APIKey: "key", MaxResults: 5}, nil).
		Search(context.Background(), "Jane Doe Engineer", 2)
	require.Len(t, got, 2)
	assert.Equal(t, Result{Title: "one", Snippet: "a", Link: "https://one"}, got[0])
}

func TestSearchResultsObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"title":"profile","content":"bio","url":"https://p"}]}`))
	}))
	defer srv.Close()

	got := New(Config{APIURL: srv.URL}, nil).Search(context.Background(), "q", 0)
	require.Len(t, got, 1)
	assert.Equal(t, Result{Title: "profile", Snippet: "bio", Link: "https://p"}, got[0])
}

func TestSearchCapsAtConfiguredMax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"title":"a"},{"title":"b"}]`))
	}))
	defer srv.Close()

	got := New(Config{APIURL: srv.URL, MaxResults: 1}, nil).Search(context.Background(), "q", 10)
	assert.Len(t, got, 1)
}

func TestSearchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "bad status", handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{name: "malformed json", handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{`)) }},
		{name: "unexpected shape", handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"items":[]}`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			core, logs := observer.New(zapcore.WarnLevel)
			got := New(Config{APIURL: srv.URL}, zap.New(core)).Search(context.Background(), "q", 3)
			require.Len(t, got, 1)
			assert.Equal(t, Failure("q"), got[0])
			assert.Equal(t, 1, logs.Len())
		})
	}
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "Jane Doe Engineer", Query(" Jane Doe ", "Engineer"))
	assert.Equal(t, "Engineer", Query("", "Engineer"))
}

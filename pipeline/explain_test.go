package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahyadri-labs/krishirakshak/domain"
)

func testContext() domain.ExplanationContext {
	return domain.ExplanationContext{
		Label:      domain.LabelTomatoDiseased,
		Advice:     domain.AdviceFor(domain.LabelTomatoDiseased),
		Confidence: "82.4%",
		Messages:   []domain.HistoryMessage{{Role: "user", Content: "check my tomato"}},
	}
}

func TestRequestExplanationSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/agent-response", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"explanation":"spray neem oil in the evening"}`))
	}))
	defer srv.Close()

	c := NewExplanationClient(srv.URL, time.Second)
	text, err := c.RequestExplanation(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "spray neem oil in the evening", text)
	assert.False(t, c.InFlight())
}

func TestRequestExplanationSupersede(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			w.Write([]byte(`{"explanation":"first"}`))
			return
		}
		w.Write([]byte(`{"explanation":"second"}`))
	}))
	defer srv.Close()
	defer close(release)

	c := NewExplanationClient(srv.URL, 10*time.Second)

	type outcome struct {
		text string
		err  error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		text, err := c.RequestExplanation(context.Background(), testContext())
		firstDone <- outcome{text, err}
	}()

	<-started

	// The second request atomically cancels the first.
	text, err := c.RequestExplanation(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	first := <-firstDone
	require.ErrorIs(t, first.err, domain.ErrCancelled)
	assert.Empty(t, first.text)
}

func TestRequestExplanationBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Missing required fields: label, advice, confidence"}`))
	}))
	defer srv.Close()

	c := NewExplanationClient(srv.URL, time.Second)
	_, err := c.RequestExplanation(context.Background(), testContext())
	require.ErrorIs(t, err, domain.ErrMissingFields)
}

func TestRequestExplanationRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch Gemini response"}`))
	}))
	defer srv.Close()

	c := NewExplanationClient(srv.URL, time.Second)
	_, err := c.RequestExplanation(context.Background(), testContext())
	require.ErrorIs(t, err, domain.ErrRemote)
}

func TestRequestExplanationNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewExplanationClient(srv.URL, time.Second)
	_, err := c.RequestExplanation(context.Background(), testContext())
	require.ErrorIs(t, err, domain.ErrNetwork)
}

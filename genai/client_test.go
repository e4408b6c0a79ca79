package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "KrishiRakshak")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"use neem oil"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "", time.Second)
	text, err := c.GenerateContent(context.Background(),
		ExplanationPrompt("Tomato_Diseased", "Use cow dung slurry and neem extract weekly.", "82.4%"))
	require.NoError(t, err)
	assert.Equal(t, "use neem oil", text)
}

func TestGenerateContentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", "", time.Second)
	_, err := c.GenerateContent(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGenerateContentNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "", time.Second)
	_, err := c.GenerateContent(context.Background(), "prompt")
	require.Error(t, err)
}

func TestExplanationPromptInjectsFields(t *testing.T) {
	prompt := ExplanationPrompt("Maize_Diseased", "Rotate crops.", "74.0%")
	assert.Contains(t, prompt, "Detected Issue: Maize_Diseased")
	assert.Contains(t, prompt, "Rotate crops. (confidence: 74.0%)")
	assert.Contains(t, prompt, "Problem Understanding:")
}

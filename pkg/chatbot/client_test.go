package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/validation"
)

func TestAskPlaceholder(t *testing.T) {
	c := New(context.Background(), Config{Timeout: time.Second})

	resp, err := c.Ask(context.Background(), models.ChatbotQuery{Question: "When to sow wheat?"})
	require.NoError(t, err)
	assert.Equal(t, SourcePlaceholder, resp.Source)
	assert.Contains(t, resp.Answer, "'When to sow wheat?'")
	assert.Contains(t, resp.Answer, "Nashik region")
}

func TestAskRequiresQuestion(t *testing.T) {
	c := New(context.Background(), Config{})
	_, err := c.Ask(context.Background(), models.ChatbotQuery{Question: "   "})
	var verrs *validation.Errors
	assert.True(t, errors.As(err, &verrs))
}

func TestAskWithClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/ask", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		var q models.ChatbotQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, DefaultLanguageCode, q.LanguageCode)
		assert.Equal(t, "Pune", q.Region)
		_, _ = w.Write([]byte(`{"answer":"Sow after the first rains."}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(context.Background(), Config{
		ServiceURL:    srv.URL + "/ask",
		TokenURL:      srv.URL + "/token",
		ClientID:      "advisor",
		ClientSecret:  "secret",
		Timeout:       time.Second,
		DefaultRegion: "Pune",
	})
	resp, err := c.Ask(context.Background(), models.ChatbotQuery{Question: "When to sow?"})
	require.NoError(t, err)
	assert.Equal(t, SourceService, resp.Source)
	assert.Equal(t, "Sow after the first rains.", resp.Answer)
}

func TestAskEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":""}`))
	}))
	defer srv.Close()

	c := New(context.Background(), Config{ServiceURL: srv.URL, Timeout: time.Second})
	_, err := c.Ask(context.Background(), models.ChatbotQuery{Question: "Hi"})
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

// Package chatbot forwards farmer questions to the external advisory AI
// service.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/observability/metrics"
	"github.com/agri-advisor/platform/pkg/validation"
)

const (
	provider            = "chatbot"
	DefaultLanguageCode = "en-IN"
	SourcePlaceholder   = "placeholder"
	SourceService       = "ai_service"
)

// ErrEmptyAnswer is returned when the service answers without text.
var ErrEmptyAnswer = errors.New("chatbot service returned no answer")

type Config struct {
	ServiceURL    string
	TokenURL      string
	ClientID      string
	ClientSecret  string
	Timeout       time.Duration
	DefaultRegion string
}

// Client asks the configured service, or answers with a placeholder when
// no service URL is set.
type Client struct {
	serviceURL string
	region     string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[models.ChatbotResponse]
}

// New uses an oauth2 client-credentials token source when TokenURL and
// ClientID are set.
func New(ctx context.Context, cfg Config) *Client {
	client := httpclient.New(cfg.Timeout)
	if cfg.TokenURL != "" && cfg.ClientID != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		client = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, client))
		client.Timeout = cfg.Timeout
	}
	region := cfg.DefaultRegion
	if region == "" {
		region = "Nashik"
	}
	return &Client{
		serviceURL: strings.TrimRight(cfg.ServiceURL, "/"),
		region:     region,
		http:       client,
		breaker:    httpclient.NewBreaker[models.ChatbotResponse](provider, 30*time.Second),
	}
}

func (c *Client) Ask(ctx context.Context, q models.ChatbotQuery) (models.ChatbotResponse, error) {
	q.Question = strings.TrimSpace(q.Question)
	if err := validation.Struct(q); err != nil {
		return models.ChatbotResponse{}, err
	}
	if q.LanguageCode == "" {
		q.LanguageCode = DefaultLanguageCode
	}
	if q.Region == "" {
		q.Region = c.region
	}

	if c.serviceURL == "" {
		return models.ChatbotResponse{
			Answer: fmt.Sprintf("As an AI, I've processed your question about '%s' for the %s region. Here is your detailed guidance...", q.Question, q.Region),
			Source: SourcePlaceholder,
		}, nil
	}

	resp, err := c.breaker.Execute(func() (models.ChatbotResponse, error) {
		return c.ask(ctx, q)
	})
	metrics.ObserveUpstream(provider, err)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Chatbot service call failed")
		return models.ChatbotResponse{}, err
	}
	return resp, nil
}

func (c *Client) ask(ctx context.Context, q models.ChatbotQuery) (models.ChatbotResponse, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return models.ChatbotResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL, bytes.NewReader(payload))
	if err != nil {
		return models.ChatbotResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.ChatbotResponse{}, fmt.Errorf("chatbot request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.ChatbotResponse{}, &httpclient.StatusError{URL: c.serviceURL, StatusCode: resp.StatusCode}
	}

	var body struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.ChatbotResponse{}, fmt.Errorf("decode chatbot response: %w", err)
	}
	if strings.TrimSpace(body.Answer) == "" {
		return models.ChatbotResponse{}, ErrEmptyAnswer
	}
	return models.ChatbotResponse{Answer: body.Answer, Source: SourceService}, nil
}

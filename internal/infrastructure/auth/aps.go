package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/resilience"
)

type APSConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       string
	HTTPClient   *http.Client
}

// NewAPSSource acquires two-legged client-credentials tokens directly from
// the APS authentication service.
func NewAPSSource(cfg APSConfig, options Options) (*CachingSource, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, domain.WrapError(domain.ErrAuth, "configure aps token source", errors.New("client id or secret is not set"))
	}
	conf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       strings.Fields(cfg.Scopes),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	fetch := func(ctx context.Context) (domain.AccessToken, error) {
		tok, err := conf.Token(context.WithValue(ctx, oauth2.HTTPClient, httpClient))
		if err != nil {
			return domain.AccessToken{}, fmt.Errorf("aps token request: %w", err)
		}
		token := domain.AccessToken{
			Value:     tok.AccessToken,
			TokenType: tok.TokenType,
			ExpiresAt: tok.Expiry,
		}
		if !tok.Expiry.IsZero() {
			token.ExpiresIn = int(time.Until(tok.Expiry).Round(time.Second).Seconds())
		}
		return token, nil
	}
	return newCachingSource("aps", fetch, classifyTokenError, options), nil
}

func classifyTokenError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		switch retrieveErr.Response.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			// 4xx: credentials or scope rejected.
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

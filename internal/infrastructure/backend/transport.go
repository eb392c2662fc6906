package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
)

type collectionResponse struct {
	Data []recordPayload `json:"data"`
}

type recordPayload struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"attributes"`
	Relationships struct {
		Tip struct {
			Data *struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"tip"`
	} `json:"relationships"`
}

func (p recordPayload) toDomain() domain.Record {
	rec := domain.Record{
		ID:          p.ID,
		Type:        p.Type,
		Name:        p.Attributes.Name,
		DisplayName: p.Attributes.DisplayName,
	}
	if tip := p.Relationships.Tip.Data; tip != nil {
		rec.TipVersionID = tip.ID
	}
	return rec
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

func (t tokenResponse) toDomain(now time.Time) domain.AccessToken {
	token := domain.AccessToken{
		Value:     t.AccessToken,
		TokenType: t.TokenType,
		ExpiresIn: t.ExpiresIn,
	}
	if t.ExpiresIn > 0 {
		token.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return token
}

// errorPayload covers both failure bodies the backend produces.
type errorPayload struct {
	Error  string `json:"error"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(c.httpClient, req, out, operation)
}

func (c *Client) do(client *http.Client, req *http.Request, out any, operation string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPStatusError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}

	var payload errorPayload
	if json.Unmarshal(body, &payload) == nil {
		if len(payload.Errors) > 0 {
			statusErr.Detail = strings.TrimSpace(payload.Errors[0].Detail)
		}
		if statusErr.Detail == "" {
			statusErr.Detail = strings.TrimSpace(payload.Error)
		}
	}
	return statusErr
}

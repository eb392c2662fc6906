package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/resilience"
)

type manifestResponse struct {
	Status      string         `json:"status"`
	Progress    string         `json:"progress"`
	Derivatives []manifestNode `json:"derivatives"`
}

type manifestNode struct {
	GUID     string         `json:"guid"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Role     string         `json:"role"`
	Status   string         `json:"status"`
	Children []manifestNode `json:"children"`
}

func (m manifestResponse) toDocument(urn string) *domain.ViewerDocument {
	doc := &domain.ViewerDocument{
		URN:      urn,
		Status:   domain.ManifestStatus(strings.ToLower(m.Status)),
		Progress: m.Progress,
	}
	var walk func(nodes []manifestNode)
	walk = func(nodes []manifestNode) {
		for _, n := range nodes {
			if n.Type == "geometry" && n.GUID != "" {
				doc.Viewables = append(doc.Viewables, domain.Viewable{
					GUID: n.GUID,
					Name: n.Name,
					Type: n.Type,
					Role: n.Role,
				})
			}
			walk(n.Children)
		}
	}
	walk(m.Derivatives)
	return doc
}

type ManifestStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ManifestStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("manifest status: %s", e.Status)
	}
	return fmt.Sprintf("manifest status: %s: %s", e.Status, e.Body)
}

func doManifest(client *http.Client, req *http.Request) (manifestResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return manifestResponse{}, fmt.Errorf("manifest request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return manifestResponse{}, &ManifestStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	var out manifestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return manifestResponse{}, fmt.Errorf("decode manifest: %w", err)
	}
	return out, nil
}

func classifyManifestError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var statusErr *ManifestStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

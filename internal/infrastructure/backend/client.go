package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/resilience"
)

const uploadField = "modelFile"

// Client talks to the hierarchy REST backend. Paths passed to
// ListCollection are relative to the base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// uploadClient shares the transport but has no overall timeout; the
	// caller's context bounds an upload.
	uploadClient *http.Client
	executor     *resilience.Executor
	logger       *slog.Logger
}

type Options struct {
	Timeout            time.Duration
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(baseURL string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		uploadClient: &http.Client{Transport: httpClient.Transport},
		executor:     options.ResilienceExecutor,
		logger:       logger,
	}
}

func (c *Client) GetProfile(ctx context.Context) (domain.Profile, error) {
	var profile domain.Profile
	err := c.execute(ctx, "backend.profile", func(ctx context.Context) error {
		return c.getJSON(ctx, "/api/user/profile", &profile, "profile")
	})
	if err != nil {
		return domain.Profile{}, wrapTemporaryIfNeeded("get profile", err)
	}
	return profile, nil
}

func (c *Client) ListCollection(ctx context.Context, path string) ([]domain.Record, error) {
	var body collectionResponse
	err := c.execute(ctx, "backend.list", func(ctx context.Context) error {
		return c.getJSON(ctx, path, &body, "list")
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrNetwork, "list "+path, wrapTemporaryIfNeeded("list", err))
	}

	out := make([]domain.Record, 0, len(body.Data))
	for _, rec := range body.Data {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

// ViewerToken fetches a short-lived viewer credential from the backend.
func (c *Client) ViewerToken(ctx context.Context) (domain.AccessToken, error) {
	var body tokenResponse
	err := c.execute(ctx, "backend.token", func(ctx context.Context) error {
		return c.getJSON(ctx, "/api/auth/token", &body, "token")
	})
	if err != nil {
		return domain.AccessToken{}, domain.WrapError(domain.ErrAuth, "fetch viewer token", wrapTemporaryIfNeeded("token", err))
	}
	if strings.TrimSpace(body.AccessToken) == "" {
		msg := body.Error
		if msg == "" {
			msg = "response carries no access_token"
		}
		return domain.AccessToken{}, domain.WrapError(domain.ErrAuth, "fetch viewer token", fmt.Errorf("%s", msg))
	}
	return body.toDomain(time.Now()), nil
}

// UploadFile streams file as the multipart field modelFile. Uploads run
// once: the body cannot be replayed.
func (c *Client) UploadFile(ctx context.Context, folderID string, file domain.UploadFile) (domain.UploadResult, error) {
	if strings.TrimSpace(folderID) == "" {
		return domain.UploadResult{}, domain.WrapError(domain.ErrValidation, "upload file", fmt.Errorf("folder id is empty"))
	}
	if file.Body == nil {
		return domain.UploadResult{}, domain.WrapError(domain.ErrValidation, "upload file", fmt.Errorf("file body is empty"))
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile(uploadField, file.Name)
		if err == nil {
			_, err = io.Copy(part, file.Body)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	endpoint := c.baseURL + "/api/folders/" + url.PathEscape(folderID) + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return domain.UploadResult{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result domain.UploadResult
	err = c.execute(ctx, "backend.upload", func(context.Context) error {
		return c.do(c.uploadClient, req, &result, "upload")
	})
	_ = pr.Close()
	if err != nil {
		c.logger.Error("backend_upload_failed", "url", endpoint, "file", file.Name, "error", err)
		return domain.UploadResult{}, domain.WrapError(domain.ErrNetwork, "upload file", wrapTemporaryIfNeeded("upload", err))
	}
	if result.Message == "" {
		result.Message = "File uploaded successfully."
	}
	return result, nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyBackendError)
}

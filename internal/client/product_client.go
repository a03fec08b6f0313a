package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"catalogo-api/internal/domain"

	"go.uber.org/zap"
)

const maxErrorBody = 1 << 20

// StatusError is a downstream call that came back with a non-2xx status. It
// carries the status and the raw response body so callers can decide whether
// to normalize, forward or re-signal.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s from %s %s", e.StatusCode, http.StatusText(e.StatusCode), e.Method, e.URL)
}

// ProductService mirrors the remote product API's logical operations.
type ProductService interface {
	FindAll(ctx context.Context) ([]*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product, id string) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Upload(ctx context.Context, id, filename string, content io.Reader) (*domain.Product, error)
}

type productClient struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// NewProductClient creates a ProductService talking to the remote product
// endpoint at base (including the versioned path, without a trailing slash).
// Timeouts are left to the injected http.Client.
func NewProductClient(base string, httpClient *http.Client, logger *zap.Logger) ProductService {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &productClient{
		base:   base,
		http:   httpClient,
		logger: logger,
	}
}

// FindAll fetches the whole remote product list.
func (c *productClient) FindAll(ctx context.Context) ([]*domain.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, c.base, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var products []*domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode product list: %w", err)
	}
	return products, nil
}

// FindByID fetches a single remote product.
func (c *productClient) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, c.base+"/"+id, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeProduct(resp.Body)
}

// Create posts a new product to the remote API.
func (c *productClient) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	body, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.base, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeProduct(resp.Body)
}

// Update replaces the remote product identified by id.
func (c *productClient) Update(ctx context.Context, product *domain.Product, id string) (*domain.Product, error) {
	body, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, c.base+"/"+id, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeProduct(resp.Body)
}

// Delete removes the remote product identified by id.
func (c *productClient) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.base+"/"+id, "", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Upload forwards a photo as a multipart body to the remote upload endpoint
// and returns the refreshed product.
func (c *productClient) Upload(ctx context.Context, id, filename string, content io.Reader) (*domain.Product, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy photo content: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.base+"/upload/"+id, form.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeProduct(resp.Body)
}

// do issues the request and turns any non-2xx response into a StatusError.
// Connection-level failures are returned as-is, never absorbed.
func (c *productClient) do(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("Downstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("method", method),
			zap.String("url", url),
		)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        url,
			Body:       respBody,
		}
	}
	return resp, nil
}

func decodeProduct(body io.Reader) (*domain.Product, error) {
	product := &domain.Product{}
	if err := json.NewDecoder(body).Decode(product); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return product, nil
}

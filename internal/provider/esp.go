package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// espAPI is the request plumbing shared by the HTTP API providers: one
// base URL, one Authorization value, and uniform failure classification.
type espAPI struct {
	name          string
	baseURL       string
	authorization string
	client        HTTPClient
}

func newESPAPI(name, endpoint, defaultEndpoint, authorization string, client HTTPClient) espAPI {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return espAPI{
		name:          name,
		baseURL:       endpoint,
		authorization: authorization,
		client:        client,
	}
}

// post sends body to path and returns the response only for 2xx statuses.
// Everything else comes back as a classified *ProviderError.
func (a espAPI) post(ctx context.Context, path, contentType string, body []byte, extra map[string]string) (*HTTPResponse, error) {
	headers := map[string]string{
		"Authorization": a.authorization,
		"Content-Type":  contentType,
	}
	for k, v := range extra {
		headers[k] = v
	}

	resp, err := a.client.Do(ctx, &HTTPRequest{
		Method:  http.MethodPost,
		URL:     a.baseURL + path,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, ClassifyTransportError(a.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ClassifyHTTPError(a.name, resp.StatusCode, string(resp.Body))
	}
	return resp, nil
}

// probe issues an authenticated GET and expects 200.
func (a espAPI) probe(ctx context.Context, path string) error {
	resp, err := a.client.Do(ctx, &HTTPRequest{
		Method:  http.MethodGet,
		URL:     a.baseURL + path,
		Headers: map[string]string{"Authorization": a.authorization},
	})
	if err != nil {
		return fmt.Errorf("%s: health check request: %w", a.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: health check returned status %d", a.name, resp.StatusCode)
	}
	return nil
}

func accepted(messageID string, resp *HTTPResponse) *DeliveryResult {
	return &DeliveryResult{
		ProviderMessageID: messageID,
		Timestamp:         time.Now(),
		Metadata: map[string]string{
			"status_code": strconv.Itoa(resp.StatusCode),
		},
	}
}

package retry

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/CreativeUnicorns/navsync/apperror"
)

// FetchWithRetry sends req through client under the engine policy. Non-2xx
// responses become "HTTP <status>: <text>" errors recorded as network errors.
// The caller owns the body of the returned response.
func (e *Engine) FetchWithRetry(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	url := req.URL.String()

	v, err := e.execute(ctx, func(ctx context.Context) (any, error) {
		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", err)
			}
			attempt.Body = body
		}
		resp, err := client.Do(attempt)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: %w", method, url, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		statusText := http.StatusText(resp.StatusCode)
		herr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, statusText)
		return nil, e.cfg.handler.HandleNetworkError(herr, apperror.NetworkInfo{
			URL:        url,
			Method:     method,
			Status:     resp.StatusCode,
			StatusText: statusText,
		})
	}, []apperror.HandleOption{apperror.WithContext("Network Request"), apperror.WithNotify(false)})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
